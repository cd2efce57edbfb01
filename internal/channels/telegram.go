package channels

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/roadscout/roadscout/internal/config"
	"github.com/roadscout/roadscout/internal/schema"
)

// TelegramChannel runs the assistant as a Telegram bot via long polling.
// Shared location messages are remembered per chat and attached to later
// questions, so "how's traffic near me" works after one location share.
type TelegramChannel struct {
	cfg       *config.TelegramConfig
	responder Responder
	bot       *tgbotapi.BotAPI

	locations locationStore
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *config.TelegramConfig, r Responder) *TelegramChannel {
	return &TelegramChannel{cfg: cfg, responder: r}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(ctx, update)
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !t.isAllowed(msg.From) {
		slog.Debug("telegram: sender not in allowlist", "user_id", msg.From.ID)
		return
	}

	chatID := msg.Chat.ID

	if msg.Location != nil {
		t.locations.set(chatID, schema.LatLon{
			Lat: msg.Location.Latitude,
			Lon: msg.Location.Longitude,
		})
		t.reply(chatID, 0, "Got it — I'll use this location for your next questions.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	key := fmt.Sprintf("telegram:%d", chatID)
	if text == "/new" || text == "/start" {
		if err := t.responder.Reset(key); err != nil {
			slog.Warn("telegram: session reset failed", "key", key, "err", err)
		}
		t.locations.clear(chatID)
		t.reply(chatID, 0, "Fresh start. Where are you headed?")
		return
	}

	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go t.sendTypingLoop(typingCtx, chatID)

	outcome := t.responder.Handle(ctx, key, text, t.locations.get(chatID), nil)
	t.reply(chatID, msg.MessageID, outcome.Text)
}

// isAllowed checks the sender against the allowlist. An empty list allows all.
func (t *TelegramChannel) isAllowed(from *tgbotapi.User) bool {
	if len(t.cfg.AllowFrom) == 0 {
		return true
	}
	id := fmt.Sprintf("%d", from.ID)
	for _, a := range t.cfg.AllowFrom {
		if a == id || (from.UserName != "" && a == from.UserName) {
			return true
		}
	}
	return false
}

func (t *TelegramChannel) reply(chatID int64, replyTo int, text string) {
	for _, chunk := range splitMessage(text, 4000) {
		m := tgbotapi.NewMessage(chatID, markdownToTelegramHTML(chunk))
		m.ParseMode = "HTML"
		if replyTo != 0 {
			m.ReplyToMessageID = replyTo
		}
		if _, err := t.bot.Send(m); err != nil {
			// Fall back to plain text when the HTML conversion upsets Telegram.
			m2 := tgbotapi.NewMessage(chatID, chunk)
			if replyTo != 0 {
				m2.ReplyToMessageID = replyTo
			}
			_, _ = t.bot.Send(m2)
		}
	}
}

func (t *TelegramChannel) sendTypingLoop(ctx context.Context, chatID int64) {
	for {
		if t.bot != nil {
			_, _ = t.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
		}
		select {
		case <-time.After(4 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

// Send delivers an unsolicited message, e.g. a trip-monitor alert.
func (t *TelegramChannel) Send(_ context.Context, chatID, text string) error {
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}
	var id int64
	if _, err := fmt.Sscanf(chatID, "%d", &id); err != nil {
		return fmt.Errorf("telegram: invalid chat id %q", chatID)
	}
	for _, chunk := range splitMessage(text, 4000) {
		m := tgbotapi.NewMessage(id, markdownToTelegramHTML(chunk))
		m.ParseMode = "HTML"
		if _, err := t.bot.Send(m); err != nil {
			return fmt.Errorf("telegram: send: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Markdown → Telegram HTML converter

var (
	reTGCodeBlock  = regexp.MustCompile("(?s)```[\\w]*\\n?([\\s\\S]*?)```")
	reTGInlineCode = regexp.MustCompile("`([^`]+)`")
	reTGHeader     = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	reTGLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reTGBold1      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reTGBold2      = regexp.MustCompile(`__(.+?)__`)
	reTGBullet     = regexp.MustCompile(`(?m)^[-*]\s+`)
)

func markdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	// Code blocks first so the inline pattern never matches fence backticks.
	var codeBlocks []string
	text = reTGCodeBlock.ReplaceAllStringFunc(text, func(m string) string {
		groups := reTGCodeBlock.FindStringSubmatch(m)
		codeBlocks = append(codeBlocks, groups[1])
		return fmt.Sprintf("\x00CB%d\x00", len(codeBlocks)-1)
	})
	var inlineCodes []string
	text = reTGInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		groups := reTGInlineCode.FindStringSubmatch(m)
		inlineCodes = append(inlineCodes, groups[1])
		return fmt.Sprintf("\x00IC%d\x00", len(inlineCodes)-1)
	})

	text = reTGHeader.ReplaceAllString(text, "$1")
	text = htmlEscape(text)
	text = reTGLink.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = reTGBold1.ReplaceAllString(text, "<b>$1</b>")
	text = reTGBold2.ReplaceAllString(text, "<b>$1</b>")
	text = reTGBullet.ReplaceAllString(text, "• ")

	for i, code := range inlineCodes {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00IC%d\x00", i),
			"<code>"+htmlEscape(code)+"</code>")
	}
	for i, code := range codeBlocks {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00CB%d\x00", i),
			"<pre><code>"+htmlEscape(code)+"</code></pre>")
	}
	return text
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// splitMessage splits content into chunks no longer than maxLen bytes,
// preferring line then word boundaries.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t")
	}
	return chunks
}
