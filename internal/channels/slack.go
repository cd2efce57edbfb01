package channels

import (
	"context"
	"fmt"
	"log/slog"

	slackgo "github.com/slack-go/slack"

	"github.com/roadscout/roadscout/internal/config"
)

// SlackChannel is an outbound-only alert sink: the trip monitor posts
// departure alerts to a fixed channel via the Web API. It does not poll for
// inbound messages.
type SlackChannel struct {
	cfg    *config.SlackConfig
	client *slackgo.Client
}

// NewSlackChannel creates a SlackChannel.
func NewSlackChannel(cfg *config.SlackConfig) *SlackChannel {
	return &SlackChannel{cfg: cfg}
}

func (s *SlackChannel) Name() string { return "slack" }

// Start validates the token and blocks until ctx is cancelled.
func (s *SlackChannel) Start(ctx context.Context) error {
	if s.cfg.BotToken == "" {
		return fmt.Errorf("slack: bot token not configured")
	}
	s.client = slackgo.New(s.cfg.BotToken)

	if resp, err := s.client.AuthTestContext(ctx); err == nil {
		slog.Info("slack: connected", "bot_user_id", resp.UserID)
	} else {
		slog.Warn("slack: auth test failed", "err", err)
	}

	<-ctx.Done()
	return ctx.Err()
}

// Send posts text to chatID, falling back to the configured alert channel
// when chatID is empty.
func (s *SlackChannel) Send(ctx context.Context, chatID, text string) error {
	if s.client == nil {
		return fmt.Errorf("slack: channel not started")
	}
	if chatID == "" {
		chatID = s.cfg.AlertChannel
	}
	if chatID == "" {
		return fmt.Errorf("slack: no target channel")
	}
	_, _, err := s.client.PostMessageContext(ctx, chatID,
		slackgo.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
