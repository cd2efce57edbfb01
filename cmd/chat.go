package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roadscout/roadscout/internal/assistant"
	"github.com/roadscout/roadscout/internal/config"
	"github.com/roadscout/roadscout/internal/dependency"
	"github.com/roadscout/roadscout/internal/schema"
)

var (
	chatMessage  string
	chatSession  string
	chatLocation string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the traffic assistant",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:default", "Session ID")
	chatCmd.Flags().StringVarP(&chatLocation, "location", "l", "", "Your location as \"lat,lon\"")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	asst := container.Assistant()

	location, err := parseLocationFlag(chatLocation)
	if err != nil {
		return err
	}

	if chatMessage != "" {
		return runSingleMessage(asst, chatMessage, location)
	}
	return runInteractive(asst, location)
}

// runSingleMessage sends one message and prints the answer.
func runSingleMessage(asst *assistant.Assistant, message string, location *schema.LatLon) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	outcome := asst.Handle(ctx, chatSession, message, location, printProgress)
	printResponse(outcome.Text)
	return nil
}

// runInteractive reads lines from stdin and answers each before prompting
// again. "/new" resets the session.
func runInteractive(asst *assistant.Assistant, location *schema.LatLon) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit, '/new' to reset)\n\n", logo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listenForSignals(cancel)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")

		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}
		if line == "/new" {
			if err := asst.Reset(chatSession); err != nil {
				fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
				continue
			}
			fmt.Println("Session cleared.")
			continue
		}

		outcome := asst.Handle(ctx, chatSession, line, location, printProgress)
		printResponse(outcome.Text)
	}
}

// listenForSignals cancels ctx on SIGINT or SIGTERM and exits.
func listenForSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()
}

func printProgress(hint string) {
	fmt.Fprintf(os.Stderr, "  ↳ %s\n", hint)
}

func printResponse(text string) {
	fmt.Printf("\n%s roadscout\n%s\n\n", logo, text)
}

// parseLocationFlag parses the -l "lat,lon" flag; empty means no location.
func parseLocationFlag(s string) (*schema.LatLon, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid location %q: expected \"lat,lon\"", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("invalid location %q: expected \"lat,lon\"", s)
	}
	return &schema.LatLon{Lat: lat, Lon: lon}, nil
}
