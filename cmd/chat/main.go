// Command chat sends one message to the chat backend and prints the JSON reply.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"artifact-chat/chatclient"
	"artifact-chat/internal/config"
	"artifact-chat/internal/logger"
)

func main() {
	_ = godotenv.Load()
	log := logger.New(os.Getenv("LOG_LEVEL"), os.Stderr)

	if err := run(context.Background(), os.Args[1:], os.Getenv, os.Stdout); err != nil {
		log.Error().Err(err).Msg("chat failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv config.Getenv, out io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	artifactID := fs.String("artifact", "a", "artifact id")
	baseURL := fs.String("base-url", config.ChatAPIBaseURL(getenv), "chat backend base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.Join(fs.Args(), " ")

	client, err := chatclient.New(*baseURL)
	if err != nil {
		return err
	}
	resp, err := client.SendChatMessage(ctx, chatclient.ChatRequest{
		UserID:     *userID,
		Message:    message,
		ArtifactID: *artifactID,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
