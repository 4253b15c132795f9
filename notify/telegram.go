package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Telegram delivers alerts through the Bot API sendMessage call.
type Telegram struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegram builds a notifier for one bot token and chat.
func NewTelegram(token, chatID string) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram: token and chat id are required")
	}
	return &Telegram{
		token:      token,
		chatID:     chatID,
		baseURL:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// FromEnv returns a Telegram notifier when TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID are set, and a Noop otherwise.
func FromEnv() Notifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatID == "" {
		return Noop{}
	}
	t, err := NewTelegram(token, chatID)
	if err != nil {
		return Noop{}
	}
	return t
}

// Notify posts one message. Long texts are truncated to stay inside
// Telegram's message limit.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	const maxLen = 3500
	if len(text) > maxLen {
		text = text[:maxLen]
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
