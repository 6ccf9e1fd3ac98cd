package telegram

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
	"github.com/erdidoqan/postrella/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *httpjson.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiBase
// targets the public Bot API.
func NewNotifier(apiBase, botToken, chatID string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   httpjson.New(apiBase, 5*time.Second),
	}
}

// SendSummary posts a Markdown message to Telegram.
func (n *Notifier) SendSummary(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	err := n.client.Do(ctx, httpjson.Request{
		Method: "POST",
		Path:   fmt.Sprintf("/bot%s/sendMessage", n.botToken),
		Form:   form,
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram error: %s", resp.Description)
	}
	return nil
}
