package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/erdidoqan/postrella/internal/config"
	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
)

// ChatGPTCompleter implements Completer against OpenAI-compatible chat APIs.
type ChatGPTCompleter struct {
	endpoint string
	model    string
	apiKey   string
	api      *httpjson.Client
}

var _ Completer = (*ChatGPTCompleter)(nil)

// NewChatGPTCompleter builds a client from configuration.
func NewChatGPTCompleter(cfg config.GeneratorConfig) *ChatGPTCompleter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	return &ChatGPTCompleter{
		endpoint: endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		api:      httpjson.New("", cfg.Timeout),
	}
}

// Complete posts the prompts and returns the first choice.
func (c *ChatGPTCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" || c.model == "" {
		return "", errors.New("chatgpt client misconfigured")
	}

	messages := []map[string]string{}
	if strings.TrimSpace(system) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err := c.api.Do(ctx, httpjson.Request{
		Method: http.MethodPost,
		Path:   c.endpoint,
		JSON:   map[string]any{"model": c.model, "messages": messages},
		Header: http.Header{"Authorization": {"Bearer " + c.apiKey}},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("chatgpt: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("chatgpt: empty completion")
	}
	return out.Choices[0].Message.Content, nil
}
