package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderPassthrough = "passthrough"
	ProviderOpenAI      = "openai"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"
	defaultTimeout = 60 * time.Second

	maxResponseSize = 4 << 20
	maxTokens       = 4096
)

// Config selects and configures the formatter backend.
type Config struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Chat calls an OpenAI-compatible /chat/completions endpoint.
type Chat struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ Formatter = (*Chat)(nil)

// NewChat builds a Chat formatter, filling defaults for empty fields.
func NewChat(cfg Config) *Chat {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Chat{
		url:        completionsURL(base),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func completionsURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

// Format rewrites the body; the result never carries front matter.
func (c *Chat) Format(ctx context.Context, in Input) (string, error) {
	if strings.TrimSpace(in.Content) == "" {
		return "", fmt.Errorf("formatter: content is empty")
	}
	out, err := c.complete(ctx, 0.5, systemEditor, formatPrompt(in))
	if err != nil {
		return "", err
	}
	return stripFences(out), nil
}

// SuggestTitle asks the model for a short title.
func (c *Chat) SuggestTitle(ctx context.Context, content string) (string, error) {
	out, err := c.complete(ctx, 0.3, systemTitle, titlePrompt(content))
	if err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(out), `"'`)
	if title == "" {
		return "", ErrUnavailable
	}
	return title, nil
}

// SuggestTags asks the model for a JSON array of tags.
func (c *Chat) SuggestTags(ctx context.Context, content string, existing []string) ([]string, error) {
	out, err := c.complete(ctx, 0.3, systemTags, tagsPrompt(content, existing))
	if err != nil {
		return nil, err
	}
	raw := jsonArrayPattern.FindString(out)
	if raw == "" {
		return nil, fmt.Errorf("formatter: no tag array in response")
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("formatter: parse tags: %w", err)
	}
	return tags, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Chat) complete(ctx context.Context, temperature float64, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("formatter: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("formatter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("formatter: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("formatter: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return "", fmt.Errorf("formatter: api error (status %d): %s", resp.StatusCode, msg)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("formatter: parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("formatter: no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

var (
	fencePattern     = regexp.MustCompile("(?s)^```(?:markdown|md)?\\s*\\n(.*?)\\n?```$")
	jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
)

// stripFences unwraps a reply the model wrapped in a single code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
