package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, reply string, status int, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatFormat(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, "```markdown\n## Intro\n\nHello\n```", http.StatusOK, &seen)
	c := NewChat(Config{BaseURL: srv.URL + "/v1", APIKey: "key", Model: "m"})

	out, err := c.Format(context.Background(), Input{Content: "hello", Title: "T", Tags: []string{"go"}})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if out != "## Intro\n\nHello" {
		t.Errorf("out = %q", out)
	}
	if seen.Model != "m" || len(seen.Messages) != 2 || !strings.Contains(seen.Messages[1].Content, "Tags: go") {
		t.Errorf("request = %+v", seen)
	}
}

func TestChatFormatRejectsEmpty(t *testing.T) {
	c := NewChat(Config{APIKey: "key"})
	if _, err := c.Format(context.Background(), Input{Content: "  "}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestChatErrorStatus(t *testing.T) {
	srv := chatServer(t, "", http.StatusUnauthorized, nil)
	c := NewChat(Config{BaseURL: srv.URL + "/v1/", APIKey: "key"})
	_, err := c.SuggestTitle(context.Background(), "body")
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("err = %v", err)
	}
}

func TestChatSuggestions(t *testing.T) {
	srv := chatServer(t, `"Static Sites"`, http.StatusOK, nil)
	c := NewChat(Config{BaseURL: srv.URL + "/v1", APIKey: "key"})
	title, err := c.SuggestTitle(context.Background(), "body")
	if err != nil || title != "Static Sites" {
		t.Errorf("title = %q, err = %v", title, err)
	}

	srv = chatServer(t, "Here you go: [\"go\", \"hugo\"]", http.StatusOK, nil)
	c = NewChat(Config{BaseURL: srv.URL + "/v1", APIKey: "key"})
	tags, err := c.SuggestTags(context.Background(), "body", nil)
	if err != nil || len(tags) != 2 || tags[1] != "hugo" {
		t.Errorf("tags = %v, err = %v", tags, err)
	}
}

func TestPassthrough(t *testing.T) {
	p := Passthrough{}
	out, _ := p.Format(context.Background(), Input{Content: "\n body \n"})
	if out != "body" {
		t.Errorf("format = %q", out)
	}
	title, err := p.SuggestTitle(context.Background(), "intro\n# Heading One\ntext")
	if err != nil || title != "Heading One" {
		t.Errorf("title = %q, err = %v", title, err)
	}
	if _, err := p.SuggestTitle(context.Background(), "no heading"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, ok := New(Config{}).(Passthrough); !ok {
		t.Error("no api key should select Passthrough")
	}
	if _, ok := New(Config{Provider: ProviderOpenAI, APIKey: "k"}).(*Chat); !ok {
		t.Error("api key should select Chat")
	}
	if _, ok := New(Config{Provider: ProviderPassthrough, APIKey: "k"}).(Passthrough); !ok {
		t.Error("explicit passthrough should win")
	}
}
