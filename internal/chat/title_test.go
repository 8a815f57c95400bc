package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"convoflow-backend/internal/llm"
)

func TestTitleForConversation(t *testing.T) {
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: "Planning a trip to Kyoto"}},
	}}
	s := NewSynthesizer(provider, "title-model")

	got := s.TitleForConversation(context.Background(), "help me plan a trip to Kyoto")
	if got != "Planning a trip to Kyoto" {
		t.Errorf("title = %q", got)
	}

	provider.mu.Lock()
	req := provider.requests[0]
	provider.mu.Unlock()
	if req.Model != "title-model" {
		t.Errorf("model = %q", req.Model)
	}
}

func TestTitleSanitization(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strips double quotes", `"Trip Planning"`, "Trip Planning"},
		{"strips colons", "Trip: Kyoto Edition", "Trip Kyoto Edition"},
		{"trims whitespace", "  Trip Planning \n", "Trip Planning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeTitle(tt.raw); got != tt.want {
				t.Errorf("sanitizeTitle(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTitleTruncatedToLimit(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := sanitizeTitle(long)
	if len(got) > maxTitleLength {
		t.Errorf("sanitized title is %d chars, limit is %d", len(got), maxTitleLength)
	}
}

func TestTitleTruncationKeepsValidUTF8(t *testing.T) {
	// A multi-byte rune straddling the length limit must not be split.
	inputs := []string{
		strings.Repeat("a", maxTitleLength-1) + "é",
		strings.Repeat("a", maxTitleLength) + "日本語のタイトル",
		strings.Repeat("é", maxTitleLength),
	}
	for _, in := range inputs {
		got := sanitizeTitle(in)
		if !utf8.ValidString(got) {
			t.Errorf("sanitizeTitle produced invalid UTF-8 for input of %d bytes: %q", len(in), got)
		}
		if len(got) > maxTitleLength {
			t.Errorf("sanitized title is %d bytes, limit is %d", len(got), maxTitleLength)
		}
	}
}

func TestTitleFallsBackOnProviderError(t *testing.T) {
	provider := &scriptedProvider{completeErr: errors.New("provider down")}
	s := NewSynthesizer(provider, "title-model")

	if got := s.TitleForConversation(context.Background(), "hello"); got != FallbackConversationTitle {
		t.Errorf("conversation fallback = %q", got)
	}
	if got := s.TitleForSnippet(context.Background(), "hello"); got != FallbackSnippetTitle {
		t.Errorf("snippet fallback = %q", got)
	}
}

func TestTitleFallsBackOnEmptyInput(t *testing.T) {
	provider := &scriptedProvider{}
	s := NewSynthesizer(provider, "title-model")

	if got := s.TitleForConversation(context.Background(), "   "); got != FallbackConversationTitle {
		t.Errorf("title = %q", got)
	}
	if provider.callCount() != 0 {
		t.Errorf("no model call expected for empty input, got %d", provider.callCount())
	}
}

func TestTitleFallsBackOnEmptyCompletion(t *testing.T) {
	provider := &scriptedProvider{responses: [][]llm.CompletionChunk{
		{{Text: `""`}},
	}}
	s := NewSynthesizer(provider, "title-model")

	if got := s.TitleForSnippet(context.Background(), "some message"); got != FallbackSnippetTitle {
		t.Errorf("title = %q", got)
	}
}
