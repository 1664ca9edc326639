package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"course-localization-service/internal/service/translate"
)

type fakeChat struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func reply(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func TestTranslate(t *testing.T) {
	chat := &fakeChat{resp: reply("  halo dunia \n")}
	tr := NewWithClient(chat, "", "en")

	got, err := tr.Translate(context.Background(), "hello world", "id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "halo dunia" {
		t.Errorf("expected trimmed translation, got %q", got)
	}
	if chat.req.Model != openai.GPT4oMini {
		t.Errorf("expected default model, got %s", chat.req.Model)
	}
	if len(chat.req.Messages) != 2 || chat.req.Messages[1].Content != "hello world" {
		t.Fatalf("unexpected messages: %+v", chat.req.Messages)
	}
	if !strings.Contains(chat.req.Messages[0].Content, "Indonesian") {
		t.Errorf("expected target language name in prompt, got %q", chat.req.Messages[0].Content)
	}
	if !strings.Contains(chat.req.Messages[0].Content, "English") {
		t.Errorf("expected source language name in prompt, got %q", chat.req.Messages[0].Content)
	}
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChat
		want error
	}{
		{"no choices", &fakeChat{}, translate.ErrEmptyResult},
		{"blank content", &fakeChat{resp: reply("   ")}, translate.ErrEmptyResult},
		{"api error", &fakeChat{err: errors.New("rate limited")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithClient(tt.chat, "gpt-4o", "").Translate(context.Background(), "hi", "hi")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
