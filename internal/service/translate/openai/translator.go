// Package openai translates text with an OpenAI chat model.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"course-localization-service/internal/language"
	"course-localization-service/internal/service/translate"
)

// ChatClient is the subset of the OpenAI client used for translation.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Translator implements translate.Translator.
type Translator struct {
	client ChatClient
	model  string
	source string
}

// New creates a translator using apiKey. model defaults to GPT-4o mini.
func New(apiKey, model, source string) *Translator {
	return NewWithClient(openai.NewClient(apiKey), model, source)
}

// NewWithClient creates a translator over an existing chat client.
func NewWithClient(client ChatClient, model, source string) *Translator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Translator{client: client, model: model, source: source}
}

func (t *Translator) request(text, targetLanguage string) openai.ChatCompletionRequest {
	target := language.DisplayName(targetLanguage)
	system := fmt.Sprintf("You translate lecture transcripts into %s. Reply with the translation only, without notes or quotes.", target)
	if t.source != "" {
		system = fmt.Sprintf("You translate lecture transcripts from %s into %s. Reply with the translation only, without notes or quotes.",
			language.DisplayName(t.source), target)
	}
	return openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	}
}

// Translate implements translate.Translator.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, t.request(text, targetLanguage))
	if err != nil {
		return "", fmt.Errorf("chat completion for %s: %w", targetLanguage, err)
	}
	if len(resp.Choices) == 0 {
		return "", translate.ErrEmptyResult
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", translate.ErrEmptyResult
	}
	return out, nil
}
