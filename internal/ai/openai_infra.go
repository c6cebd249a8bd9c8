package ai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Vovarama1992/voice_mail/internal/config"
	"github.com/Vovarama1992/voice_mail/internal/datauri"
)

type OpenAIClient struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAIClient(cfg config.OpenAIConfig, language string) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.ChatModel
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(oc),
		model:    model,
		language: language,
	}
}

// API exposes the underlying client for the TTS synthesizer.
func (c *OpenAIClient) API() *openai.Client {
	return c.client
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// SpeechToText sends the clip to Whisper. The file name only tells the API
// which decoder to use.
func (c *OpenAIClient) SpeechToText(ctx context.Context, audio []byte, mime string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "clip." + datauri.Extension(mime),
		Reader:   bytes.NewReader(audio),
		Language: c.language,
	})
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
