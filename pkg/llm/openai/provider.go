package openai

import (
	"ai-consultation-be/pkg/llm"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the OpenAI chat completion API.
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	defaults llm.Options
}

var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, baseURL, model string, defaults llm.Options) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		defaults: defaults,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if p.client == nil {
		return "", errors.New("openai client not initialized")
	}
	opts := llm.Apply(p.defaults, options...)
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		if len(m.Attachments) == 0 {
			oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
			continue
		}
		parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: m.Content}}
		for _, att := range m.Attachments {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", att.MimeType, base64.StdEncoding.EncodeToString(att.Data)),
				},
			})
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, MultiContent: parts})
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    oaMsgs,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}
