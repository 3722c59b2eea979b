package gemini

import (
	"ai-consultation-be/pkg/llm"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiParts struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inline_data,omitempty"`
}

type GeminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type GeminiContent struct {
	Parts []*GeminiParts `json:"parts"`
	Role  string         `json:"role,omitempty"`
}

type GeminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type GeminiRequest struct {
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	Contents          []*GeminiContent        `json:"contents"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiCandidate struct {
	Content      *GeminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type GeminiResponse struct {
	Candidates []*GeminiCandidate `json:"candidates"`
}

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"
)

type GeminiProvider struct {
	apiKey   string
	baseURL  string
	model    string
	defaults llm.Options
	client   *http.Client
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, baseURL, model string, defaults llm.Options) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		defaults: defaults,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(g.defaults, options...)
	model := g.model
	if opts.Model != "" {
		model = opts.Model
	}

	system, rest := llm.SplitSystem(history)

	payload := GeminiRequest{
		Contents: make([]*GeminiContent, 0, len(rest)),
		GenerationConfig: &GeminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	if opts.JSON {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}
	if system != "" {
		payload.SystemInstruction = &GeminiContent{Parts: []*GeminiParts{{Text: system}}}
	}

	for _, msg := range rest {
		role := ChatMessageRoleUser
		if msg.Role == llm.RoleAssistant {
			role = ChatMessageRoleModel
		}
		content := &GeminiContent{Role: role}
		for _, att := range msg.Attachments {
			content.Parts = append(content.Parts, &GeminiParts{InlineData: &GeminiInlineData{
				MimeType: att.MimeType,
				Data:     base64.StdEncoding.EncodeToString(att.Data),
			}})
		}
		content.Parts = append(content.Parts, &GeminiParts{Text: msg.Content})
		payload.Contents = append(payload.Contents, content)
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var geminiRes GeminiResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", err
	}

	if len(geminiRes.Candidates) == 0 || geminiRes.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range geminiRes.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}
