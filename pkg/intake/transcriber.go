package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber turns speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// WhisperTranscriber calls the OpenAI audio transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(apiKey, model string) *WhisperTranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{client: openai.NewClient(apiKey), model: model}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if w.client == nil {
		return "", errors.New("openai client not initialized")
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   bytes.NewReader(audio),
		FilePath: "speech" + audioExtension(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// The API infers the container from the file name.
func audioExtension(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	default:
		return ".mp3"
	}
}
