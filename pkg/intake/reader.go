// Package intake turns uploaded audio and images into concern text.
package intake

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/llm"
	"ai-consultation-be/pkg/reasoning"
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ImageTypes = map[string]bool{
		"image/png":  true,
		"image/jpeg": true,
		"image/jpg":  true,
		"image/webp": true,
	}
	AudioTypes = map[string]bool{
		"audio/mpeg":  true,
		"audio/mp3":   true,
		"audio/wav":   true,
		"audio/x-wav": true,
		"audio/flac":  true,
		"audio/ogg":   true,
		"audio/webm":  true,
		"audio/mp4":   true,
		"audio/m4a":   true,
		"audio/x-m4a": true,
	}
)

// Media is one uploaded intake file.
type Media struct {
	Data     []byte
	MimeType string
	Filename string
}

// Result is the text recovered from a Media upload.
type Result struct {
	Extracted         consultation.ExtractedText
	VisualDescription string
}

// Prompts holds the wording sent to the reasoning backend.
type Prompts struct {
	Describe  string
	Summarize string // fmt verb %s receives the description
}

// Reader converts audio to a transcript and images to a visual description.
type Reader struct {
	transcriber Transcriber
	gateway     *reasoning.Gateway
	prompts     Prompts
}

func NewReader(transcriber Transcriber, gateway *reasoning.Gateway, prompts Prompts) *Reader {
	return &Reader{transcriber: transcriber, gateway: gateway, prompts: prompts}
}

// Read dispatches on the media type. Unknown types fail with
// ErrUnsupportedFormat.
func (r *Reader) Read(ctx context.Context, m Media) (Result, error) {
	if len(m.Data) == 0 {
		return Result{}, consultation.ErrEmptyInput
	}
	mimeType := strings.ToLower(strings.TrimSpace(m.MimeType))
	switch {
	case ImageTypes[mimeType]:
		return r.readImage(ctx, m.Data, mimeType)
	case AudioTypes[mimeType]:
		return r.readAudio(ctx, m.Data, mimeType)
	}
	return Result{}, fmt.Errorf("%w: %q is not an intake image or audio type", consultation.ErrUnsupportedFormat, mimeType)
}

func (r *Reader) readAudio(ctx context.Context, data []byte, mimeType string) (Result, error) {
	if r.transcriber == nil {
		return Result{}, errors.New("no transcriber configured")
	}
	text, err := r.transcriber.Transcribe(ctx, data, mimeType)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", consultation.ErrUpstreamUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("%w: audio transcription is empty", consultation.ErrExtractionFailed)
	}
	return Result{Extracted: consultation.ExtractedText{
		Text:   "User audio transcription: " + text,
		Format: consultation.FormatAudio,
	}}, nil
}

// readImage asks for a descriptive (non-diagnostic) account of the image and
// then condenses it to one sentence. A failed summary falls back to the full
// description.
func (r *Reader) readImage(ctx context.Context, data []byte, mimeType string) (Result, error) {
	description, err := r.gateway.CompleteText(ctx, reasoning.Request{
		Prompt:      r.prompts.Describe,
		Attachments: []llm.Attachment{{MimeType: mimeType, Data: data}},
	})
	if err != nil {
		return Result{}, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return Result{}, fmt.Errorf("%w: image description is empty", consultation.ErrExtractionFailed)
	}

	out := Result{VisualDescription: description, Extracted: consultation.ExtractedText{Format: consultation.FormatImage}}

	summary, err := r.gateway.CompleteText(ctx, reasoning.Request{Prompt: fmt.Sprintf(r.prompts.Summarize, description)})
	summary = strings.TrimSpace(summary)
	if err != nil || summary == "" {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		out.Extracted.Text = "Visual description from image:\n" + description
		out.Extracted.Warnings = []consultation.Warning{{
			Code:    consultation.WarnImageSummaryFallback,
			Message: "could not summarize the visual description; using it directly",
		}}
		return out, nil
	}
	out.Extracted.Text = "Image analysis summary: " + summary
	return out, nil
}
