package consultation

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput          = errors.New("empty input")
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrPartialExtraction   = errors.New("partial extraction")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrPipelineStageFailed = errors.New("pipeline stage failed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrRenderingFailed     = errors.New("rendering failed")
)

// StageError annotates a pipeline failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %q failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is makes every StageError match ErrPipelineStageFailed.
func (e *StageError) Is(target error) bool {
	return target == ErrPipelineStageFailed
}

// StageFailed wraps err with the stage name. A nil err stays nil.
func StageFailed(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// FailedStage returns the stage name carried by err, if any.
func FailedStage(err error) (string, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Logger is the structured logging contract used across pkg components.
// internal/pkg/logger.ZapLogger satisfies it.
type Logger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, string, map[string]interface{}) {}
func (NopLogger) Info(string, string, map[string]interface{})  {}
func (NopLogger) Warn(string, string, map[string]interface{})  {}
func (NopLogger) Error(string, string, map[string]interface{}) {}
