package reasoning

import (
	"ai-consultation-be/pkg/consultation"
	"encoding/json"
	"fmt"
)

// Shape is the response form a caller asks for.
type Shape int

const (
	ShapeText Shape = iota
	ShapeObject
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "text"
	}
}

// Result is one of Structured, Text or Malformed.
type Result interface {
	isResult()
}

// Structured holds JSON that matched the requested shape.
type Structured struct {
	JSON     json.RawMessage
	Repaired bool
}

// Text is a free-text answer.
type Text struct {
	Text string
}

// Malformed carries the raw provider output that could not be parsed.
type Malformed struct {
	Raw    string
	Reason string
}

func (Structured) isResult() {}
func (Text) isResult()       {}
func (Malformed) isResult()  {}

// Decode unmarshals a Structured result into v. Any other variant, or JSON
// that does not fit v, yields ErrMalformedResponse.
func Decode(r Result, v interface{}) error {
	switch res := r.(type) {
	case Structured:
		if err := json.Unmarshal(res.JSON, v); err != nil {
			return fmt.Errorf("%w: %v", consultation.ErrMalformedResponse, err)
		}
		return nil
	case Malformed:
		return fmt.Errorf("%w: %s", consultation.ErrMalformedResponse, res.Reason)
	default:
		return fmt.Errorf("%w: expected structured result, got %T", consultation.ErrMalformedResponse, r)
	}
}

// TextOf returns the plain text of a Text result, or the raw JSON of a
// Structured one.
func TextOf(r Result) (string, bool) {
	switch res := r.(type) {
	case Text:
		return res.Text, true
	case Structured:
		return string(res.JSON), true
	default:
		return "", false
	}
}
