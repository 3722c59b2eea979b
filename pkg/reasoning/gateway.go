package reasoning

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/llm"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const logModule = "GATEWAY"

// Request is a single call to the reasoning backend.
type Request struct {
	System      string
	History     []llm.Message
	Prompt      string
	Attachments []llm.Attachment
	Shape       Shape
	Options     []llm.Option
}

// Gateway is the uniform call contract to the reasoning backend. It never
// retries; transient failures surface as ErrUpstreamUnavailable.
type Gateway struct {
	provider llm.LLMProvider
	logger   consultation.Logger
}

func NewGateway(provider llm.LLMProvider, logger consultation.Logger) *Gateway {
	if logger == nil {
		logger = consultation.NopLogger{}
	}
	return &Gateway{provider: provider, logger: logger}
}

// Complete sends the request and returns a tagged Result. Errors are reserved
// for transport failures and cancellation; unparseable output is Malformed.
func (g *Gateway) Complete(ctx context.Context, req Request) (Result, error) {
	ctx, span := otel.Tracer("reasoning").Start(ctx, "gateway.complete")
	defer span.End()
	span.SetAttributes(attribute.String("reasoning.shape", req.Shape.String()))

	history := make([]llm.Message, 0, len(req.History)+2)
	if req.System != "" {
		history = append(history, llm.Message{Role: llm.RoleSystem, Content: req.System})
	}
	history = append(history, req.History...)
	if req.Prompt != "" || len(req.Attachments) > 0 {
		history = append(history, llm.Message{Role: llm.RoleUser, Content: req.Prompt, Attachments: req.Attachments})
	}
	if len(history) == 0 {
		return nil, consultation.ErrEmptyInput
	}

	opts := append([]llm.Option(nil), req.Options...)
	if req.Shape != ShapeText {
		opts = append(opts, llm.WithJSON())
	}

	start := time.Now()
	raw, err := g.provider.Chat(ctx, history, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		g.logger.Warn(logModule, "Provider call failed", map[string]interface{}{
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("%w: %w", consultation.ErrUpstreamUnavailable, err)
	}

	if req.Shape == ShapeText {
		return Text{Text: raw}, nil
	}

	js, repaired, ok := parseShaped(raw, req.Shape)
	if !ok {
		span.SetAttributes(attribute.Bool("reasoning.malformed", true))
		g.logger.Warn(logModule, "Unparseable structured response", map[string]interface{}{
			"shape":   req.Shape.String(),
			"raw_len": len(raw),
		})
		return Malformed{Raw: raw, Reason: fmt.Sprintf("response is not a JSON %s", req.Shape)}, nil
	}
	if repaired {
		g.logger.Debug(logModule, "Repaired structured response", map[string]interface{}{"shape": req.Shape.String()})
	}
	span.SetAttributes(attribute.Bool("reasoning.repaired", repaired))
	return Structured{JSON: js, Repaired: repaired}, nil
}

// CompleteInto runs a structured request and decodes it into v.
// Malformed output yields ErrMalformedResponse.
func (g *Gateway) CompleteInto(ctx context.Context, req Request, v interface{}) error {
	if req.Shape == ShapeText {
		req.Shape = ShapeObject
	}
	res, err := g.Complete(ctx, req)
	if err != nil {
		return err
	}
	return Decode(res, v)
}

// CompleteText runs a free-text request.
func (g *Gateway) CompleteText(ctx context.Context, req Request) (string, error) {
	req.Shape = ShapeText
	res, err := g.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text, _ := TextOf(res)
	return text, nil
}
