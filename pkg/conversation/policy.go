package conversation

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/reasoning"
	"context"
	"fmt"
	"strings"
)

// LookupPolicy decides whether a query needs fresh web research.
type LookupPolicy interface {
	NeedsLookup(ctx context.Context, query string, history []consultation.Turn) bool
}

type AlwaysLookup struct{}

func (AlwaysLookup) NeedsLookup(context.Context, string, []consultation.Turn) bool { return true }

type NeverLookup struct{}

func (NeverLookup) NeedsLookup(context.Context, string, []consultation.Turn) bool { return false }

// LLMLookup asks the reasoning backend for {"needs_lookup": bool}. Any
// failure means no lookup.
type LLMLookup struct {
	Gateway *reasoning.Gateway
	Prompt  string // fmt template: recent history, query
	Logger  consultation.Logger
}

const decisionHistoryTurns = 3

func (p LLMLookup) NeedsLookup(ctx context.Context, query string, history []consultation.Turn) bool {
	if len(history) > decisionHistoryTurns {
		history = history[len(history)-decisionHistoryTurns:]
	}
	var sb strings.Builder
	for _, t := range history {
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Text)
	}

	var decision struct {
		NeedsLookup bool `json:"needs_lookup"`
	}
	err := p.Gateway.CompleteInto(ctx, reasoning.Request{
		Prompt: fmt.Sprintf(p.Prompt, strings.TrimSpace(sb.String()), query),
		Shape:  reasoning.ShapeObject,
	}, &decision)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn(logModule, "Lookup decision failed, skipping lookup", map[string]interface{}{"error": err.Error()})
		}
		return false
	}
	return decision.NeedsLookup
}

// PolicyByName maps a config value to a policy.
func PolicyByName(name string, gateway *reasoning.Gateway, prompt string, logger consultation.Logger) (LookupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "always":
		return AlwaysLookup{}, nil
	case "never":
		return NeverLookup{}, nil
	case "llm":
		if gateway == nil {
			return nil, fmt.Errorf("llm lookup policy requires a gateway")
		}
		return LLMLookup{Gateway: gateway, Prompt: prompt, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown lookup policy: %s", name)
	}
}
