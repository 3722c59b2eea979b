// Package llmtest provides a scripted llm.LLMProvider for tests.
package llmtest

import (
	"ai-consultation-be/pkg/llm"
	"context"
	"errors"
	"sync"
)

// Reply is one scripted answer. Err wins over Text.
type Reply struct {
	Text string
	Err  error
}

// Call records what the provider received.
type Call struct {
	History []llm.Message
	Options llm.Options
}

// Provider answers from Replies in order, or from Respond when set.
// Exhausting the script returns ErrExhausted.
type Provider struct {
	mu      sync.Mutex
	Replies []Reply
	Respond func(ctx context.Context, history []llm.Message, opts llm.Options) (string, error)
	Calls   []Call
}

var ErrExhausted = errors.New("llmtest: no scripted reply left")

var _ llm.LLMProvider = &Provider{}

func New(replies ...Reply) *Provider {
	return &Provider{Replies: replies}
}

// Texts is shorthand for a script of successful replies.
func Texts(texts ...string) *Provider {
	p := &Provider{}
	for _, t := range texts {
		p.Replies = append(p.Replies, Reply{Text: t})
	}
	return p
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{}, options...)

	p.mu.Lock()
	p.Calls = append(p.Calls, Call{History: append([]llm.Message(nil), history...), Options: opts})
	respond := p.Respond
	var next *Reply
	if respond == nil && len(p.Replies) > 0 {
		r := p.Replies[0]
		p.Replies = p.Replies[1:]
		next = &r
	}
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond != nil {
		return respond(ctx, history, opts)
	}
	if next == nil {
		return "", ErrExhausted
	}
	return next.Text, next.Err
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

// CallCount is safe for concurrent use.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastCall returns the most recent call, or a zero Call.
func (p *Provider) LastCall() Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return Call{}
	}
	return p.Calls[len(p.Calls)-1]
}
