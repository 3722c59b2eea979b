package research

import (
	"ai-consultation-be/pkg/consultation"
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	logModule = "RESEARCH"

	DefaultResultLimit = 5
	minEnrichedChars   = 100
	maxEnrichedChars   = 5000
	enrichConcurrency  = 4
)

// Searcher is the web-search backend. Findings come back in the backend's
// own relevance order.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]consultation.ResearchFinding, error)
}

// Enricher fetches the readable text behind a finding's URL.
type Enricher interface {
	Extract(ctx context.Context, url string) (string, error)
}

type Augmenter struct {
	searcher Searcher
	enricher Enricher
	logger   consultation.Logger
}

type Option func(*Augmenter)

// WithEnricher replaces search snippets with page text when extraction succeeds.
func WithEnricher(e Enricher) Option {
	return func(a *Augmenter) { a.enricher = e }
}

func WithLogger(l consultation.Logger) Option {
	return func(a *Augmenter) { a.logger = l }
}

func NewAugmenter(searcher Searcher, opts ...Option) *Augmenter {
	a := &Augmenter{searcher: searcher, logger: consultation.NopLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Research runs one search per topic in parallel and returns the combined
// findings in topic order, backend rank preserved within each topic. URLs are
// de-duplicated keeping the first occurrence, then re-numbered 1..n.
//
// Zero results is not an error. ErrUpstreamUnavailable is returned only when
// every topic's search failed.
func (a *Augmenter) Research(ctx context.Context, topics []string, limit int) ([]consultation.ResearchFinding, error) {
	ctx, span := otel.Tracer("research").Start(ctx, "augmenter.research")
	defer span.End()

	topics = consultation.DedupeSymptoms(topics)
	if len(topics) == 0 {
		return []consultation.ResearchFinding{}, nil
	}
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	perTopic := limit / len(topics)
	if perTopic < 1 {
		perTopic = 1
	}
	span.SetAttributes(attribute.Int("research.topics", len(topics)), attribute.Int("research.per_topic", perTopic))

	start := time.Now()
	perTopicResults := make([][]consultation.ResearchFinding, len(topics))
	failures := make([]error, len(topics))

	g, gctx := errgroup.WithContext(ctx)
	for i, topic := range topics {
		i, topic := i, topic
		g.Go(func() error {
			found, err := a.searcher.Search(gctx, topic, perTopic)
			if err != nil {
				failures[i] = err
				a.logger.Warn(logModule, "Search failed for topic", map[string]interface{}{
					"topic": topic,
					"error": err.Error(),
				})
				return nil
			}
			if len(found) > perTopic {
				found = found[:perTopic]
			}
			perTopicResults[i] = found
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	var lastErr error
	for _, err := range failures {
		if err != nil {
			failed++
			lastErr = err
		}
	}
	if failed == len(topics) {
		return nil, fmt.Errorf("%w: all %d searches failed: %v", consultation.ErrUpstreamUnavailable, failed, lastErr)
	}

	findings := merge(perTopicResults)
	if a.enricher != nil && len(findings) > 0 {
		a.enrich(ctx, findings)
	}

	a.logger.Info(logModule, "Research completed", map[string]interface{}{
		"topics":     len(topics),
		"failed":     failed,
		"findings":   len(findings),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	span.SetAttributes(attribute.Int("research.findings", len(findings)))
	return findings, nil
}

// merge flattens per-topic results in topic order, dropping repeated URLs.
func merge(perTopic [][]consultation.ResearchFinding) []consultation.ResearchFinding {
	seen := make(map[string]struct{})
	out := make([]consultation.ResearchFinding, 0)
	for _, found := range perTopic {
		for _, f := range found {
			key := strings.TrimSpace(f.SourceURL)
			if key != "" {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			f.Rank = len(out) + 1
			out = append(out, f)
		}
	}
	return out
}

// enrich swaps snippets for extracted page text. Failures keep the snippet.
func (a *Augmenter) enrich(ctx context.Context, findings []consultation.ResearchFinding) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for i := range findings {
		i, url := i, findings[i].SourceURL
		if url == "" {
			continue
		}
		g.Go(func() error {
			text, err := a.enricher.Extract(gctx, url)
			if err != nil {
				a.logger.Debug(logModule, "Page extraction skipped", map[string]interface{}{"url": url, "error": err.Error()})
				return nil
			}
			text = strings.Join(strings.Fields(text), " ")
			if len(text) < minEnrichedChars {
				return nil
			}
			findings[i].Snippet = consultation.Clip(text, maxEnrichedChars)
			return nil
		})
	}
	_ = g.Wait()
}

// Digest renders findings as prompt context, capped at maxChars.
func Digest(findings []consultation.ResearchFinding, maxChars int) string {
	var sb strings.Builder
	for _, f := range findings {
		entry := fmt.Sprintf("[%d] %s (%s)\n%s\n\n", f.Rank, f.Title, f.SourceURL, f.Snippet)
		if maxChars > 0 && sb.Len()+len(entry) > maxChars {
			sb.WriteString(consultation.Clip(entry, maxChars-sb.Len()))
			break
		}
		sb.WriteString(entry)
	}
	return strings.TrimSpace(sb.String())
}
