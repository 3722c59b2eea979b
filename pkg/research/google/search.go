package google

import (
	"ai-consultation-be/pkg/consultation"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultEndpoint = "https://www.googleapis.com/customsearch/v1"
	maxPerRequest   = 10
	userAgent       = "ConsultationBot/1.0"
)

type searchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CustomSearch queries the Google Custom Search JSON API.
type CustomSearch struct {
	apiKey   string
	engineID string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

func NewCustomSearch(apiKey, engineID string, ratePerSec float64) *CustomSearch {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	return &CustomSearch{
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// WithEndpoint points the client somewhere else (tests, proxies).
func (c *CustomSearch) WithEndpoint(endpoint string) *CustomSearch {
	c.endpoint = endpoint
	return c
}

func (c *CustomSearch) Search(ctx context.Context, query string, limit int) ([]consultation.ResearchFinding, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, fmt.Errorf("%w: search credentials are not configured", consultation.ErrUpstreamUnavailable)
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPerRequest {
		limit = maxPerRequest
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", consultation.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", consultation.ErrUpstreamUnavailable, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search status %d: %s", consultation.ErrUpstreamUnavailable, res.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %w", consultation.ErrUpstreamUnavailable, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: search error %d: %s", consultation.ErrUpstreamUnavailable, parsed.Error.Code, parsed.Error.Message)
	}

	findings := make([]consultation.ResearchFinding, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		findings = append(findings, consultation.ResearchFinding{
			Title:     item.Title,
			SourceURL: item.Link,
			Snippet:   item.Snippet,
			Rank:      len(findings) + 1,
		})
		if len(findings) == limit {
			break
		}
	}
	return findings, nil
}
