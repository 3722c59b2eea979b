package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-trafilatura"
	cache "github.com/patrickmn/go-cache"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; ConsultationBot/1.0)"
	maxBodySize      = 5 * 1024 * 1024 // 5MB
)

// PageExtractor downloads an HTML page and returns its main text.
type PageExtractor struct {
	client *http.Client
	cache  *cache.Cache
}

func NewPageExtractor() *PageExtractor {
	return &PageExtractor{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  cache.New(1*time.Hour, 10*time.Minute), // Cache for 1 hour
	}
}

func (p *PageExtractor) Extract(ctx context.Context, urlStr string) (string, error) {
	parsedURL, err := validateURL(urlStr)
	if err != nil {
		return "", err
	}

	if cached, found := p.cache.Get(urlStr); found {
		return cached.(string), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxBodySize {
		return "", fmt.Errorf("page exceeds %d bytes", maxBodySize)
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{OriginalURL: parsedURL})
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}
	if result == nil || result.ContentText == "" {
		return "", fmt.Errorf("no content extracted from page")
	}

	p.cache.Set(urlStr, result.ContentText, cache.DefaultExpiration)
	return result.ContentText, nil
}

// validateURL only allows public http(s) targets.
func validateURL(urlStr string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("only HTTP/HTTPS URLs are supported, got: %s", parsedURL.Scheme)
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	if hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1" {
		return nil, fmt.Errorf("localhost URLs are not allowed")
	}
	for _, prefix := range []string{"192.168.", "10.", "169.254.", "172.16.", "172.17.", "172.18.", "172.19.",
		"172.20.", "172.21.", "172.22.", "172.23.", "172.24.", "172.25.", "172.26.", "172.27.",
		"172.28.", "172.29.", "172.30.", "172.31."} {
		if strings.HasPrefix(hostname, prefix) {
			return nil, fmt.Errorf("private IP addresses are not allowed")
		}
	}
	return parsedURL, nil
}
