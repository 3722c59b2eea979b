// Package ocr is a Google Cloud Vision text-detection client.
package ocr

import (
	"ai-consultation-be/pkg/extraction"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://vision.googleapis.com/v1"
	featureType    = "DOCUMENT_TEXT_DETECTION"
	pagesPerCall   = 5 // files:annotate sync limit
	MaxPages       = 20
)

type feature struct {
	Type string `json:"type"`
}

type imageRequest struct {
	Image    struct{ Content string `json:"content"` } `json:"image"`
	Features []feature                               `json:"features"`
}

type fileRequest struct {
	InputConfig struct {
		Content  string `json:"content"`
		MimeType string `json:"mimeType"`
	} `json:"inputConfig"`
	Features []feature `json:"features"`
	Pages    []int     `json:"pages"`
}

type status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateResponse struct {
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	Error   *status `json:"error"`
	Context *struct {
		PageNumber int `json:"pageNumber"`
	} `json:"context"`
}

type imagesResponse struct {
	Responses []annotateResponse `json:"responses"`
}

type filesResponse struct {
	Responses []struct {
		Responses  []annotateResponse `json:"responses"`
		TotalPages int                `json:"totalPages"`
		Error      *status            `json:"error"`
	} `json:"responses"`
}

// VisionClient calls images:annotate and files:annotate with an API key.
type VisionClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ extraction.OCR = &VisionClient{}

func NewVisionClient(apiKey string) *VisionClient {
	return &VisionClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client somewhere else (tests, proxies).
func (v *VisionClient) WithBaseURL(baseURL string) *VisionClient {
	v.baseURL = strings.TrimRight(baseURL, "/")
	return v
}

func (v *VisionClient) ImageText(ctx context.Context, data []byte, _ string) (string, error) {
	req := imageRequest{Features: []feature{{Type: featureType}}}
	req.Image.Content = base64.StdEncoding.EncodeToString(data)

	var res imagesResponse
	if err := v.post(ctx, "images:annotate", map[string]interface{}{"requests": []imageRequest{req}}, &res); err != nil {
		return "", err
	}
	if len(res.Responses) == 0 {
		return "", fmt.Errorf("vision returned no responses")
	}
	r := res.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}
	return r.FullTextAnnotation.Text, nil
}

// DocumentPages OCRs a PDF or TIFF page by page. A page-level error is kept on
// that page and does not fail the call.
func (v *VisionClient) DocumentPages(ctx context.Context, data []byte, mimeType string) ([]extraction.PageResult, error) {
	content := base64.StdEncoding.EncodeToString(data)
	var pages []extraction.PageResult

	total := pagesPerCall
	for first := 1; first <= total && first <= MaxPages; first += pagesPerCall {
		req := fileRequest{Features: []feature{{Type: featureType}}}
		req.InputConfig.Content = content
		req.InputConfig.MimeType = mimeType
		for p := first; p < first+pagesPerCall && p <= MaxPages; p++ {
			req.Pages = append(req.Pages, p)
		}

		var res filesResponse
		if err := v.post(ctx, "files:annotate", map[string]interface{}{"requests": []fileRequest{req}}, &res); err != nil {
			if len(pages) > 0 {
				for _, p := range req.Pages {
					if p <= total {
						pages = append(pages, extraction.PageResult{Page: p, Err: err})
					}
				}
				continue
			}
			return nil, err
		}
		if len(res.Responses) == 0 {
			return nil, fmt.Errorf("vision returned no responses")
		}
		batch := res.Responses[0]
		if batch.Error != nil {
			return nil, fmt.Errorf("vision error %d: %s", batch.Error.Code, batch.Error.Message)
		}
		if batch.TotalPages > 0 {
			total = batch.TotalPages
		}

		for i, r := range batch.Responses {
			page := first + i
			if r.Context != nil && r.Context.PageNumber > 0 {
				page = r.Context.PageNumber
			}
			switch {
			case r.Error != nil:
				pages = append(pages, extraction.PageResult{Page: page, Err: fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)})
			case r.FullTextAnnotation != nil:
				pages = append(pages, extraction.PageResult{Page: page, Text: r.FullTextAnnotation.Text})
			default:
				pages = append(pages, extraction.PageResult{Page: page})
			}
		}
	}
	return pages, nil
}

func (v *VisionClient) post(ctx context.Context, method string, payload interface{}, out interface{}) error {
	if v.apiKey == "" {
		return fmt.Errorf("vision API key is not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s?key=%s", v.baseURL, method, v.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("status error, got status %d. with response body %s", res.StatusCode, string(resBody))
	}
	return json.Unmarshal(resBody, out)
}
