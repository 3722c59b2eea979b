package report

import (
	"ai-consultation-be/pkg/consultation"
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns report markdown into a paginated document.
type Renderer interface {
	ToDocument(ctx context.Context, markdown string) ([]byte, error)
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>
        body {
            font-family: 'Segoe UI', Arial, sans-serif;
            line-height: 1.6;
            max-width: 800px;
            margin: 0 auto;
            padding: 40px 20px;
            color: #333;
        }
        h1, h2, h3 { color: #2c3e50; }
        h1 { border-bottom: 2px solid #2c3e50; padding-bottom: 8px; }
        hr { border: 0; border-top: 1px solid #ddd; margin: 24px 0; }
        em { color: #666; }
        table { border-collapse: collapse; width: 100%%; margin: 20px 0; }
        th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
    </style>
</head>
<body>
%s
</body>
</html>`

var markdownEngine = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToHTML converts markdown into a standalone styled page.
func ToHTML(markdown, title string) (string, error) {
	var body bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &body); err != nil {
		return "", errors.Join(consultation.ErrRenderingFailed, fmt.Errorf("convert markdown: %w", err))
	}
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), body.String()), nil
}

// ChromeRenderer prints the HTML form of the report through headless Chrome.
type ChromeRenderer struct {
	execPath string
	timeout  time.Duration
	title    string
	logger   consultation.Logger
}

var _ Renderer = &ChromeRenderer{}

// NewChromeRenderer uses the Chrome binary at execPath, or the one chromedp
// finds on PATH when execPath is empty.
func NewChromeRenderer(execPath string, timeout time.Duration, logger consultation.Logger) *ChromeRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = consultation.NopLogger{}
	}
	return &ChromeRenderer{execPath: execPath, timeout: timeout, title: "Consultation Report", logger: logger}
}

func (r *ChromeRenderer) ToDocument(ctx context.Context, markdown string) ([]byte, error) {
	htmlContent, err := ToHTML(markdown, r.title)
	if err != nil {
		return nil, err
	}

	pdf, err := r.print(ctx, htmlContent)
	if err != nil {
		r.logger.Error(logModule, "PDF rendering failed", map[string]interface{}{"error": err.Error()})
		return nil, errors.Join(consultation.ErrRenderingFailed, err)
	}
	if len(pdf) == 0 {
		return nil, errors.Join(consultation.ErrRenderingFailed, errors.New("empty pdf output"))
	}

	r.logger.Info(logModule, "PDF rendered", map[string]interface{}{"bytes": len(pdf)})
	return pdf, nil
}

func (r *ChromeRenderer) print(ctx context.Context, htmlContent string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.6).
				WithMarginBottom(0.6).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
