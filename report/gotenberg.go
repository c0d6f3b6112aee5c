// Package report talks to a Gotenberg instance to turn HTML documents into PDFs.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	convertHTMLPath = "/forms/chromium/convert/html"
	healthPath      = "/health"
	errorBodyLimit  = 4 << 10
)

// Page describes the paper layout in inches.
type Page struct {
	Width     float64
	Height    float64
	Margin    float64
	Landscape bool
}

// A4 is the layout used for order confirmations.
var A4 = Page{Width: 8.27, Height: 11.7, Margin: 0.4}

// UpstreamError is returned when Gotenberg answers with a non-2xx status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gotenberg: status %d: %s", e.Status, e.Body)
}

// Client converts HTML to PDF through Gotenberg's chromium route.
type Client struct {
	baseURL string
	http    *http.Client
	page    Page
}

// NewClient constructs a Client; a non-positive timeout falls back to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		page:    A4,
	}
}

// WithPage returns a copy of the client rendering with p.
func (c *Client) WithPage(p Page) *Client {
	cp := *c
	cp.page = p
	return &cp
}

// Ping reports whether Gotenberg considers itself healthy.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	var health struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(body, &health) == nil && health.Status != "" && health.Status != "up" {
		return fmt.Errorf("gotenberg: status %q", health.Status)
	}
	return nil
}

// RenderHTML uploads html as index.html and returns the converted PDF.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gotenberg: endpoint not configured")
	}
	payload, contentType, err := c.form(html)
	if err != nil {
		return nil, fmt.Errorf("gotenberg: build form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertHTMLPath, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

func (c *Client) form(html string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	file, err := mw.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(file, html); err != nil {
		return nil, "", err
	}
	margin := formatInches(c.page.Margin)
	fields := [][2]string{
		{"paperWidth", formatInches(c.page.Width)},
		{"paperHeight", formatInches(c.page.Height)},
		{"marginTop", margin},
		{"marginBottom", margin},
		{"marginLeft", margin},
		{"marginRight", margin},
		{"landscape", strconv.FormatBool(c.page.Landscape)},
		{"printBackground", "true"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return io.ReadAll(resp.Body)
}

func formatInches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
