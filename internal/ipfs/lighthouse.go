// Package ipfs pins content through the Lighthouse storage API and derives
// gateway links for it.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultUploadURL = "https://node.lighthouse.storage/api/v0/add"

	// GatewayOrigin is the fixed prefix of every view URL.
	GatewayOrigin = "https://gateway.lighthouse.storage/ipfs/"

	maxErrorBody = 1 << 10
)

// UploadResult is what one successful upload produces.
type UploadResult struct {
	ContentID string `json:"content_id"`
	ViewURL   string `json:"view_url"`
	Size      int    `json:"size"`
}

// GatewayURL returns the view URL for a content identifier.
func GatewayURL(contentID string) string {
	return GatewayOrigin + contentID
}

// addResponse is the body returned by the Lighthouse add endpoint.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// HTTPStatusError captures non-2xx responses from the pinning service.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("ipfs: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client uploads payloads to Lighthouse. There is no retry: a failed upload
// is reported to the caller as is.
type Client struct {
	uploadURL  string
	httpClient *http.Client
	keys       KeySource
	logger     *zap.Logger
}

type Option func(*Client)

func WithUploadURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.uploadURL = u
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every upload request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("ipfs: key source must not be nil")
	}
	c := &Client{
		uploadURL:  DefaultUploadURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		keys:       keys,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type uploadOptions struct {
	progress io.Writer
}

type UploadOption func(*uploadOptions)

// WithProgress receives every byte of the request body as it is sent.
func WithProgress(w io.Writer) UploadOption {
	return func(o *uploadOptions) {
		o.progress = w
	}
}

// Upload pins payload under the given file name and returns its content
// identifier and gateway URL.
func (c *Client) Upload(ctx context.Context, payload []byte, name string, opts ...UploadOption) (UploadResult, error) {
	var o uploadOptions
	for _, opt := range opts {
		opt(&o)
	}

	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return UploadResult{}, err
	}
	if name == "" {
		name = "index.html"
	}

	body, contentType, err := multipartBody(payload, name)
	if err != nil {
		return UploadResult{}, fmt.Errorf("ipfs: build request body: %w", err)
	}
	size := body.Len()

	var reader io.Reader = body
	if o.progress != nil {
		reader = io.TeeReader(body, o.progress)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, reader)
	if err != nil {
		return UploadResult{}, fmt.Errorf("ipfs: build request: %w", err)
	}
	req.ContentLength = int64(size)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+key)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("ipfs: upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return UploadResult{}, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			URL:        c.uploadURL,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, fmt.Errorf("ipfs: decode response: %w", err)
	}
	if strings.TrimSpace(out.Hash) == "" {
		return UploadResult{}, errors.New("ipfs: response carried no content hash")
	}

	c.logger.Info("Uploaded content to IPFS",
		zap.String("cid", out.Hash),
		zap.String("name", name),
		zap.Int("bytes", len(payload)),
		zap.Duration("elapsed", time.Since(start)))

	return UploadResult{
		ContentID: out.Hash,
		ViewURL:   GatewayURL(out.Hash),
		Size:      len(payload),
	}, nil
}

// UploadText pins UTF-8 text as a plain file.
func (c *Client) UploadText(ctx context.Context, text string, opts ...UploadOption) (UploadResult, error) {
	return c.Upload(ctx, []byte(text), "text.txt", opts...)
}

func multipartBody(payload []byte, name string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
