// Package figma implements the tracker.Provider interface against the
// Figma REST API (or any server speaking the same protocol).
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"copydeck/internal/config"
	"copydeck/internal/tracker"
)

const tokenHeader = "X-Figma-Token"

// Client talks to the design file API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  tracker.Logger
}

var _ tracker.Provider = (*Client)(nil)

// NewClient creates a provider client from configuration.
func NewClient(cfg config.ProviderConfig, logger tracker.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultProviderBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultTimeoutSeconds) * time.Second
	}
	if logger == nil {
		logger = &tracker.NopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchFile retrieves the full document tree and style registry for a file.
func (c *Client) FetchFile(ctx context.Context, fileKey, token string) (*tracker.File, error) {
	endpoint := fmt.Sprintf("%s/v1/files/%s", c.baseURL, url.PathEscape(fileKey))

	var file tracker.File
	if err := c.getJSON(ctx, endpoint, token, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// imagesResponse is the render endpoint's payload.
type imagesResponse struct {
	Err    string            `json:"err"`
	Images map[string]string `json:"images"`
}

// FetchPreviewImages renders PNG previews for the given node ids at 1x
// scale. An empty id list returns an empty map without a remote call.
func (c *Client) FetchPreviewImages(ctx context.Context, fileKey, token string, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("format", "png")
	q.Set("scale", "1")
	endpoint := fmt.Sprintf("%s/v1/images/%s?%s", c.baseURL, url.PathEscape(fileKey), q.Encode())

	var resp imagesResponse
	if err := c.getJSON(ctx, endpoint, token, &resp); err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, &tracker.ProviderError{Status: http.StatusBadGateway, Message: resp.Err}
	}
	if resp.Images == nil {
		return map[string]string{}, nil
	}
	return resp.Images, nil
}

// DownloadImage streams a rendered image. Render URLs are pre-signed,
// so no token header is sent.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building image request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("downloading image: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, &tracker.ProviderError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("image download failed: %s", resp.Status),
		}
	}
	return resp.Body, resp.ContentLength, nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
// Non-2xx responses become a ProviderError carrying the upstream status.
func (c *Client) getJSON(ctx context.Context, endpoint, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set(tokenHeader, token)

	c.logger.Debug("provider request", "url", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return &tracker.ProviderError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding provider response: %w", err)
	}
	return nil
}
