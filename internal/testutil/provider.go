package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"copydeck/internal/tracker"
)

// StubProvider is an in-memory tracker.Provider for tests. Configure
// the file tree and image URLs, then inspect the recorded calls.
type StubProvider struct {
	mu sync.Mutex

	// File is returned by FetchFile when FileErr is nil.
	File    *tracker.File
	FileErr error

	// Images maps node id to image URL for FetchPreviewImages.
	Images    map[string]string
	ImagesErr error

	// ImageData maps image URL to raw bytes for DownloadImage.
	ImageData map[string][]byte

	FetchFileCalls int
	FetchedTokens  []string
	PreviewIDCalls [][]string
	DownloadedURLs []string
}

var _ tracker.Provider = (*StubProvider)(nil)

func (p *StubProvider) FetchFile(_ context.Context, fileKey, token string) (*tracker.File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.FetchFileCalls++
	p.FetchedTokens = append(p.FetchedTokens, token)
	if p.FileErr != nil {
		return nil, p.FileErr
	}
	if p.File == nil {
		return nil, fmt.Errorf("no file configured for key %s", fileKey)
	}
	return p.File, nil
}

func (p *StubProvider) FetchPreviewImages(_ context.Context, _, _ string, ids []string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.PreviewIDCalls = append(p.PreviewIDCalls, append([]string{}, ids...))
	if p.ImagesErr != nil {
		return nil, p.ImagesErr
	}
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	out := map[string]string{}
	for _, id := range ids {
		if url, ok := p.Images[id]; ok {
			out[id] = url
		}
	}
	return out, nil
}

func (p *StubProvider) DownloadImage(_ context.Context, url string) (io.ReadCloser, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.DownloadedURLs = append(p.DownloadedURLs, url)
	data, ok := p.ImageData[url]
	if !ok {
		return nil, 0, &tracker.ProviderError{Status: 404, Message: "image not found: " + url}
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}
