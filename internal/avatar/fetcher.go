package avatar

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"
	"time"
)

// maxCached bounds the in-memory avatar cache. Old entries are evicted
// arbitrarily once the bound is hit; avatars are cosmetic and refetchable.
const maxCached = 128

// Fetcher downloads and decodes sender avatars, caching decoded images by URL.
type Fetcher struct {
	http *http.Client

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewFetcher creates an avatar fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: make(map[string]image.Image),
	}
}

// Fetch returns the decoded avatar image for the given URL. Errors indicate
// fetch or decode failure; callers fall back to a default icon.
func (f *Fetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("no avatar url")
	}

	f.mu.Lock()
	if img, ok := f.cache[url]; ok {
		f.mu.Unlock()
		return img, nil
	}
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("avatar request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatar fetch: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("avatar decode: %w", err)
	}

	f.mu.Lock()
	if len(f.cache) >= maxCached {
		for k := range f.cache {
			delete(f.cache, k)
			break
		}
	}
	f.cache[url] = img
	f.mu.Unlock()

	return img, nil
}
