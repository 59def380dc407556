package storage

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"
)

// HTTPFetcherConfig tunes the HTTP fetcher
type HTTPFetcherConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries
	Backoff time.Duration
	// MaxBytes caps the decoded payload; zero means unlimited
	MaxBytes int64
	// MaxPixels caps width*height; zero means unlimited
	MaxPixels int64
}

// DefaultHTTPFetcherConfig returns the production settings
func DefaultHTTPFetcherConfig() HTTPFetcherConfig {
	return HTTPFetcherConfig{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		Backoff:     time.Second,
		MaxBytes:    50 * 1024 * 1024,
		MaxPixels:   DefaultMaxImagePixels,
	}
}

// HTTPImageFetcher implements ImageFetcher over HTTP(S) with retries on
// transient failures
type HTTPImageFetcher struct {
	client *http.Client
	cfg    HTTPFetcherConfig
}

// NewHTTPImageFetcher creates an HTTP image fetcher with default settings
func NewHTTPImageFetcher() ImageFetcher {
	return NewHTTPImageFetcherWithConfig(DefaultHTTPFetcherConfig())
}

// NewHTTPImageFetcherWithConfig creates an HTTP image fetcher
func NewHTTPImageFetcherWithConfig(cfg HTTPFetcherConfig) *HTTPImageFetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	// Connection pooling sized for single image downloads
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/gif, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "blur-effect-go/1.0")

	var lastErr error
	for attempt := 0; attempt < h.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, time.Duration(attempt)*h.cfg.Backoff); err != nil {
				return nil, err
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return h.decode(resp)
		}

		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("client error: status code %d: %w", resp.StatusCode, ErrImageNotFound)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// 4xx client errors are non-retryable
			return nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
		default:
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("unknown error")
	}
	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.cfg.MaxAttempts, lastErr)
}

func (h *HTTPImageFetcher) decode(resp *http.Response) (image.Image, error) {
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if h.cfg.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, h.cfg.MaxBytes)
	}
	img, _, err := DecodeImageLimited(body, h.cfg.MaxPixels)
	return img, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
