package swagger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/conexa/sdkforge/internal/core/ports"
)

const (
	fetchTimeout = 30 * time.Second
	maxFetchSize = 5 * 1024 * 1024
)

// urlSuffixes are the derived variants tried after the caller's URL itself.
var urlSuffixes = []string{"/swagger.json", "/openapi.json", "/swagger.yaml", "/openapi.yaml"}

// Fetcher retrieves a remote Swagger/OpenAPI document, trying the given URL
// plus a fixed set of suffix variants; the first payload that parses as a
// spec-shaped document wins.
type Fetcher struct {
	logger *slog.Logger
	client *http.Client
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		logger: logger,
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("%w: unsupported URL scheme", domain.ErrInvalidSpec)
	}

	base := strings.TrimSuffix(rawURL, "/")
	candidates := make([]string, 0, len(urlSuffixes)+1)
	candidates = append(candidates, rawURL)
	for _, suffix := range urlSuffixes {
		candidates = append(candidates, base+suffix)
	}

	var lastErr error
	for _, candidate := range candidates {
		body, err := f.fetchOne(ctx, candidate)
		if err != nil {
			lastErr = err
			f.logger.Warn("spec fetch attempt failed", "url", candidate, "error", err)
			continue
		}

		if _, err := probeDocument(body); err != nil {
			lastErr = err
			continue
		}

		f.logger.Info("spec document fetched", "url", candidate, "bytes", len(body))
		return body, nil
	}

	return nil, fmt.Errorf("no valid Swagger/OpenAPI document found at any URL variation: %w", lastErr)
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml, text/plain, */*")
	req.Header.Set("User-Agent", "sdkforge/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

var _ ports.DocumentFetcher = (*Fetcher)(nil)
