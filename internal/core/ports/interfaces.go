package ports

import (
	"context"

	"github.com/conexa/sdkforge/internal/core/domain"
)

// CompletionRequest is the bounded prompt sent to the external analysis
// service. Content is already truncated by the caller.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionProvider abstracts the external text-completion service. It is
// constructed once at startup when credentials are configured; there is no
// lazy re-creation on first use.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DocumentFetcher retrieves a remote Swagger/OpenAPI document, trying the
// caller URL and a fixed set of suffix variants.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TextNormalizer turns raw uploaded bytes into a normalized text document.
type TextNormalizer interface {
	Normalize(data []byte, provider string) (domain.NormalizedDocument, error)
}

// SpecNormalizer turns a fetched spec payload into a normalized document.
type SpecNormalizer interface {
	Normalize(data []byte, provider string) (domain.NormalizedDocument, error)
}

// SDKSynthesizer is a pure function over a completed, viable analysis.
type SDKSynthesizer interface {
	Generate(analysis domain.AnalysisResult, provider string) (domain.GeneratedSDK, error)
}
