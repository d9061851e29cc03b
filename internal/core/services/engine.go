package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/conexa/sdkforge/internal/core/ports"
	"github.com/conexa/sdkforge/internal/heuristics"
)

const (
	// maxPromptChars bounds how much document content is sent to the
	// external analysis service.
	maxPromptChars = 8000

	defaultMaxRetries  = 3
	defaultRetryDelay  = 1 * time.Second
	defaultCallTimeout = 60 * time.Second
)

const systemPrompt = `You are an expert API integration analyst specializing in ecommerce integrations. Analyze API documentation and determine whether it supports generating a client SDK.

Provider categories:
- Payment providers implement: createPayment, getPaymentDetails, cancelPayment
- Shipping providers implement: createShipment, getShipmentDetails, updateShipment, cancelShipment
- Messaging providers implement: sendEmail, sendSMS, createCampaign, getSubscribers

Respond ONLY with a valid JSON object of this exact shape:
{
  "isViable": boolean,
  "providerType": "payment" | "shipping" | "messaging" | "unknown",
  "confidence": number (0-100),
  "endpoints": [{"path": string, "method": string, "purpose": string, "parameters": [{"name": string, "type": string, "required": boolean, "description": string}], "responses": [{"statusCode": number, "description": string}]}],
  "authentication": {"type": "bearer" | "api-key" | "oauth" | "basic" | "unknown", "location": string, "parameterName": string, "description": string},
  "issues": [string],
  "recommendations": [string]
}`

// EngineConfig tunes the retry policy around the external analysis call.
type EngineConfig struct {
	MaxRetries  int
	RetryDelay  time.Duration
	CallTimeout time.Duration
}

// Engine decides integration viability for a normalized document. The
// external judgment path is optional: when no completion provider was
// configured at startup the engine runs purely on the heuristic scorer. It
// never fails outward.
type Engine struct {
	logger      *slog.Logger
	llm         ports.CompletionProvider // nil when analysis runs heuristics-only
	maxRetries  int
	retryDelay  time.Duration
	callTimeout time.Duration
}

func NewEngine(logger *slog.Logger, llm ports.CompletionProvider, cfg EngineConfig) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	return &Engine{
		logger:      logger,
		llm:         llm,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		callTimeout: cfg.CallTimeout,
	}
}

// Analyze produces a viability verdict for doc. Exhausted retries or a
// schema-invalid model response degrade transparently to the heuristic
// fallback; the fallback itself is never retried.
func (e *Engine) Analyze(ctx context.Context, doc domain.NormalizedDocument) domain.AnalysisResult {
	if e.llm == nil {
		e.logger.Info("analysis service not configured, using heuristic scorer", "provider", doc.Provider)
		return heuristics.Fallback(doc)
	}

	result, err := e.analyzeWithRetry(ctx, doc)
	if err != nil {
		e.logger.Warn("external analysis unavailable, falling back to heuristics",
			"provider", doc.Provider, "error", err)
		return heuristics.Fallback(doc)
	}

	e.logger.Info("external analysis completed",
		"provider", doc.Provider,
		"viable", result.IsViable,
		"confidence", result.Confidence,
		"provider_type", result.ProviderType,
	)
	return result
}

func (e *Engine) analyzeWithRetry(ctx context.Context, doc domain.NormalizedDocument) (domain.AnalysisResult, error) {
	prompt := buildAnalysisPrompt(doc)

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff: retryDelay x attempt number.
			select {
			case <-ctx.Done():
				return domain.AnalysisResult{}, ctx.Err()
			case <-time.After(e.retryDelay * time.Duration(attempt)):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		raw, err := e.llm.Complete(callCtx, ports.CompletionRequest{
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: 0.1,
			MaxTokens:   2000,
		})
		cancel()

		if err != nil {
			lastErr = err
			e.logger.Warn("analysis call failed", "attempt", attempt+1, "error", err)
			continue
		}

		result, parseErr := parseAnalysisResponse(raw)
		if parseErr != nil {
			// The model answered but the content failed validation; that is
			// not a transport fault, so no further attempts are spent on it.
			return domain.AnalysisResult{}, fmt.Errorf("analysis response rejected: %w", parseErr)
		}

		return result, nil
	}

	return domain.AnalysisResult{}, fmt.Errorf("analysis call failed after %d attempts: %w", e.maxRetries+1, lastErr)
}

func buildAnalysisPrompt(doc domain.NormalizedDocument) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this API documentation for %q and determine integration viability.\n\n", doc.Provider)

	if doc.Source == domain.DocumentSourceSpec {
		fmt.Fprintf(&b, "SPEC METADATA:\n- Version: %s\n- Title: %s\n- Base URL: %s\n- Endpoints: %d\n- Authentication: %s\n- Detected API type: %s\n\nENDPOINTS:\n",
			doc.SpecVersion, doc.Title, doc.BaseURL, len(doc.Endpoints), doc.Authentication.Type, doc.ProviderHint)
		for _, ep := range doc.Endpoints {
			fmt.Fprintf(&b, "%s %s (%s)\n", ep.Method, ep.Path, ep.Purpose)
		}
	} else {
		fmt.Fprintf(&b, "DOCUMENT METADATA:\n- Has endpoints: %t\n- Has authentication: %t\n- Has examples: %t\n- Detected API type: %s\n- Sections: %s\n\nEXTRACTED CONTENT:\n%s",
			doc.HasEndpoints, doc.HasAuthentication, doc.HasExamples, doc.ProviderHint,
			strings.Join(doc.Sections, ", "), doc.Text)
	}

	b.WriteString("\n\nDetermine the provider type, extract endpoints and authentication, list missing elements, and give implementation recommendations.")

	return truncate(b.String(), maxPromptChars)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// llmAnalysis mirrors the JSON contract of the external analysis service.
// Pointer fields distinguish absent from zero-valued.
type llmAnalysis struct {
	IsViable        *bool                  `json:"isViable"`
	ProviderType    string                 `json:"providerType"`
	Confidence      *float64               `json:"confidence"`
	Endpoints       []domain.Endpoint      `json:"endpoints"`
	Authentication  *domain.Authentication `json:"authentication"`
	Issues          []string               `json:"issues"`
	Recommendations []string               `json:"recommendations"`
}

// parseAnalysisResponse validates the raw completion text against the
// response contract. Missing array fields default to empty; a missing or
// malformed authentication object defaults to unknown; everything else is a
// hard parse failure.
func parseAnalysisResponse(raw string) (domain.AnalysisResult, error) {
	blob := extractJSONObject(raw)
	if blob == "" {
		return domain.AnalysisResult{}, fmt.Errorf("no JSON object in response")
	}

	var parsed llmAnalysis
	if err := json.Unmarshal([]byte(blob), &parsed); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("unmarshal analysis: %w", err)
	}

	if parsed.IsViable == nil {
		return domain.AnalysisResult{}, fmt.Errorf("missing isViable field")
	}
	if !domain.ValidProviderType(parsed.ProviderType) {
		return domain.AnalysisResult{}, fmt.Errorf("invalid providerType %q", parsed.ProviderType)
	}
	if parsed.Confidence == nil || *parsed.Confidence < 0 || *parsed.Confidence > 100 {
		return domain.AnalysisResult{}, fmt.Errorf("confidence out of range")
	}

	auth := domain.Authentication{Type: domain.AuthTypeUnknown}
	if parsed.Authentication != nil {
		switch parsed.Authentication.Type {
		case domain.AuthTypeBearer, domain.AuthTypeAPIKey, domain.AuthTypeOAuth, domain.AuthTypeBasic, domain.AuthTypeUnknown:
			auth = *parsed.Authentication
		}
	}

	endpoints := parsed.Endpoints
	if endpoints == nil {
		endpoints = []domain.Endpoint{}
	}
	issues := parsed.Issues
	if issues == nil {
		issues = []string{}
	}
	recommendations := parsed.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	return domain.AnalysisResult{
		IsViable:        *parsed.IsViable,
		ProviderType:    domain.ProviderType(parsed.ProviderType),
		Confidence:      int(*parsed.Confidence),
		Endpoints:       endpoints,
		Authentication:  auth,
		Issues:          issues,
		Recommendations: recommendations,
	}, nil
}

// extractJSONObject returns the outermost {...} span of s, tolerating prose
// or code fences around the object.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
