package heuristics

import (
	"testing"

	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestHasAuthSignals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"bare token", "Request a token from the developer portal", true},
		{"bearer without token suffix", "Send the bearer value in the header", true},
		{"credential keyword", "Store your credentials securely", true},
		{"api key", "Pass your API key in every request", true},
		{"oauth", "OAuth 2.0 flows are supported", true},
		{"no auth words", "This page lists shipping rates by region", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAuthSignals(tt.text))
		})
	}
}

func TestHasEndpointSignals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"verb with path", "POST /v1/payments creates a payment", true},
		{"bare verb in prose", "Send a POST request to create a payment", true},
		{"lowercase verb", "You can delete a subscription at any time", true},
		{"api path only", "See /api/payments for details", true},
		{"no endpoint words", "Our pricing is simple and transparent", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasEndpointSignals(tt.text))
		})
	}
}

// Prose-only documentation without verb+path pairs or multiword token
// phrases must still score as viable when the signal keywords are present.
func TestFallback_ProseOnlySignals(t *testing.T) {
	text := "Send a POST request with your token to create a payment. " +
		"Payments support refund and checkout flows."

	doc := domain.NormalizedDocument{
		Source:            domain.DocumentSourceText,
		Provider:          "acme",
		Text:              text,
		HasEndpoints:      HasEndpointSignals(text),
		HasAuthentication: HasAuthSignals(text),
		HasExamples:       HasExampleSignals(text),
	}

	result := Fallback(doc)

	// 40 endpoints + 30 auth + 20 examples (word "request") + 10 payment.
	assert.Equal(t, 100, result.Confidence)
	assert.True(t, result.IsViable)
	assert.Equal(t, domain.ProviderTypePayment, result.ProviderType)
}
