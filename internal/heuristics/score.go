package heuristics

import (
	"strings"

	"github.com/conexa/sdkforge/internal/core/domain"
)

// ViabilityThreshold is the minimum confidence at which the fallback scorer
// declares a document viable.
const ViabilityThreshold = 60

// Fallback computes a deterministic AnalysisResult for a normalized document.
// It is the substitute for the external analysis call and must stay cheap and
// reproducible: same input, same verdict.
func Fallback(doc domain.NormalizedDocument) domain.AnalysisResult {
	if doc.Source == domain.DocumentSourceSpec {
		return scoreSpec(doc)
	}
	return scoreText(doc)
}

// scoreText scores a text-origin document from its precomputed structural
// signals: +30 authentication keywords, +40 endpoint tokens, +20 examples,
// +10 for a recognized provider type, capped at 100.
func scoreText(doc domain.NormalizedDocument) domain.AnalysisResult {
	providerType := doc.ProviderHint
	if providerType == "" || providerType == domain.ProviderTypeUnknown {
		providerType = DetectProviderType(doc.Text)
	}

	confidence := 0
	if doc.HasAuthentication {
		confidence += 30
	}
	if doc.HasEndpoints {
		confidence += 40
	}
	if doc.HasExamples {
		confidence += 20
	}
	if providerType != domain.ProviderTypeUnknown {
		confidence += 10
	}
	confidence = capConfidence(confidence)

	auth := domain.Authentication{Type: domain.AuthTypeUnknown}
	if doc.HasAuthentication {
		auth = domain.Authentication{
			Type:          domain.AuthTypeBearer,
			Location:      "header",
			ParameterName: "Authorization",
			Description:   "Bearer token authentication",
		}
	}

	return buildResult(confidence, providerType, SampleEndpoints(providerType), auth)
}

// scoreSpec scores a machine-readable spec from its parsed endpoint and
// authentication lists: +40 for any endpoint, +20 for three or more, +30 for
// a recognized authentication type, +10 for any POST, capped at 100.
func scoreSpec(doc domain.NormalizedDocument) domain.AnalysisResult {
	confidence := 0
	if len(doc.Endpoints) > 0 {
		confidence += 40
	}
	if len(doc.Endpoints) >= 3 {
		confidence += 20
	}
	if doc.Authentication.Type != domain.AuthTypeUnknown && doc.Authentication.Type != "" {
		confidence += 30
	}
	for _, ep := range doc.Endpoints {
		if strings.EqualFold(ep.Method, "POST") {
			confidence += 10
			break
		}
	}
	confidence = capConfidence(confidence)

	auth := doc.Authentication
	if auth.Type == "" {
		auth.Type = domain.AuthTypeUnknown
	}

	return buildResult(confidence, doc.ProviderHint, doc.Endpoints, auth)
}

func buildResult(confidence int, providerType domain.ProviderType, endpoints []domain.Endpoint, auth domain.Authentication) domain.AnalysisResult {
	if providerType == "" {
		providerType = domain.ProviderTypeUnknown
	}
	if endpoints == nil {
		endpoints = []domain.Endpoint{}
	}

	issues := []string{}
	if confidence < ViabilityThreshold {
		issues = append(issues,
			"Insufficient documentation detected",
			"Missing critical API details",
		)
	}

	return domain.AnalysisResult{
		IsViable:       confidence >= ViabilityThreshold,
		ProviderType:   providerType,
		Confidence:     confidence,
		Endpoints:      endpoints,
		Authentication: auth,
		Issues:         issues,
		Recommendations: []string{
			"Review authentication requirements",
			"Verify all required endpoints are documented",
			"Check for rate limiting information",
			"Validate request/response schemas",
		},
	}
}

func capConfidence(c int) int {
	if c > 100 {
		return 100
	}
	if c < 0 {
		return 0
	}
	return c
}

// SampleEndpoints returns canned endpoints for a provider family. They make
// the fallback result structurally complete for downstream consumers and do
// not affect the confidence score.
func SampleEndpoints(providerType domain.ProviderType) []domain.Endpoint {
	switch providerType {
	case domain.ProviderTypePayment:
		return []domain.Endpoint{
			{
				Path:    "/api/payments",
				Method:  "POST",
				Purpose: "create_payment",
				Parameters: []domain.Parameter{
					{Name: "amount", Type: "number", Required: true, Description: "Payment amount"},
					{Name: "currency", Type: "string", Required: true, Description: "Currency code"},
				},
				Responses: []domain.Response{
					{StatusCode: 201, Description: "Payment created successfully"},
					{StatusCode: 400, Description: "Invalid request"},
				},
			},
			{
				Path:    "/api/payments/{id}",
				Method:  "GET",
				Purpose: "get_payment",
				Parameters: []domain.Parameter{
					{Name: "id", Type: "string", Required: true, Description: "Payment ID"},
				},
				Responses: []domain.Response{
					{StatusCode: 200, Description: "Payment details"},
					{StatusCode: 404, Description: "Payment not found"},
				},
			},
		}
	case domain.ProviderTypeShipping:
		return []domain.Endpoint{
			{
				Path:    "/api/shipments",
				Method:  "POST",
				Purpose: "create_shipment",
				Parameters: []domain.Parameter{
					{Name: "origin", Type: "object", Required: true, Description: "Origin address"},
					{Name: "destination", Type: "object", Required: true, Description: "Destination address"},
				},
				Responses: []domain.Response{
					{StatusCode: 201, Description: "Shipment created successfully"},
					{StatusCode: 400, Description: "Invalid request"},
				},
			},
			{
				Path:    "/api/shipments/{id}",
				Method:  "GET",
				Purpose: "get_shipment",
				Parameters: []domain.Parameter{
					{Name: "id", Type: "string", Required: true, Description: "Shipment ID"},
				},
				Responses: []domain.Response{
					{StatusCode: 200, Description: "Shipment details"},
					{StatusCode: 404, Description: "Shipment not found"},
				},
			},
		}
	case domain.ProviderTypeMessaging:
		return []domain.Endpoint{
			{
				Path:    "/api/campaigns",
				Method:  "POST",
				Purpose: "create_campaign",
				Parameters: []domain.Parameter{
					{Name: "name", Type: "string", Required: true, Description: "Campaign name"},
					{Name: "recipients", Type: "array", Required: true, Description: "Recipient list"},
				},
				Responses: []domain.Response{
					{StatusCode: 201, Description: "Campaign created successfully"},
					{StatusCode: 400, Description: "Invalid request"},
				},
			},
		}
	}
	return []domain.Endpoint{}
}
