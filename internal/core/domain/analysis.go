package domain

// ProviderType classifies what kind of integration a document describes.
type ProviderType string

const (
	ProviderTypePayment   ProviderType = "payment"
	ProviderTypeShipping  ProviderType = "shipping"
	ProviderTypeMessaging ProviderType = "messaging"
	ProviderTypeUnknown   ProviderType = "unknown"
)

// ValidProviderType reports whether s is a member of the closed enumeration.
func ValidProviderType(s string) bool {
	switch ProviderType(s) {
	case ProviderTypePayment, ProviderTypeShipping, ProviderTypeMessaging, ProviderTypeUnknown:
		return true
	}
	return false
}

// AuthType classifies the authentication mechanism of an API.
type AuthType string

const (
	AuthTypeBearer  AuthType = "bearer"
	AuthTypeAPIKey  AuthType = "api-key"
	AuthTypeOAuth   AuthType = "oauth"
	AuthTypeBasic   AuthType = "basic"
	AuthTypeUnknown AuthType = "unknown"
)

type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

type Response struct {
	StatusCode  int    `json:"statusCode"`
	Description string `json:"description"`
}

type Endpoint struct {
	Path       string      `json:"path"`
	Method     string      `json:"method"`
	Purpose    string      `json:"purpose"`
	Parameters []Parameter `json:"parameters"`
	Responses  []Response  `json:"responses"`
}

type Authentication struct {
	Type          AuthType `json:"type"`
	Location      string   `json:"location,omitempty"`
	ParameterName string   `json:"parameterName,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// AnalysisResult is the viability verdict for one document. Immutable once
// produced. On the heuristic fallback path IsViable must hold exactly when
// Confidence >= 60; the LLM path sets it on the model's own judgment.
type AnalysisResult struct {
	IsViable        bool           `json:"isViable"`
	ProviderType    ProviderType   `json:"providerType"`
	Confidence      int            `json:"confidence"`
	Endpoints       []Endpoint     `json:"endpoints"`
	Authentication  Authentication `json:"authentication"`
	Issues          []string       `json:"issues"`
	Recommendations []string       `json:"recommendations"`
}
