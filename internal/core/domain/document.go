package domain

// DocumentSource tells the analysis engine which normalization path produced
// the document: free text extracted from a PDF, or a parsed machine spec.
type DocumentSource string

const (
	DocumentSourceText DocumentSource = "text"
	DocumentSourceSpec DocumentSource = "spec"
)

// NormalizedDocument is the analyzer's structure-annotated intermediate form.
// It lives only for the duration of the analysis stage.
type NormalizedDocument struct {
	Source   DocumentSource
	Provider string

	// Text-origin fields.
	Text              string
	HasEndpoints      bool
	HasAuthentication bool
	HasExamples       bool
	HasSchemas        bool
	Sections          []string

	// Spec-origin fields.
	SpecVersion    string
	Title          string
	BaseURL        string
	Endpoints      []Endpoint
	Authentication Authentication
	SchemaCount    int

	// ProviderHint is the locally inferred provider type guess; the scorer
	// recomputes from keyword counts when it is unknown.
	ProviderHint ProviderType
}
