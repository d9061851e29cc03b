package domain

type FileType string

const (
	FileTypeTypeScript FileType = "typescript"
	FileTypeJSON       FileType = "json"
	FileTypeMarkdown   FileType = "markdown"
)

type GeneratedFile struct {
	Path    string   `json:"path"`
	Type    FileType `json:"type"`
	Content string   `json:"content"`
}

// GeneratedSDK is the synthesizer's output: a file set plus manifest and
// readme. Opaque to the orchestrator beyond being attached to the job.
type GeneratedSDK struct {
	ProviderName string          `json:"providerName"`
	Files        []GeneratedFile `json:"files"`
	Manifest     map[string]any  `json:"packageJson"`
	Readme       string          `json:"readme"`
}
