// Package pdftext normalizes uploaded PDF documentation into the analyzer's
// intermediate form. Extraction is deliberately best-effort: the viability
// verdict depends on keyword signals, not on faithful layout recovery.
package pdftext

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/conexa/sdkforge/internal/core/ports"
	"github.com/conexa/sdkforge/internal/heuristics"
)

var (
	pdfSignature = []byte("%PDF")

	streamPattern  = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	literalPattern = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)

	pageFooterPattern = regexp.MustCompile(`(?m)^Page \d+ of \d+$`)
	bareNumberPattern = regexp.MustCompile(`(?m)^\d+\s*$`)
	multiNewline      = regexp.MustCompile(`\n{3,}`)
	multiSpace        = regexp.MustCompile(`[ \t]{2,}`)
	nonPrintable      = regexp.MustCompile(`[^\x20-\x7E\n]`)

	literalUnescaper = strings.NewReplacer(
		`\n`, "\n", `\r`, "\n", `\t`, " ",
		`\(`, "(", `\)`, ")", `\\`, `\`,
	)
)

type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Normalize validates the file signature, extracts and cleans the document
// text, and annotates it with the structural signals the scorer consumes.
func (a *Analyzer) Normalize(data []byte, provider string) (domain.NormalizedDocument, error) {
	if !bytes.HasPrefix(data, pdfSignature) {
		return domain.NormalizedDocument{}, fmt.Errorf("%w: missing %%PDF signature", domain.ErrMalformedInput)
	}

	text := cleanText(extractText(data))
	if text == "" {
		return domain.NormalizedDocument{}, fmt.Errorf("%w: no extractable text", domain.ErrMalformedInput)
	}

	a.logger.Info("document normalized", "provider", provider, "chars", len(text))

	return domain.NormalizedDocument{
		Source:            domain.DocumentSourceText,
		Provider:          provider,
		Text:              text,
		HasEndpoints:      heuristics.HasEndpointSignals(text),
		HasAuthentication: heuristics.HasAuthSignals(text),
		HasExamples:       heuristics.HasExampleSignals(text),
		HasSchemas:        heuristics.HasSchemaSignals(text),
		Sections:          heuristics.ExtractSections(text),
		ProviderHint:      heuristics.DetectProviderType(text),
	}, nil
}

// extractText walks the PDF content streams, inflating compressed ones, and
// collects string literals from the page content. Uncompressed files fall
// back to a literal scan over the raw bytes.
func extractText(data []byte) string {
	var b strings.Builder

	for _, m := range streamPattern.FindAllSubmatch(data, -1) {
		content := m[1]
		if inflated, err := inflate(content); err == nil {
			content = inflated
		}
		collectLiterals(&b, content)
	}

	if b.Len() == 0 {
		collectLiterals(&b, data)
	}

	return b.String()
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// Inflate errors past the first chunk still leave usable text.
	out, err := io.ReadAll(r)
	if len(out) > 0 {
		return out, nil
	}
	return nil, err
}

func collectLiterals(b *strings.Builder, content []byte) {
	for _, lit := range literalPattern.FindAllSubmatch(content, -1) {
		s := literalUnescaper.Replace(string(lit[1]))
		if strings.TrimSpace(s) == "" {
			continue
		}
		b.WriteString(s)
		b.WriteString(" ")
	}
}

// cleanText strips control characters, pagination artifacts, and collapses
// whitespace the way scanned API docs tend to need.
func cleanText(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = nonPrintable.ReplaceAllString(text, " ")
	text = pageFooterPattern.ReplaceAllString(text, "")
	text = bareNumberPattern.ReplaceAllString(text, "")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var _ ports.TextNormalizer = (*Analyzer)(nil)
