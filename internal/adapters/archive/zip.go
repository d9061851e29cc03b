// Package archive packages a generated SDK into a downloadable zip.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/conexa/sdkforge/internal/core/domain"
)

// BuildZip renders every SDK file, the package manifest and the README into
// a single in-memory zip archive.
func BuildZip(sdk *domain.GeneratedSDK) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, file := range sdk.Files {
		f, err := w.Create(file.Path)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", file.Path, err)
		}
		if _, err := f.Write([]byte(file.Content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.Path, err)
		}
	}

	if sdk.Manifest != nil {
		manifest, err := json.MarshalIndent(sdk.Manifest, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal manifest: %w", err)
		}
		f, err := w.Create("package.json")
		if err != nil {
			return nil, fmt.Errorf("add package.json: %w", err)
		}
		if _, err := f.Write(append(manifest, '\n')); err != nil {
			return nil, fmt.Errorf("write package.json: %w", err)
		}
	}

	if sdk.Readme != "" {
		f, err := w.Create("README.md")
		if err != nil {
			return nil, fmt.Errorf("add README.md: %w", err)
		}
		if _, err := f.Write([]byte(sdk.Readme)); err != nil {
			return nil, fmt.Errorf("write README.md: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}
