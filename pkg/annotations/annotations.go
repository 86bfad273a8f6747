// Package annotations loads and saves detected text fragments.
//
// Fragment files are JSON or YAML lists of {text, boundingBox}, optionally
// wrapped in an object under "fragments". JSON documents with a "responses"
// key are read as Vision-style OCRResponse output and normalized.
package annotations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bananasnap/gridsnap/pkg/detect"
	"github.com/bananasnap/gridsnap/pkg/grid"
	yaml "go.yaml.in/yaml/v3"
)

type fragmentDocument struct {
	Fragments []grid.Fragment `json:"fragments" yaml:"fragments"`
}

// Load reads fragments from a .json, .yaml or .yml file
func Load(path string) ([]grid.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fragments file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return DecodeJSON(data)
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported fragments file extension %q", ext)
	}
}

// DecodeJSON parses a fragment list, a {"fragments": [...]} object or an OCRResponse
func DecodeJSON(data []byte) ([]grid.Fragment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty fragments document")
	}

	if trimmed[0] == '[' {
		var fragments []grid.Fragment
		if err := json.Unmarshal(trimmed, &fragments); err != nil {
			return nil, fmt.Errorf("failed to parse fragments: %w", err)
		}
		return fragments, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse fragments: %w", err)
	}

	if _, ok := keys["responses"]; ok {
		var resp OCRResponse
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse OCR response: %w", err)
		}
		return FromOCRResponse(resp), nil
	}

	var doc fragmentDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fragments: %w", err)
	}
	return doc.Fragments, nil
}

// DecodeYAML parses a fragment list or a {fragments: [...]} mapping
func DecodeYAML(data []byte) ([]grid.Fragment, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse fragments: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("empty fragments document")
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var fragments []grid.Fragment
		if err := root.Decode(&fragments); err != nil {
			return nil, fmt.Errorf("failed to parse fragments: %w", err)
		}
		return fragments, nil
	}

	var doc fragmentDocument
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse fragments: %w", err)
	}
	return doc.Fragments, nil
}

// Save writes fragments as a JSON or YAML list, chosen by extension
func Save(path string, fragments []grid.Fragment) error {
	if fragments == nil {
		fragments = []grid.Fragment{}
	}

	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(fragments, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(fragments)
	default:
		return fmt.Errorf("unsupported fragments file extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode fragments: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// FromOCRResponse converts every word of every page into a fragment,
// normalizing pixel vertices against the page size.
func FromOCRResponse(response OCRResponse) []grid.Fragment {
	var fragments []grid.Fragment

	for _, r := range response.Responses {
		if r.FullTextAnnotation == nil {
			continue
		}
		for _, page := range r.FullTextAnnotation.Pages {
			for _, block := range page.Blocks {
				for _, paragraph := range block.Paragraphs {
					for _, word := range paragraph.Words {
						if len(word.BoundingBox.Vertices) < 4 || len(word.Symbols) == 0 {
							continue
						}

						points := make([]image.Point, len(word.BoundingBox.Vertices))
						for i, v := range word.BoundingBox.Vertices {
							points[i] = image.Point{X: v.X, Y: v.Y}
						}

						box, ok := detect.NormalizeRect(detect.RectFromPoints(points), page.Width, page.Height)
						if !ok {
							slog.Debug("Skipping word outside page", "text", word.Text(), "page_size", fmt.Sprintf("%dx%d", page.Width, page.Height))
							continue
						}
						fragments = append(fragments, grid.Fragment{Text: word.Text(), BoundingBox: box})
					}
				}
			}
		}
	}

	return fragments
}
