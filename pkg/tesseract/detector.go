// Package tesseract detects tile letters offline with the Tesseract engine.
//
// It wraps gosseract, so Tesseract and its headers must be installed:
//
//	apt-get install tesseract-ocr libtesseract-dev
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bananasnap/gridsnap/pkg/detect"
	"github.com/bananasnap/gridsnap/pkg/grid"
	"github.com/otiai10/gosseract/v2"
)

const defaultLanguage = "eng"

// Detector implements detect.Detector with a local Tesseract install
type Detector struct{}

// New creates a new Tesseract detector
func New() *Detector {
	return &Detector{}
}

// Name returns the detector name
func (d *Detector) Name() string {
	return "tesseract"
}

// ValidateConfig validates the Tesseract configuration
func (d *Detector) ValidateConfig(config detect.Config) error {
	if config.CredentialsFile != "" {
		slog.Debug("Tesseract ignores credentials file", "file", config.CredentialsFile)
	}
	return nil
}

// Detect recognizes words in the image and returns one fragment per word
func (d *Detector) Detect(ctx context.Context, config detect.Config, imagePath string) ([]grid.Fragment, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	width, height, err := detect.ImageSize(data)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// gosseract clients are not safe for concurrent use
	client := gosseract.NewClient()
	defer client.Close()

	language := config.Language
	if language == "" {
		language = defaultLanguage
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	whitelist := config.Whitelist
	if whitelist == "" {
		whitelist = detect.DefaultWhitelist
	}
	if err := client.SetWhitelist(whitelist); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	fragments := FragmentsFromBoxes(boxes, width, height)
	slog.Info("Tesseract text detection completed", "image", imagePath, "fragments", len(fragments), "image_size", fmt.Sprintf("%dx%d", width, height))

	return fragments, nil
}

// FragmentsFromBoxes converts Tesseract word boxes to fragments
func FragmentsFromBoxes(boxes []gosseract.BoundingBox, width, height int) []grid.Fragment {
	var fragments []grid.Fragment
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		box, ok := detect.NormalizeRect(b.Box, width, height)
		if !ok {
			slog.Debug("Skipping word outside image", "text", b.Word)
			continue
		}
		fragments = append(fragments, grid.Fragment{Text: b.Word, BoundingBox: box})
	}
	return fragments
}
