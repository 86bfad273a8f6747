// Package azure detects tile letters with the Azure Computer Vision Read API.
//
// The image is submitted to /vision/v3.2/read/analyze and the operation is
// polled until it finishes. Every recognized word becomes a fragment.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bananasnap/gridsnap/pkg/detect"
	"github.com/bananasnap/gridsnap/pkg/grid"
)

const (
	defaultPollInterval = time.Second
	maxPollAttempts     = 30
)

// Detector implements detect.Detector on the Read API
type Detector struct {
	PollInterval time.Duration
}

// ReadOperation is the body returned while polling a read operation
type ReadOperation struct {
	Status        string        `json:"status"`
	AnalyzeResult AnalyzeResult `json:"analyzeResult"`
}

// AnalyzeResult is the v3.2 read result
type AnalyzeResult struct {
	ReadResults []ReadResult `json:"readResults"`
}

// ReadResult holds the lines found on one page
type ReadResult struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
	Lines  []Line  `json:"lines"`
}

type Line struct {
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
	Words       []Word    `json:"words"`
}

type Word struct {
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
}

// New creates a new Azure detector
func New() *Detector {
	return &Detector{PollInterval: defaultPollInterval}
}

// Name returns the detector name
func (d *Detector) Name() string {
	return "azure"
}

// ValidateConfig validates the Azure configuration
func (d *Detector) ValidateConfig(config detect.Config) error {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	if endpoint == "" || apiKey == "" {
		return fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}
	return nil
}

// Detect submits the image, waits for the read operation and converts its words
func (d *Detector) Detect(ctx context.Context, config detect.Config, imagePath string) ([]grid.Fragment, error) {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	ctx, cancel := detect.WithTimeout(ctx, config)
	defer cancel()

	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze", strings.TrimSuffix(endpoint, "/"))
	if config.Language != "" {
		readURL += "?language=" + config.Language
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, readURL, bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, string(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return nil, fmt.Errorf("no operation location returned from Azure OCR")
	}

	operation, err := d.poll(ctx, operationURL, apiKey)
	if err != nil {
		return nil, err
	}

	fragments := FragmentsFromReadResults(operation.AnalyzeResult.ReadResults)
	slog.Info("Azure text detection completed", "image", imagePath, "fragments", len(fragments))
	return fragments, nil
}

func (d *Detector) poll(ctx context.Context, operationURL, apiKey string) (ReadOperation, error) {
	interval := d.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	for attempts := 0; attempts < maxPollAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return ReadOperation{}, ctx.Err()
		case <-time.After(interval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return ReadOperation{}, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return ReadOperation{}, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			slog.Debug("Azure read operation not ready", "status_code", resp.StatusCode, "attempt", attempts+1)
			continue
		}

		var operation ReadOperation
		err = json.NewDecoder(resp.Body).Decode(&operation)
		resp.Body.Close()
		if err != nil {
			return ReadOperation{}, fmt.Errorf("invalid response format from Azure OCR: %w", err)
		}

		switch operation.Status {
		case "succeeded":
			return operation, nil
		case "failed":
			return ReadOperation{}, fmt.Errorf("azure OCR analysis failed")
		}
		// notStarted and running keep polling
	}

	return ReadOperation{}, fmt.Errorf("azure OCR operation timed out")
}

// FragmentsFromReadResults converts every word of every page into a fragment.
// Word boxes are 8 numbers, four corners in pixels with a top-left origin.
func FragmentsFromReadResults(results []ReadResult) []grid.Fragment {
	var fragments []grid.Fragment
	for _, page := range results {
		width, height := int(math.Round(page.Width)), int(math.Round(page.Height))
		for _, line := range page.Lines {
			for _, word := range line.Words {
				if word.Text == "" || len(word.BoundingBox) < 8 {
					continue
				}

				points := make([]image.Point, 0, len(word.BoundingBox)/2)
				for i := 0; i+1 < len(word.BoundingBox); i += 2 {
					points = append(points, image.Point{
						X: int(math.Round(word.BoundingBox[i])),
						Y: int(math.Round(word.BoundingBox[i+1])),
					})
				}

				box, ok := detect.NormalizeRect(detect.RectFromPoints(points), width, height)
				if !ok {
					slog.Debug("Skipping word outside page", "text", word.Text, "page", page.Page)
					continue
				}
				fragments = append(fragments, grid.Fragment{Text: word.Text, BoundingBox: box})
			}
		}
	}
	return fragments
}
