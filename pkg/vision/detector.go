// Package vision detects tile letters with Google Cloud Vision text detection.
package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/bananasnap/gridsnap/pkg/detect"
	"github.com/bananasnap/gridsnap/pkg/grid"
	"google.golang.org/api/option"
)

const defaultLanguage = "en"

// Detector implements detect.Detector on top of the Cloud Vision API
type Detector struct{}

// New creates a new Cloud Vision detector
func New() *Detector {
	return &Detector{}
}

// Name returns the detector name
func (d *Detector) Name() string {
	return "vision"
}

// ValidateConfig checks that credentials are available
func (d *Detector) ValidateConfig(config detect.Config) error {
	if config.CredentialsFile != "" {
		if _, err := os.Stat(config.CredentialsFile); err != nil {
			return fmt.Errorf("credentials file not readable: %w", err)
		}
		return nil
	}
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS environment variable not set")
	}
	return nil
}

// Detect runs TEXT_DETECTION on the image and converts every word annotation
// into a fragment.
func (d *Detector) Detect(ctx context.Context, config detect.Config, imagePath string) ([]grid.Fragment, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	width, height, err := detect.ImageSize(data)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	ctx, cancel := detect.WithTimeout(ctx, config)
	defer cancel()

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	defer client.Close()

	language := config.Language
	if language == "" {
		language = defaultLanguage
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:        &visionpb.Image{Content: data},
				Features:     []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
				ImageContext: &visionpb.ImageContext{LanguageHints: []string{language}},
			},
		},
	}

	resp, err := client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("vision returned no responses")
	}

	annotated := resp.GetResponses()[0]
	if status := annotated.GetError(); status != nil && status.GetCode() != 0 {
		return nil, fmt.Errorf("vision API error %d: %s", status.GetCode(), status.GetMessage())
	}

	fragments := FragmentsFromAnnotations(annotated.GetTextAnnotations(), width, height)
	slog.Info("Vision text detection completed", "image", imagePath, "fragments", len(fragments), "image_size", fmt.Sprintf("%dx%d", width, height))

	return fragments, nil
}

// FragmentsFromAnnotations converts Vision text annotations to fragments.
// The first annotation covers all text in the image and is skipped.
func FragmentsFromAnnotations(annotations []*visionpb.EntityAnnotation, width, height int) []grid.Fragment {
	if len(annotations) < 2 {
		return nil
	}

	fragments := make([]grid.Fragment, 0, len(annotations)-1)
	for _, annotation := range annotations[1:] {
		vertices := annotation.GetBoundingPoly().GetVertices()
		if len(vertices) < 4 {
			slog.Debug("Skipping annotation without polygon", "text", annotation.GetDescription())
			continue
		}

		points := make([]image.Point, len(vertices))
		for i, v := range vertices {
			points[i] = image.Point{X: int(v.GetX()), Y: int(v.GetY())}
		}

		box, ok := detect.NormalizeRect(detect.RectFromPoints(points), width, height)
		if !ok {
			slog.Debug("Skipping annotation outside image", "text", annotation.GetDescription())
			continue
		}
		fragments = append(fragments, grid.Fragment{Text: annotation.GetDescription(), BoundingBox: box})
	}
	return fragments
}
