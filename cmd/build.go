package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bananasnap/gridsnap/internal/config"
	"github.com/bananasnap/gridsnap/internal/utils"
	"github.com/bananasnap/gridsnap/pkg/annotations"
	"github.com/bananasnap/gridsnap/pkg/azure"
	"github.com/bananasnap/gridsnap/pkg/detect"
	"github.com/bananasnap/gridsnap/pkg/grid"
	"github.com/bananasnap/gridsnap/pkg/openai"
	"github.com/bananasnap/gridsnap/pkg/tesseract"
	"github.com/bananasnap/gridsnap/pkg/vision"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild a letter grid from an image or a fragments file",
	Long: `Rebuild the letter grid of a tile game from a photo or from previously
detected text fragments.

With --image the photo is sent to a text detector (vision, tesseract,
azure or openai).
With --fragments a JSON or YAML file of detections is read instead; Vision
OCR response JSON is accepted as well.

Detections are split into letters, clustered into rows and columns and
placed into a rectangular grid. Blank cells are printed as ".".`,
	RunE: runBuild,
}

var (
	buildImagePath     string
	buildFragmentsPath string
	buildDetector      string
	buildFormat        string
	buildOutputPath    string
	buildSaveFragments string
)

func init() {
	RootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildImagePath, "image", "", "Path to input image file")
	buildCmd.Flags().StringVar(&buildFragmentsPath, "fragments", "", "Path to a JSON or YAML fragments file")
	buildCmd.Flags().StringVar(&buildDetector, "detector", "", "Detector to use: vision, tesseract, azure, openai (overrides config)")
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", "text", "Output format: text, json, yaml")
	buildCmd.Flags().StringVarP(&buildOutputPath, "output", "o", "", "Output path (prints to stdout if not specified)")
	buildCmd.Flags().StringVar(&buildSaveFragments, "save-fragments", "", "Also write the detected fragments to this .json or .yaml file")
	addToleranceFlags(buildCmd)

	buildCmd.MarkFlagsOneRequired("image", "fragments")
	buildCmd.MarkFlagsMutuallyExclusive("image", "fragments")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if buildDetector != "" {
		cfg.Detector = buildDetector
	}

	fragments, err := collectFragments(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if buildSaveFragments != "" {
		if err := annotations.Save(buildSaveFragments, fragments); err != nil {
			return fmt.Errorf("failed to save fragments: %w", err)
		}
		slog.Info("Saved fragments", "path", buildSaveFragments, "count", len(fragments))
	}

	result, err := grid.Reconstruct(fragments, cfg.GridOptions())
	if errors.Is(err, grid.ErrNoDetections) {
		slog.Warn("No letters detected", "fragments", len(fragments))
		fmt.Fprintln(cmd.OutOrStdout(), "No letters detected")
		return nil
	}
	if err != nil {
		return err
	}

	rows, columns := result.Grid.Shape()
	slog.Info("Grid reconstructed", "rows", rows, "columns", columns, "letters", result.Grid.FilledCount(), "dropped", len(result.Dropped), "collisions", len(result.Collisions))

	out, err := formatResult(result, buildFormat)
	if err != nil {
		return err
	}
	return outputResult(cmd, out)
}

func collectFragments(ctx context.Context, cfg config.Config) ([]grid.Fragment, error) {
	if buildFragmentsPath != "" {
		return annotations.Load(buildFragmentsPath)
	}

	if _, err := os.Stat(buildImagePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("input image file does not exist: %s", buildImagePath)
	}

	registry := newDetectorRegistry()
	detector, err := registry.Get(cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("unsupported detector: %w", err)
	}

	detectConfig := cfg.DetectConfig()
	if err := detector.ValidateConfig(detectConfig); err != nil {
		return nil, fmt.Errorf("detector configuration validation failed: %w", err)
	}

	slog.Info("Detecting text", "image", buildImagePath, "detector", detector.Name())
	fragments, err := detector.Detect(ctx, detectConfig, buildImagePath)
	if err != nil {
		return nil, utils.MaskSensitiveError(fmt.Errorf("text detection failed: %w", err))
	}
	return fragments, nil
}

func newDetectorRegistry() *detect.Registry {
	registry := detect.NewRegistry()
	registry.Register(vision.New())
	registry.Register(tesseract.New())
	registry.Register(openai.New())
	registry.Register(azure.New())
	return registry
}

func formatResult(result grid.Result, format string) ([]byte, error) {
	switch format {
	case "text", "":
		return []byte(result.Grid.String() + "\n"), nil
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		return yaml.Marshal(result)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputResult(cmd *cobra.Command, data []byte) error {
	if buildOutputPath != "" {
		return os.WriteFile(buildOutputPath, data, 0644)
	}
	_, err := cmd.OutOrStdout().Write(data)
	return err
}
