package cmd

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bananasnap/gridsnap/pkg/annotations"
	"github.com/bananasnap/gridsnap/pkg/grid"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

// EvalConfig stores the settings of one evaluation run
type EvalConfig struct {
	Name            string  `json:"name" yaml:"name"`
	CSVPath         string  `json:"csv_path" yaml:"csv_path"`
	Dir             string  `json:"dir" yaml:"dir"`
	TestRows        []int   `json:"rows" yaml:"rows"`
	RowTolerance    float64 `json:"row_tolerance" yaml:"row_tolerance"`
	ColumnTolerance float64 `json:"column_tolerance" yaml:"column_tolerance"`
	Timestamp       string  `json:"timestamp" yaml:"timestamp"`
}

// EvalResult scores one reconstructed grid against its ground truth
type EvalResult struct {
	Identifier      string `json:"identifier" yaml:"identifier"`
	FragmentsPath   string `json:"fragments_path" yaml:"fragments_path"`
	ExpectedPath    string `json:"expected_path" yaml:"expected_path"`
	Reconstructed   string `json:"reconstructed" yaml:"reconstructed"`
	NoDetections    bool   `json:"no_detections" yaml:"no_detections"`
	Dropped         int    `json:"dropped" yaml:"dropped"`
	Collisions      int    `json:"collisions" yaml:"collisions"`
	grid.Comparison `yaml:",inline"`
}

type EvalSummary struct {
	Config  EvalConfig   `json:"config" yaml:"config"`
	Results []EvalResult `json:"results" yaml:"results"`
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate grid reconstruction against ground truth grids",
	Long: `Evaluate grid reconstruction on saved detections.

This command expects a CSV file with 2 columns:
  fragments,expected

Where:
  - fragments: path to a JSON or YAML fragments file
  - expected: path to the ground truth grid, either YAML/JSON
    ({cells: [[A, null], ...]}) or text with one row per line
    and "." for blank cells

Example:
  gridsnap eval --csv fixtures/boards.csv --dir ./fixtures`,
	RunE: runEval,
}

var (
	evalCSVPath  string
	evalName     string
	evalDir      string
	evalsDir     string
	evalTestRows []int
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data (required)")
	evalCmd.Flags().StringVarP(&evalName, "name", "n", "gridsnap", "Name used for the results file")
	evalCmd.Flags().StringVar(&evalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().StringVar(&evalsDir, "evals-dir", "evals", "Directory where results are written")
	evalCmd.Flags().IntSliceVar(&evalTestRows, "rows", []int{}, "A list of row numbers to process")
	addToleranceFlags(evalCmd)

	if err := evalCmd.MarkFlagRequired("csv"); err != nil {
		panic(err)
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	config := EvalConfig{
		Name:            evalName,
		CSVPath:         evalCSVPath,
		Dir:             evalDir,
		TestRows:        evalTestRows,
		RowTolerance:    cfg.RowTolerance,
		ColumnTolerance: cfg.ColumnTolerance,
		Timestamp:       time.Now().Format("2006-01-02_15-04-05"),
	}

	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	results, err := processEvaluation(config)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	summary := EvalSummary{
		Config:  config,
		Results: results,
	}

	name := strings.ReplaceAll(config.Name, ":", "_")
	outputPath := filepath.Join(evalsDir, fmt.Sprintf("%s_%s.yaml", name, config.Timestamp))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nEvaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func processEvaluation(config EvalConfig) ([]EvalResult, error) {
	file, err := os.Open(config.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// Skip header row if present
	dataRows := records
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "fragments") {
		dataRows = records[1:]
	}

	opts := grid.Options{
		RowTolerance:    config.RowTolerance,
		ColumnTolerance: config.ColumnTolerance,
	}

	var results []EvalResult
	for i, row := range dataRows {
		if len(config.TestRows) > 0 && !slices.Contains(config.TestRows, i) {
			slog.Debug("Skipping row", "row", i+1)
			continue
		}

		if len(row) < 2 {
			slog.Warn("Insufficient columns (expected 2: fragments, expected)", "row", i+1, "columns", len(row))
			continue
		}

		result, err := processEvalRow(row, config.Dir, opts)
		if err != nil {
			slog.Error("Error processing row", "row", i+1, "err", err)
			continue
		}

		results = append(results, result)
		printRowResult(result)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no rows were successfully processed")
	}

	return results, nil
}

func processEvalRow(row []string, dir string, opts grid.Options) (EvalResult, error) {
	fragmentsPath := filepath.Join(dir, strings.TrimSpace(row[0]))
	expectedPath := filepath.Join(dir, strings.TrimSpace(row[1]))

	expected, err := loadExpectedGrid(expectedPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read expected grid: %w", err)
	}

	fragments, err := annotations.Load(fragmentsPath)
	if err != nil {
		return EvalResult{}, err
	}

	result := EvalResult{
		Identifier:    filepath.Base(fragmentsPath),
		FragmentsPath: fragmentsPath,
		ExpectedPath:  expectedPath,
	}

	reconstructed, err := grid.Reconstruct(fragments, opts)
	switch {
	case errors.Is(err, grid.ErrNoDetections):
		result.NoDetections = true
	case err != nil:
		return EvalResult{}, err
	}

	result.Reconstructed = reconstructed.Grid.String()
	result.Dropped = len(reconstructed.Dropped)
	result.Collisions = len(reconstructed.Collisions)
	result.Comparison = grid.Compare(expected, reconstructed.Grid)

	return result, nil
}

func loadExpectedGrid(path string) (grid.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return grid.Grid{}, err
	}

	var g grid.Grid
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &g)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &g)
	default:
		g, err = grid.Parse(string(data))
	}
	return g, err
}

func saveEvalResults(summary EvalSummary, outputPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printRowResult(result EvalResult) {
	fmt.Printf("\n=== Results for %s ===\n", result.Identifier)
	fmt.Printf("Fragments: %s\n", result.FragmentsPath)
	fmt.Printf("Expected: %s\n", result.ExpectedPath)
	fmt.Printf("Shape: %dx%d (expected %dx%d)\n", result.ActualRows, result.ActualColumns, result.ExpectedRows, result.ExpectedColumns)
	fmt.Printf("Cell Accuracy: %.3f\n", result.CellAccuracy)
	fmt.Printf("Matched: %d\n", result.Matched)
	fmt.Printf("Mismatched: %d\n", result.Mismatched)
	fmt.Printf("Missing: %d\n", result.Missing)
	fmt.Printf("Extra: %d\n", result.Extra)
	fmt.Printf("Dropped Letters: %d\n", result.Dropped)
	fmt.Printf("Collisions: %d\n", result.Collisions)
}

func printSummaryStats(results []EvalResult) {
	if len(results) == 0 {
		return
	}

	var totalAccuracy float64
	shapeMatches := 0
	for _, result := range results {
		totalAccuracy += result.CellAccuracy
		if result.ShapeMatch {
			shapeMatches++
		}
	}

	count := float64(len(results))

	fmt.Printf("\n=== SUMMARY STATISTICS ===\n")
	fmt.Printf("Total Evaluations: %d\n", len(results))
	fmt.Printf("Average Cell Accuracy: %.3f\n", totalAccuracy/count)
	fmt.Printf("Shape Matches: %d/%d\n", shapeMatches, len(results))
}
