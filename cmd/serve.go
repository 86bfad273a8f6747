package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bananasnap/gridsnap/pkg/grid"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const maxRequestBytes = 1 << 20

var (
	servePort string
	serveHost string
)

type gridRequest struct {
	Fragments       []grid.Fragment `json:"fragments"`
	RowTolerance    *float64        `json:"rowTolerance,omitempty"`
	ColumnTolerance *float64        `json:"columnTolerance,omitempty"`
}

type gridResponse struct {
	ID         string               `json:"id"`
	Rows       int                  `json:"rows"`
	Columns    int                  `json:"columns"`
	Cells      [][]grid.Cell        `json:"cells"`
	Dropped    []grid.DroppedLetter `json:"dropped"`
	Collisions []grid.Collision     `json:"collisions"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the grid reconstruction HTTP API",
	Long: `Start a web server that rebuilds grids from posted detections.

  POST /api/grid  {"fragments": [{"text": "A", "boundingBox": {...}}], "rowTolerance": 0.1}
  GET  /healthz`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "8888", "Port to run the web server on")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to bind the web server to")
	addToleranceFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%s", serveHost, servePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           newServeMux(cfg.GridOptions()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Grid API available", "url", fmt.Sprintf("http://%s", addr), "row_tolerance", cfg.RowTolerance, "column_tolerance", cfg.ColumnTolerance)
	return server.ListenAndServe()
}

func newServeMux(defaults grid.Options) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("POST /api/grid", func(w http.ResponseWriter, r *http.Request) {
		handleGrid(w, r, defaults)
	})
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func handleGrid(w http.ResponseWriter, r *http.Request, defaults grid.Options) {
	var request gridRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&request); err != nil {
		respondWithError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := defaults
	if request.RowTolerance != nil {
		opts.RowTolerance = *request.RowTolerance
	}
	if request.ColumnTolerance != nil {
		opts.ColumnTolerance = *request.ColumnTolerance
	}

	id := uuid.NewString()
	result, err := grid.Reconstruct(request.Fragments, opts)
	switch {
	case errors.Is(err, grid.ErrNoDetections):
		slog.Info("Grid request without detections", "id", id, "fragments", len(request.Fragments))
		respondWithError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, grid.ErrInvalidTolerance):
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("Grid reconstruction failed", "id", id, "err", err)
		respondWithError(w, "reconstruction failed", http.StatusInternalServerError)
		return
	}

	rows, columns := result.Grid.Shape()
	slog.Info("Grid request served", "id", id, "rows", rows, "columns", columns, "dropped", len(result.Dropped), "collisions", len(result.Collisions))

	response := gridResponse{
		ID:         id,
		Rows:       rows,
		Columns:    columns,
		Cells:      result.Grid.Cells(),
		Dropped:    result.Dropped,
		Collisions: result.Collisions,
	}
	if response.Dropped == nil {
		response.Dropped = []grid.DroppedLetter{}
	}
	if response.Collisions == nil {
		response.Collisions = []grid.Collision{}
	}

	respondWithJSON(w, response, http.StatusOK)
}

func respondWithJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "err", err)
	}
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	respondWithJSON(w, map[string]string{"error": message}, statusCode)
}
