// Package grid rebuilds a rectangular letter grid from unordered text
// detections, as found in photos of tile-based word games.
//
// Detections are split into letters, letter centers are clustered per axis
// into rows and columns, and each letter is placed into the cell where its
// row and column meet. Coordinates are normalized to [0,1] with the origin
// at the bottom-left, so the row with the highest Y becomes row 0.
package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// DefaultTolerance is the row and column tolerance, in normalized units
const DefaultTolerance = 0.1

var (
	// ErrNoDetections is returned when no letter survives filtering
	ErrNoDetections = errors.New("no detections")
	// ErrInvalidTolerance is returned for tolerances that are not positive finite numbers
	ErrInvalidTolerance = errors.New("invalid tolerance")
)

// Options tunes reconstruction
type Options struct {
	RowTolerance    float64 `json:"rowTolerance" yaml:"row_tolerance"`
	ColumnTolerance float64 `json:"columnTolerance" yaml:"column_tolerance"`
}

// DefaultOptions returns the tolerances tuned for phone captures of tiles
func DefaultOptions() Options {
	return Options{
		RowTolerance:    DefaultTolerance,
		ColumnTolerance: DefaultTolerance,
	}
}

// Validate checks both tolerances
func (o Options) Validate() error {
	if !validTolerance(o.RowTolerance) {
		return fmt.Errorf("%w: row tolerance %v", ErrInvalidTolerance, o.RowTolerance)
	}
	if !validTolerance(o.ColumnTolerance) {
		return fmt.Errorf("%w: column tolerance %v", ErrInvalidTolerance, o.ColumnTolerance)
	}
	return nil
}

func validTolerance(t float64) bool {
	return t > 0 && !math.IsInf(t, 0) && !math.IsNaN(t)
}

// DroppedLetter is a letter whose center fell outside every row or column band
type DroppedLetter struct {
	Letter ObservedLetter `json:"letter" yaml:"letter"`
	Axis   string         `json:"axis" yaml:"axis"`
}

// Collision records two letters that were assigned to the same cell.
// The later letter replaced the earlier one.
type Collision struct {
	Row      int    `json:"row" yaml:"row"`
	Column   int    `json:"column" yaml:"column"`
	Previous string `json:"previous" yaml:"previous"`
	Current  string `json:"current" yaml:"current"`
}

// Result is the outcome of a successful reconstruction
type Result struct {
	Grid       Grid            `json:"grid" yaml:"grid"`
	Dropped    []DroppedLetter `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Collisions []Collision     `json:"collisions,omitempty" yaml:"collisions,omitempty"`
}

// Reconstruct builds the letter grid implied by fragments.
//
// It returns ErrNoDetections when no fragment contains a letter. Letters that
// cannot be placed and letters that overwrite each other do not fail the
// call; they are listed in the Result.
func Reconstruct(fragments []Fragment, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	letters := SplitFragments(fragments)
	if len(letters) == 0 {
		return Result{}, ErrNoDetections
	}

	rows := ClusterAxis(centers(letters, BoundingBox.MidY), opts.RowTolerance)
	columns := ClusterAxis(centers(letters, BoundingBox.MidX), opts.ColumnTolerance)
	slog.Debug("Inferred grid size", "letters", len(letters), "rows", rows.Len(), "columns", columns.Len())

	var result Result
	result.Grid = NewGrid(rows.Len(), columns.Len())

	for _, letter := range letters {
		row, ok := rows.Locate(letter.BoundingBox.MidY(), Descending)
		if !ok {
			slog.Warn("Unable to find row for letter", "letter", letter.Character, "mid_y", letter.BoundingBox.MidY())
			result.Dropped = append(result.Dropped, DroppedLetter{Letter: letter, Axis: "row"})
			continue
		}
		column, ok := columns.Locate(letter.BoundingBox.MidX(), Ascending)
		if !ok {
			slog.Warn("Unable to find column for letter", "letter", letter.Character, "mid_x", letter.BoundingBox.MidX())
			result.Dropped = append(result.Dropped, DroppedLetter{Letter: letter, Axis: "column"})
			continue
		}

		previous := result.Grid.set(row, column, letter.Character)
		if prev, filled := previous.Letter(); filled {
			slog.Warn("Letter overwrote another in the same cell", "row", row, "column", column, "previous", prev, "current", letter.Character)
			result.Collisions = append(result.Collisions, Collision{
				Row:      row,
				Column:   column,
				Previous: prev,
				Current:  letter.Character,
			})
		}
	}

	return result, nil
}
