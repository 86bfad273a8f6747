package grid

import (
	"errors"
	"sync"
	"testing"
)

// letterAt returns a single-letter fragment centered on (x, y)
func letterAt(text string, x, y float64) Fragment {
	return Fragment{
		Text:        text,
		BoundingBox: BoundingBox{X: x - 0.04, Y: y - 0.04, Width: 0.08, Height: 0.08},
	}
}

func latticeFragments() []Fragment {
	return []Fragment{
		letterAt("G", 0.1, 0.1), letterAt("H", 0.5, 0.1), letterAt("I", 0.9, 0.1),
		letterAt("D", 0.1, 0.5), letterAt("E", 0.5, 0.5), letterAt("F", 0.9, 0.5),
		letterAt("A", 0.1, 0.9), letterAt("B", 0.5, 0.9), letterAt("C", 0.9, 0.9),
	}
}

func TestReconstructSingleLetter(t *testing.T) {
	result, err := Reconstruct([]Fragment{
		{Text: "A", BoundingBox: BoundingBox{X: 0, Y: 0, Width: 1, Height: 1}},
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}

	rows, columns := result.Grid.Shape()
	if rows != 1 || columns != 1 {
		t.Fatalf("Shape() = (%d, %d), want (1, 1)", rows, columns)
	}
	if letter, ok := result.Grid.At(0, 0).Letter(); !ok || letter != "A" {
		t.Errorf("At(0, 0) = (%q, %v), want (\"A\", true)", letter, ok)
	}
}

func TestReconstructLattice(t *testing.T) {
	fragments := latticeFragments()
	// input order must not matter
	fragments[0], fragments[8] = fragments[8], fragments[0]
	fragments[3], fragments[5] = fragments[5], fragments[3]

	result, err := Reconstruct(fragments, DefaultOptions())
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}

	expected, err := Parse("A B C\nD E F\nG H I")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !result.Grid.Equal(expected) {
		t.Errorf("Reconstruct() grid =\n%s\nwant\n%s", result.Grid, expected)
	}
	if len(result.Dropped) != 0 || len(result.Collisions) != 0 {
		t.Errorf("unexpected events: dropped=%v collisions=%v", result.Dropped, result.Collisions)
	}
}

func TestReconstructSparseGrid(t *testing.T) {
	fragments := []Fragment{
		letterAt("A", 0.1, 0.9),
		letterAt("B", 0.9, 0.9),
		letterAt("C", 0.5, 0.5),
		letterAt("D", 0.1, 0.1),
	}

	result, err := Reconstruct(fragments, DefaultOptions())
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if got, want := result.Grid.String(), "A . B\n. C .\nD . ."; got != want {
		t.Errorf("Reconstruct() grid =\n%s\nwant\n%s", got, want)
	}
	if result.Grid.FilledCount() != 4 {
		t.Errorf("FilledCount() = %d, want 4", result.Grid.FilledCount())
	}
}

func TestReconstructSplitsWords(t *testing.T) {
	// "CAT" across the top, "A" and "E" below C and T
	fragments := []Fragment{
		{Text: "CAT", BoundingBox: BoundingBox{X: 0.1, Y: 0.7, Width: 0.6, Height: 0.1}},
		{Text: "A", BoundingBox: BoundingBox{X: 0.1, Y: 0.5, Width: 0.2, Height: 0.1}},
		{Text: "E", BoundingBox: BoundingBox{X: 0.5, Y: 0.5, Width: 0.2, Height: 0.1}},
	}

	result, err := Reconstruct(fragments, DefaultOptions())
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if got, want := result.Grid.String(), "C A T\nA . E"; got != want {
		t.Errorf("Reconstruct() grid =\n%s\nwant\n%s", got, want)
	}
}

func TestReconstructNoDetections(t *testing.T) {
	tests := []struct {
		name      string
		fragments []Fragment
	}{
		{"nil", nil},
		{"empty", []Fragment{}},
		{"punctuation only", []Fragment{
			{Text: ".", BoundingBox: BoundingBox{Width: 0.1, Height: 0.1}},
			{Text: "-- !", BoundingBox: BoundingBox{X: 0.5, Width: 0.1, Height: 0.1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Reconstruct(tt.fragments, DefaultOptions())
			if !errors.Is(err, ErrNoDetections) {
				t.Fatalf("Reconstruct() error = %v, want ErrNoDetections", err)
			}
			if result.Grid.Rows() != 0 {
				t.Errorf("expected no grid, got %d rows", result.Grid.Rows())
			}
		})
	}
}

func TestReconstructInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero row tolerance", Options{RowTolerance: 0, ColumnTolerance: 0.1}},
		{"negative column tolerance", Options{RowTolerance: 0.1, ColumnTolerance: -1}},
		{"zero value options", Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconstruct(latticeFragments(), tt.opts)
			if !errors.Is(err, ErrInvalidTolerance) {
				t.Errorf("Reconstruct() error = %v, want ErrInvalidTolerance", err)
			}
		})
	}
}

func TestReconstructReportsCollisions(t *testing.T) {
	fragments := []Fragment{
		letterAt("A", 0.5, 0.5),
		letterAt("B", 0.52, 0.51),
	}

	result, err := Reconstruct(fragments, DefaultOptions())
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if letter, _ := result.Grid.At(0, 0).Letter(); letter != "B" {
		t.Errorf("At(0, 0) = %q, want last writer \"B\"", letter)
	}
	if len(result.Collisions) != 1 {
		t.Fatalf("Collisions = %v, want one", result.Collisions)
	}
	want := Collision{Row: 0, Column: 0, Previous: "A", Current: "B"}
	if result.Collisions[0] != want {
		t.Errorf("Collisions[0] = %+v, want %+v", result.Collisions[0], want)
	}
}

func TestReconstructDropsUnassignableLetters(t *testing.T) {
	// centers at Y=0.25 and Y=0.5 share one row cluster seeded at 0.25, but
	// 0.5 sits exactly on the band edge and matches no row
	fragments := []Fragment{
		{Text: "A", BoundingBox: BoundingBox{X: 0.125, Y: 0.125, Width: 0.25, Height: 0.25}},
		{Text: "B", BoundingBox: BoundingBox{X: 0.125, Y: 0.375, Width: 0.25, Height: 0.25}},
	}

	result, err := Reconstruct(fragments, Options{RowTolerance: 0.25, ColumnTolerance: 0.25})
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if got := result.Grid.String(); got != "A" {
		t.Errorf("grid = %q, want \"A\"", got)
	}
	if len(result.Dropped) != 1 {
		t.Fatalf("Dropped = %v, want one", result.Dropped)
	}
	if result.Dropped[0].Letter.Character != "B" || result.Dropped[0].Axis != "row" {
		t.Errorf("Dropped[0] = %+v, want B on row axis", result.Dropped[0])
	}
}

func TestReconstructGridIsRectangular(t *testing.T) {
	fragments := []Fragment{
		{Text: "WORD", BoundingBox: BoundingBox{X: 0.05, Y: 0.8, Width: 0.8, Height: 0.1}},
		{Text: "O", BoundingBox: BoundingBox{X: 0.25, Y: 0.6, Width: 0.2, Height: 0.1}},
		{Text: "X", BoundingBox: BoundingBox{X: 0.85, Y: 0.2, Width: 0.1, Height: 0.1}},
		{Text: "Y.", BoundingBox: BoundingBox{X: 0.02, Y: 0.4, Width: 0.1, Height: 0.1}},
	}

	result, err := Reconstruct(fragments, DefaultOptions())
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}

	rows, columns := result.Grid.Shape()
	cells := result.Grid.Cells()
	if len(cells) != rows {
		t.Fatalf("got %d rows of cells, Shape() says %d", len(cells), rows)
	}
	for r, row := range cells {
		if len(row) != columns {
			t.Errorf("row %d has %d cells, want %d", r, len(row), columns)
		}
	}
}

func TestReconstructConcurrentCalls(t *testing.T) {
	expected, err := Reconstruct(latticeFragments(), DefaultOptions())
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := Reconstruct(latticeFragments(), DefaultOptions())
			if err != nil {
				errs <- err.Error()
				return
			}
			if !result.Grid.Equal(expected.Grid) {
				errs <- result.Grid.String()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Errorf("concurrent reconstruction differed: %s", msg)
	}
}
