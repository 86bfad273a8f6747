package grid

import (
	"encoding/json"
	"strings"
	"testing"

	yaml "go.yaml.in/yaml/v3"
)

func mustParse(t *testing.T, text string) Grid {
	t.Helper()
	g, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	return g
}

func TestNewGridIsBlank(t *testing.T) {
	g := NewGrid(2, 3)
	rows, columns := g.Shape()
	if rows != 2 || columns != 3 {
		t.Fatalf("Shape() = (%d, %d), want (2, 3)", rows, columns)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < columns; c++ {
			if !g.At(r, c).IsBlank() {
				t.Errorf("At(%d, %d) is not blank", r, c)
			}
		}
	}
	if g.FilledCount() != 0 {
		t.Errorf("FilledCount() = %d, want 0", g.FilledCount())
	}
}

func TestNewGridDegenerateShape(t *testing.T) {
	for _, shape := range [][2]int{{0, 3}, {3, 0}, {-1, 2}} {
		g := NewGrid(shape[0], shape[1])
		if rows, columns := g.Shape(); rows != 0 || columns != 0 {
			t.Errorf("NewGrid(%d, %d).Shape() = (%d, %d), want (0, 0)", shape[0], shape[1], rows, columns)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	g := mustParse(t, "A B")
	for _, pos := range [][2]int{{-1, 0}, {0, -1}, {1, 0}, {0, 2}} {
		if !g.At(pos[0], pos[1]).IsBlank() {
			t.Errorf("At(%d, %d) should be blank", pos[0], pos[1])
		}
	}
}

func TestParseAndString(t *testing.T) {
	text := "A . B\n. C .\nD E F"
	g := mustParse(t, text)

	if got := g.String(); got != text {
		t.Errorf("String() = %q, want %q", got, text)
	}
	if letter, ok := g.At(1, 1).Letter(); !ok || letter != "C" {
		t.Errorf("At(1, 1) = (%q, %v), want (\"C\", true)", letter, ok)
	}
	if !g.At(0, 1).IsBlank() {
		t.Error("At(0, 1) should be blank")
	}
}

func TestParseRejectsJaggedRows(t *testing.T) {
	if _, err := Parse("A B C\nD E"); err == nil {
		t.Error("Parse() should reject jagged rows")
	}
}

func TestCellsReturnsCopy(t *testing.T) {
	g := mustParse(t, "A B")
	cells := g.Cells()
	cells[0][0] = NewCell("Z")
	if letter, _ := g.At(0, 0).Letter(); letter != "A" {
		t.Errorf("modifying Cells() changed the grid: At(0, 0) = %q", letter)
	}
}

func TestGridJSON(t *testing.T) {
	g := mustParse(t, "A .\n. B")

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"rows":2,"columns":2,"cells":[["A",null],[null,"B"]]}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}

	var decoded Grid
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !decoded.Equal(g) {
		t.Errorf("decoded grid =\n%s\nwant\n%s", decoded, g)
	}
}

func TestGridJSONRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"jagged", `{"cells":[["A","B"],["C"]]}`},
		{"empty string cell", `{"cells":[["A",""]]}`},
		{"wrong row count", `{"rows":3,"cells":[["A"]]}`},
		{"wrong column count", `{"columns":2,"cells":[["A"]]}`},
		{"number cell", `{"cells":[[1]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Grid
			if err := json.Unmarshal([]byte(tt.data), &g); err == nil {
				t.Errorf("json.Unmarshal(%s) should fail", tt.data)
			}
		})
	}
}

func TestGridYAML(t *testing.T) {
	g := mustParse(t, "A .\n. B")

	data, err := yaml.Marshal(g)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), "null") {
		t.Errorf("blank cells should be encoded as null:\n%s", data)
	}

	var decoded Grid
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if !decoded.Equal(g) {
		t.Errorf("decoded grid =\n%s\nwant\n%s", decoded, g)
	}
}

func TestGridYAMLGroundTruth(t *testing.T) {
	doc := `
cells:
  - [C, A, T]
  - [A, ~, E]
`
	var g Grid
	if err := yaml.Unmarshal([]byte(doc), &g); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if got := g.String(); got != "C A T\nA . E" {
		t.Errorf("decoded grid = %q", got)
	}
}

func TestGridYAMLKeepsBlankCells(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected string
	}{
		{
			name:     "blank at row end and row start",
			doc:      "cells:\n  - [A, ~]\n  - [~, B]\n",
			expected: "A .\n. B",
		},
		{
			name:     "blank in the middle",
			doc:      "cells:\n  - [A, ~, B]\n",
			expected: "A . B",
		},
		{
			name:     "null spelled out in block style",
			doc:      "rows: 2\ncolumns: 2\ncells:\n  - - null\n    - null\n  - - Q\n    - null\n",
			expected: ". .\nQ .",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Grid
			if err := yaml.Unmarshal([]byte(tt.doc), &g); err != nil {
				t.Fatalf("yaml.Unmarshal() error = %v", err)
			}
			if got := g.String(); got != tt.expected {
				t.Errorf("decoded grid = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGridYAMLInvalid(t *testing.T) {
	for _, doc := range []string{
		"cells:\n  - [A, B]\n  - [C]\n",
		"rows: 3\ncells:\n  - [A]\n",
		"cells:\n  - [A, \"\"]\n",
		"cells:\n  - [[A]]\n",
	} {
		var g Grid
		if err := yaml.Unmarshal([]byte(doc), &g); err == nil {
			t.Errorf("yaml.Unmarshal(%q) should fail, got %q", doc, g)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     Comparison
	}{
		{
			name:     "identical",
			expected: "A B\nC .",
			actual:   "A B\nC .",
			want: Comparison{
				ShapeMatch: true, ExpectedRows: 2, ExpectedColumns: 2, ActualRows: 2, ActualColumns: 2,
				Matched: 3, CellAccuracy: 1,
			},
		},
		{
			name:     "one wrong one missing",
			expected: "A B\nC D",
			actual:   "A X\nC .",
			want: Comparison{
				ShapeMatch: true, ExpectedRows: 2, ExpectedColumns: 2, ActualRows: 2, ActualColumns: 2,
				Matched: 2, Mismatched: 1, Missing: 1, CellAccuracy: 0.5,
			},
		},
		{
			name:     "extra column",
			expected: "A B",
			actual:   "A B C",
			want: Comparison{
				ShapeMatch: false, ExpectedRows: 1, ExpectedColumns: 2, ActualRows: 1, ActualColumns: 3,
				Matched: 2, Extra: 1, CellAccuracy: 2.0 / 3.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(mustParse(t, tt.expected), mustParse(t, tt.actual))
			if got != tt.want {
				t.Errorf("Compare() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCompareEmptyGrids(t *testing.T) {
	got := Compare(Grid{}, Grid{})
	if !got.ShapeMatch || got.CellAccuracy != 1 {
		t.Errorf("Compare(empty, empty) = %+v", got)
	}
}
