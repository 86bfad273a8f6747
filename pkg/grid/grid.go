package grid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// BlankMarker stands in for a blank cell in the text form of a grid.
// It is punctuation, so it can never be a recognized letter.
const BlankMarker = "."

// Cell is one grid position. A blank cell means nothing was detected there.
type Cell struct {
	letter string
	filled bool
}

// NewCell returns a cell holding letter
func NewCell(letter string) Cell {
	return Cell{letter: letter, filled: true}
}

// Letter returns the cell's letter and whether the cell holds one
func (c Cell) Letter() (string, bool) {
	return c.letter, c.filled
}

// IsBlank reports whether no letter was assigned to the cell
func (c Cell) IsBlank() bool {
	return !c.filled
}

func (c Cell) String() string {
	if !c.filled {
		return BlankMarker
	}
	return c.letter
}

// MarshalJSON encodes blank cells as null
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.filled {
		return []byte("null"), nil
	}
	return json.Marshal(c.letter)
}

// UnmarshalJSON accepts null or a non-empty string
func (c *Cell) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Cell{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cell must be a string or null: %w", err)
	}
	return c.setDecoded(s)
}

// MarshalYAML encodes blank cells as null
func (c Cell) MarshalYAML() (interface{}, error) {
	if !c.filled {
		return nil, nil
	}
	return c.letter, nil
}

// UnmarshalYAML accepts null or a non-empty string
func (c *Cell) UnmarshalYAML(value *yaml.Node) error {
	if value.ShortTag() == "!!null" {
		*c = Cell{}
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("cell must be a string or null: %w", err)
	}
	return c.setDecoded(s)
}

func (c *Cell) setDecoded(s string) error {
	if s == "" {
		return fmt.Errorf("empty cell letter, use null for blank cells")
	}
	*c = NewCell(s)
	return nil
}

// Grid is a rectangular rows × columns array of cells. Row 0 is the top of
// the captured image and column 0 its left edge.
type Grid struct {
	cells [][]Cell
}

// NewGrid allocates a grid of blank cells
func NewGrid(rows, columns int) Grid {
	if rows <= 0 || columns <= 0 {
		return Grid{}
	}
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, columns)
	}
	return Grid{cells: cells}
}

// FromCells builds a grid from rows of cells, rejecting jagged input
func FromCells(cells [][]Cell) (Grid, error) {
	if len(cells) == 0 {
		return Grid{}, nil
	}
	columns := len(cells[0])
	if columns == 0 {
		for r, row := range cells {
			if len(row) != 0 {
				return Grid{}, fmt.Errorf("row %d has %d cells, expected 0", r, len(row))
			}
		}
		return Grid{}, nil
	}
	g := NewGrid(len(cells), columns)
	for r, row := range cells {
		if len(row) != columns {
			return Grid{}, fmt.Errorf("row %d has %d cells, expected %d", r, len(row), columns)
		}
		copy(g.cells[r], row)
	}
	return g, nil
}

// Parse reads the text form produced by Grid.String: one line per row,
// cells separated by whitespace, BlankMarker for blank cells.
func Parse(text string) (Grid, error) {
	var cells [][]Cell
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		row := make([]Cell, len(fields))
		for i, field := range fields {
			if field != BlankMarker {
				row[i] = NewCell(field)
			}
		}
		cells = append(cells, row)
	}
	return FromCells(cells)
}

// Rows returns the number of rows
func (g Grid) Rows() int {
	return len(g.cells)
}

// Columns returns the number of columns
func (g Grid) Columns() int {
	if len(g.cells) == 0 {
		return 0
	}
	return len(g.cells[0])
}

// Shape returns rows and columns
func (g Grid) Shape() (int, int) {
	return g.Rows(), g.Columns()
}

// At returns the cell at row, column. Positions outside the grid are blank.
func (g Grid) At(row, column int) Cell {
	if row < 0 || row >= g.Rows() || column < 0 || column >= g.Columns() {
		return Cell{}
	}
	return g.cells[row][column]
}

// Cells returns a copy of the cells
func (g Grid) Cells() [][]Cell {
	out := make([][]Cell, len(g.cells))
	for r, row := range g.cells {
		out[r] = append([]Cell(nil), row...)
	}
	return out
}

// FilledCount returns how many cells hold a letter
func (g Grid) FilledCount() int {
	n := 0
	for _, row := range g.cells {
		for _, cell := range row {
			if cell.filled {
				n++
			}
		}
	}
	return n
}

// Equal reports whether both grids have the same shape and letters
func (g Grid) Equal(other Grid) bool {
	if g.Rows() != other.Rows() || g.Columns() != other.Columns() {
		return false
	}
	for r, row := range g.cells {
		for c, cell := range row {
			if cell != other.cells[r][c] {
				return false
			}
		}
	}
	return true
}

func (g Grid) String() string {
	var sb strings.Builder
	for r, row := range g.cells {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c, cell := range row {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(cell.String())
		}
	}
	return sb.String()
}

// set writes letter into a cell and returns what was there before
func (g Grid) set(row, column int, letter string) Cell {
	previous := g.cells[row][column]
	g.cells[row][column] = NewCell(letter)
	return previous
}

type gridDocument struct {
	Rows    int      `json:"rows" yaml:"rows"`
	Columns int      `json:"columns" yaml:"columns"`
	Cells   [][]Cell `json:"cells" yaml:"cells"`
}

func (g Grid) document() gridDocument {
	cells := g.Cells()
	if cells == nil {
		cells = [][]Cell{}
	}
	return gridDocument{Rows: g.Rows(), Columns: g.Columns(), Cells: cells}
}

func (g *Grid) fromDocument(doc gridDocument) error {
	parsed, err := FromCells(doc.Cells)
	if err != nil {
		return err
	}
	if doc.Rows != 0 && doc.Rows != parsed.Rows() {
		return fmt.Errorf("grid declares %d rows but has %d", doc.Rows, parsed.Rows())
	}
	if doc.Columns != 0 && doc.Columns != parsed.Columns() {
		return fmt.Errorf("grid declares %d columns but has %d", doc.Columns, parsed.Columns())
	}
	*g = parsed
	return nil
}

// MarshalJSON encodes the grid as {rows, columns, cells}
func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.document())
}

// UnmarshalJSON decodes {rows, columns, cells}
func (g *Grid) UnmarshalJSON(data []byte) error {
	var doc gridDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return g.fromDocument(doc)
}

// MarshalYAML encodes the grid as {rows, columns, cells}
func (g Grid) MarshalYAML() (interface{}, error) {
	return g.document(), nil
}

// UnmarshalYAML decodes {rows, columns, cells}.
// Cells are read as nodes first: yaml skips null sequence items when
// decoding straight into a struct, which would drop blank cells.
func (g *Grid) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Rows    int           `yaml:"rows"`
		Columns int           `yaml:"columns"`
		Cells   [][]yaml.Node `yaml:"cells"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	doc := gridDocument{Rows: raw.Rows, Columns: raw.Columns, Cells: make([][]Cell, len(raw.Cells))}
	for r, row := range raw.Cells {
		doc.Cells[r] = make([]Cell, len(row))
		for c := range row {
			if err := doc.Cells[r][c].UnmarshalYAML(&row[c]); err != nil {
				return fmt.Errorf("row %d column %d: %w", r, c, err)
			}
		}
	}
	return g.fromDocument(doc)
}
