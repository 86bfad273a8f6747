package grid

// Comparison scores a reconstructed grid against an expected one.
// Positions blank in both grids are not counted.
type Comparison struct {
	ShapeMatch      bool    `json:"shape_match" yaml:"shape_match"`
	ExpectedRows    int     `json:"expected_rows" yaml:"expected_rows"`
	ExpectedColumns int     `json:"expected_columns" yaml:"expected_columns"`
	ActualRows      int     `json:"actual_rows" yaml:"actual_rows"`
	ActualColumns   int     `json:"actual_columns" yaml:"actual_columns"`
	Matched         int     `json:"matched" yaml:"matched"`
	Mismatched      int     `json:"mismatched" yaml:"mismatched"`
	Missing         int     `json:"missing" yaml:"missing"`
	Extra           int     `json:"extra" yaml:"extra"`
	CellAccuracy    float64 `json:"cell_accuracy" yaml:"cell_accuracy"`
}

// Compare lines both grids up at their top-left corner and compares them
// cell by cell.
func Compare(expected, actual Grid) Comparison {
	cmp := Comparison{
		ExpectedRows:    expected.Rows(),
		ExpectedColumns: expected.Columns(),
		ActualRows:      actual.Rows(),
		ActualColumns:   actual.Columns(),
	}
	cmp.ShapeMatch = cmp.ExpectedRows == cmp.ActualRows && cmp.ExpectedColumns == cmp.ActualColumns

	rows := max(cmp.ExpectedRows, cmp.ActualRows)
	columns := max(cmp.ExpectedColumns, cmp.ActualColumns)
	for r := 0; r < rows; r++ {
		for c := 0; c < columns; c++ {
			want, wantOK := expected.At(r, c).Letter()
			got, gotOK := actual.At(r, c).Letter()
			switch {
			case !wantOK && !gotOK:
			case wantOK && !gotOK:
				cmp.Missing++
			case !wantOK && gotOK:
				cmp.Extra++
			case want == got:
				cmp.Matched++
			default:
				cmp.Mismatched++
			}
		}
	}

	total := cmp.Matched + cmp.Mismatched + cmp.Missing + cmp.Extra
	if total == 0 {
		cmp.CellAccuracy = 1
	} else {
		cmp.CellAccuracy = float64(cmp.Matched) / float64(total)
	}
	return cmp
}
