// Package grid turns a spreadsheet range with merged regions into a dense
// matrix where every cell of a merge carries the merge's value.
package grid

// Matrix is a row-major table of cell texts. Rows may be ragged; an empty
// string stands for an absent cell.
type Matrix [][]string

// Merge is a merged region, end-exclusive on both axes.
type Merge struct {
	StartRow int `json:"startRowIndex"`
	EndRow   int `json:"endRowIndex"`
	StartCol int `json:"startColumnIndex"`
	EndCol   int `json:"endColumnIndex"`
}

// Empty reports a degenerate rectangle.
func (m Merge) Empty() bool {
	return m.EndRow <= m.StartRow || m.EndCol <= m.StartCol || m.StartRow < 0 || m.StartCol < 0
}

// Sheet is what a spreadsheet source returns. Links is aligned with
// Values and may be nil when the source does not read hyperlinks.
type Sheet struct {
	Title  string
	Values Matrix
	Links  Matrix
	Merges []Merge
}

// Cell returns m[r][c] or "" when the position is out of range.
func (m Matrix) Cell(r, c int) string {
	if r < 0 || r >= len(m) || c < 0 || c >= len(m[r]) {
		return ""
	}
	return m[r][c]
}

// Width is the length of the longest row.
func (m Matrix) Width() int {
	w := 0
	for _, row := range m {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Normalize fills every merged region with the value of its top-left cell.
// The input is left untouched. Regions reaching past the current bounds
// grow the matrix; degenerate regions are skipped. Running Normalize on its
// own output with the same merges yields the same matrix.
func Normalize(m Matrix, merges []Merge) Matrix {
	out := m.Clone()

	for _, mg := range merges {
		if mg.Empty() {
			continue
		}

		out = ensure(out, mg.EndRow-1, mg.EndCol-1)

		v := out[mg.StartRow][mg.StartCol]
		for r := mg.StartRow; r < mg.EndRow; r++ {
			for c := mg.StartCol; c < mg.EndCol; c++ {
				out[r][c] = v
			}
		}
	}

	return out
}

// Expand normalizes both values and links of a sheet.
func Expand(s *Sheet) *Sheet {
	res := &Sheet{
		Title:  s.Title,
		Values: Normalize(s.Values, s.Merges),
		Merges: s.Merges,
	}
	if s.Links != nil {
		res.Links = Normalize(s.Links, s.Merges)
	}
	return res
}

func ensure(m Matrix, row, col int) Matrix {
	for len(m) <= row {
		m = append(m, nil)
	}
	for r := range m[:row+1] {
		if len(m[r]) <= col {
			m[r] = append(m[r], make([]string, col+1-len(m[r]))...)
		}
	}
	return m
}
