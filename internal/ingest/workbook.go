package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
)

// ReadFirstSheet returns every row of the first worksheet of the workbook at
// path as raw cell text. Rows are padded with "" to the widest row.
func ReadFirstSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	// Raw values keep "0.6" from being rendered as "1" or "60%" by the cell
	// number format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return PadRows(rows), nil
}

// PadRows makes rows rectangular and trims every cell.
func PadRows(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		padded := make([]string, width)
		for j, v := range r {
			padded[j] = strings.TrimSpace(v)
		}
		out[i] = padded
	}
	return out
}

// Table is a header-promoted sheet: Header holds cleaned, unique column names
// and every row of Rows has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of name in the header, or -1.
func (t *Table) Column(name string) int {
	if name == "" {
		return -1
	}
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// PromoteHeader uses rows[headerRow] as the header, drops the rows above it
// and every column whose cleaned header is empty.
func PromoteHeader(rows [][]string, headerRow int) *Table {
	if headerRow < 0 || headerRow >= len(rows) {
		return &Table{}
	}

	raw := rows[headerRow]
	var keep []int
	var names []string
	for i, h := range raw {
		if textnorm.CleanHeader(h) == "" {
			continue
		}
		keep = append(keep, i)
		names = append(names, h)
	}

	t := &Table{Header: textnorm.DedupeHeaders(names)}
	for _, r := range rows[headerRow+1:] {
		row := make([]string, len(keep))
		for j, idx := range keep {
			if idx < len(r) {
				row[j] = r[idx]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
