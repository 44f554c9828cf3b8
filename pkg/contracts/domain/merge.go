package domain

// Sheet is a header-promoted table read from one worksheet. Rows are padded or
// truncated to len(Header) by the readers that build them.
type Sheet struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ColumnIndex returns the position of the named header or -1.
func (s *Sheet) ColumnIndex(name string) int {
	for i, h := range s.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row i for the named column, or "".
func (s *Sheet) Cell(i int, name string) string {
	j := s.ColumnIndex(name)
	if j < 0 || i < 0 || i >= len(s.Rows) || j >= len(s.Rows[i]) {
		return ""
	}
	return s.Rows[i][j]
}

// MergeRequest is the input of the extraction-generation workflow.
type MergeRequest struct {
	GradebookName string
	Gradebook     []byte
	HoursName     string
	Hours         []byte
	TargetSheet   string
	OutputName    string
}

// HoursMapping records which physical hours-export column backs each role.
type HoursMapping struct {
	Code  string `json:"code"`
	First string `json:"first"`
	Last  string `json:"last"`
	Email string `json:"email"`
	Hours string `json:"hours"`
}

// MergeResult is the merged target sheet plus the untouched companion sheets.
type MergeResult struct {
	TargetSheet string       `json:"target_sheet"`
	Merged      Sheet        `json:"merged"`
	Passthrough []Sheet      `json:"passthrough"`
	Mapping     HoursMapping `json:"mapping"`
	RowCount    int          `json:"row_count"`
}

// MergeOutput is the serialized workbook ready for download.
type MergeOutput struct {
	FileName string
	Content  []byte
	RowCount int
}
