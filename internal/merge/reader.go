// Package merge generates extraction workbooks: it joins a Blackboard
// gradebook with an hours export and injects a live Verdict formula.
package merge

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/ingest"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// LegacySheetName names the single sheet of a tab-separated ".xls" export.
const LegacySheetName = config.FallbackSheet

// oleSignature opens every binary (BIFF) .xls workbook.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var (
	// ErrBinaryXLS marks a real Excel 97-2003 workbook, which cannot be read.
	ErrBinaryXLS = errors.New("binary .xls workbook, save it as .xlsx")

	errNotUTF16 = errors.New("export is not valid UTF-16 text")
)

// rawSheet is one worksheet before header promotion.
type rawSheet struct {
	name string
	rows [][]string
}

func openSheets(data []byte) ([]rawSheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []rawSheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		out = append(out, rawSheet{name: name, rows: ingest.PadRows(rows)})
	}
	return out, nil
}

// ReadGradebook reads every sheet of a gradebook download with its first row
// promoted to a cleaned, de-duplicated header. A ".xls" that is not a
// spreadsheet is decoded as the tab-separated UTF-16 text Blackboard emits
// under that extension.
func ReadGradebook(name string, data []byte) ([]domain.Sheet, error) {
	sheets, err := openSheets(data)
	if err != nil {
		if !strings.EqualFold(filepath.Ext(name), ".xls") {
			return nil, apperrors.NewParsingError("cannot read gradebook "+name, err).
				WithContext("file", name)
		}
		rows, terr := DecodeTabular(data)
		if terr != nil {
			return nil, apperrors.NewParsingError("cannot read gradebook "+name, errors.Join(err, terr)).
				WithContext("file", name)
		}
		sheets = []rawSheet{{name: LegacySheetName, rows: rows}}
	}

	out := make([]domain.Sheet, 0, len(sheets))
	for _, s := range sheets {
		out = append(out, promote(s.name, s.rows, 0))
	}
	return out, nil
}

// ReadHoursExport reads the first sheet of an hours export. The first
// skipRows rows are report metadata; the next row is the header.
func ReadHoursExport(name string, data []byte, skipRows int) (domain.Sheet, error) {
	sheets, err := openSheets(data)
	if err != nil {
		return domain.Sheet{}, apperrors.NewParsingError("cannot read hours export "+name, err).
			WithContext("file", name)
	}
	if len(sheets) == 0 || len(sheets[0].rows) <= skipRows {
		return domain.Sheet{}, apperrors.NewStructureError("hours export has no header row", nil).
			WithContext("file", name).
			WithContext("skipped_rows", skipRows)
	}
	return promote(sheets[0].name, sheets[0].rows, skipRows), nil
}

// promote uses rows[headerRow] as the header. Empty header cells become
// "Unnamed" and every column is kept.
func promote(name string, rows [][]string, headerRow int) domain.Sheet {
	s := domain.Sheet{Name: name}
	if headerRow >= len(rows) {
		return s
	}
	s.Header = textnorm.DedupeHeaders(rows[headerRow])
	width := len(s.Header)
	for _, r := range rows[headerRow+1:] {
		row := make([]string, width)
		copy(row, r)
		s.Rows = append(s.Rows, row)
	}
	return s
}

// DecodeTabular decodes UTF-16 tab-separated text. A byte order mark selects
// the endianness; without one little-endian is assumed. Binary workbooks and
// input with invalid UTF-16 sequences are rejected.
func DecodeTabular(data []byte) ([][]string, error) {
	if bytes.HasPrefix(data, oleSignature) {
		return nil, ErrBinaryXLS
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), dec))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, field := range rec {
			if strings.ContainsRune(field, utf8.RuneError) {
				return nil, errNotUTF16
			}
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows in tab-separated export")
	}
	return ingest.PadRows(rows), nil
}
