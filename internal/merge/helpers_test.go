package merge

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

type sheetRows struct {
	name string
	rows [][]any
}

// workbook builds an in-memory xlsx holding the given sheets in order.
func workbook(t *testing.T, sheets ...sheetRows) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			vals := row
			require.NoError(t, f.SetSheetRow(s.name, cell, &vals))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

var gradebookRows = [][]any{
	{"Last Name", "First Name", "Username", "Student ID", "Last Access", "Availability", "Overall Grade [Total Pts: 100] |42", "Quiz 1 |7"},
	{"Doe", "Jane", "e100", "999", "2026-01-01", "Yes", 55, 10},
	{"Roe", "Rick", "e200", "998", "2026-01-01", "Yes", 90, 9},
	{"Poe", "Paula", "e300", "997", "", "Yes", 70, 8},
}

var hoursRows = [][]any{
	{"Rapport de temps"},
	{"Cours: AI-101"},
	{"Genere le 27/01/2026"},
	{"Nom", "Prénom", "Code d'étudiant", "Adresse e-mail", "Temps passé dans le cours (en heures)"},
	{"Doe", "Jane", "e100", "Jane@School.edu", "0,6"},
	{"Doe", "Jane", "e100", "", "0.2"},
	{"Roe", "Rick", "e999", "rick@school.edu", "0.4"},
	{"Poe", "Paula", "e300", "", "2"},
	{"Poe", "Paula", "e301", "paula@school.edu", "0.1"},
}

func gradebook(t *testing.T) []byte {
	return workbook(t,
		sheetRows{name: "Grades", rows: gradebookRows},
		sheetRows{name: "Notes", rows: [][]any{{"Info"}, {"exported by Blackboard"}}},
	)
}

func hoursExport(t *testing.T) []byte {
	return workbook(t, sheetRows{name: "Report", rows: hoursRows})
}

// utf16TSV encodes tab-separated lines as UTF-16LE with a byte order mark.
func utf16TSV(t *testing.T, lines ...string) []byte {
	t.Helper()
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l + "\r\n")
	}
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes(b.Bytes())
	require.NoError(t, err)
	return out
}
