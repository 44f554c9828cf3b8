package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

func setupWriter(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	dir := t.TempDir()
	return NewCSVWriter(&config.Paths{ReportsDir: filepath.Join(dir, "reports")}, nil), dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		options  WriteOptions
		wantRows int
	}{
		{
			name:     "headers and records",
			file:     "out.csv",
			options:  WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}, {"3", "4"}}, BOMPrefix: true},
			wantRows: 3,
		},
		{
			name:     "nested relative path",
			file:     "sub/out.csv",
			options:  WriteOptions{Headers: []string{"a"}, BOMPrefix: true},
			wantRows: 1,
		},
		{
			name:     "quoted values",
			file:     "quoted.csv",
			options:  WriteOptions{Headers: []string{"name"}, Records: [][]string{{"Doe, Jane"}, {`say "hi"`}}, BOMPrefix: true},
			wantRows: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, dir := setupWriter(t)
			path, err := w.WriteCSV(tt.file, tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "reports", tt.file), path)
			assert.Len(t, readCSV(t, path), tt.wantRows)
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	w, _ := setupWriter(t)
	path, err := w.WriteSimpleCSV("log.csv", []string{"x"}, [][]string{{"1"}})
	require.NoError(t, err)
	_, err = w.WriteCSV("log.csv", WriteOptions{Records: [][]string{{"2"}}, Append: true, BOMPrefix: true})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"x"}, {"1"}, {"2"}}, readCSV(t, path))
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	w, dir := setupWriter(t)
	abs := filepath.Join(dir, "elsewhere", "x.csv")
	path, err := w.WriteSimpleCSV(abs, []string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestExportSnapshot(t *testing.T) {
	w, _ := setupWriter(t)
	at := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	snap := &domain.Snapshot{Records: []domain.NormalizedRecord{
		{CourseType: "C1", FileName: "f_27_Janv.xlsx", ExtractedAt: &at, EmailNorm: "a@x.io", StudentID: "1", Hours: "1,5", Verdict: "Passed"},
		{CourseType: "C1", FileName: "undated.xlsx", EmailNorm: "b@x.io"},
	}}

	path, err := w.ExportSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, config.SnapshotExportName, filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, SnapshotHeaders, rows[0])
	assert.Equal(t, "2026-01-27", rows[1][2])
	assert.Equal(t, "1,5", rows[1][7])
	assert.Equal(t, "", rows[2][2])
}

func TestExportCourseKPIs(t *testing.T) {
	w, _ := setupWriter(t)
	rate := 66.666
	path, err := w.ExportCourseKPIs([]domain.CourseKPI{
		{Course: "C1", Label: "Course one", Students: 3, Passed: 2, PassRate: &rate, Inactive: 1},
	})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, KPIHeaders, rows[0])
	assert.Equal(t, []string{"C1", "Course one", "3", "2", "66.67", "", "", "", "1", "", ""}, rows[1])
}
