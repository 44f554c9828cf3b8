package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	if !mod.IsZero() {
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
}

func TestNewDiscovery(t *testing.T) {
	discovery := NewDiscovery("/test/base")
	assert.NotNil(t, discovery)
	assert.Equal(t, "/test/base", discovery.basePath)
}

func TestIsWorkbook(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"grades_27_Janv.xlsx", true},
		{"GRADES.XLSX", true},
		{"~$grades_27_Janv.xlsx", false},
		{"legacy.xls", false},
		{"export.csv", false},
		{".tmp-out.xlsx-1234", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWorkbook(tt.name))
		})
	}
}

func TestFindWorkbooks(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"b_03_Fev.xlsx", "a_27_Janv.xlsx", "~$a_27_Janv.xlsx", "notes.txt", "old.xls"} {
		touch(t, filepath.Join(tmpDir, "2526ALL_OL_GENAI_00", name), time.Time{})
	}
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "2526ALL_OL_GENAI_00", "nested.xlsx"), 0755))

	discovery := NewDiscovery(tmpDir)
	got, err := discovery.FindWorkbooks("2526ALL_OL_GENAI_00")
	require.NoError(t, err)

	var names []string
	for _, f := range got {
		names = append(names, f.Name)
		assert.True(t, filepath.IsAbs(f.Path) || filepath.IsAbs(tmpDir))
	}
	assert.Equal(t, []string{"a_27_Janv.xlsx", "b_03_Fev.xlsx"}, names)
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	for _, d := range []string{"2526ALL_OL_GENAI_02", "2425ALL_OL_GENAI_00", "Poc_Students"} {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}
	touch(t, filepath.Join(tmpDir, "stray.xlsx"), time.Time{})

	dirs, err := NewDiscovery(tmpDir).ListDirectories("")
	require.NoError(t, err)

	var names []string
	for _, d := range dirs {
		assert.True(t, d.IsDir)
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"2425ALL_OL_GENAI_00", "2526ALL_OL_GENAI_02", "Poc_Students"}, names)
}

func TestListDirectoriesMissingRoot(t *testing.T) {
	_, err := NewDiscovery(filepath.Join(t.TempDir(), "missing")).ListDirectories("")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLatestWorkbookModTime(t *testing.T) {
	tmpDir := t.TempDir()
	base := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)

	touch(t, filepath.Join(tmpDir, "A", "one.xlsx"), base)
	touch(t, filepath.Join(tmpDir, "B", "two.xlsx"), base.Add(time.Hour))
	touch(t, filepath.Join(tmpDir, "B", "notes.txt"), base.Add(48*time.Hour))

	discovery := NewDiscovery(tmpDir)
	got, err := discovery.LatestWorkbookModTime("")
	require.NoError(t, err)
	assert.True(t, got.Equal(base.Add(time.Hour)), "got %v", got)

	touch(t, filepath.Join(tmpDir, "A", "one.xlsx"), base.Add(2*time.Hour))
	got, err = discovery.LatestWorkbookModTime("")
	require.NoError(t, err)
	assert.True(t, got.Equal(base.Add(2*time.Hour)), "got %v", got)
}

func TestLatestWorkbookModTimeMissingRoot(t *testing.T) {
	got, err := NewDiscovery(filepath.Join(t.TempDir(), "missing")).LatestWorkbookModTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestModTimeAndExists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "Student_data.xlsx")
	mod := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	got, err := ModTime(path)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.False(t, Exists(path))

	touch(t, path, mod)
	got, err = ModTime(path)
	require.NoError(t, err)
	assert.True(t, got.Equal(mod))
	assert.True(t, Exists(path))
}
