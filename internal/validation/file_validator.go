package validation

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// FileValidator checks workbook inputs and output directories before the
// command line tools hand them to the merge.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that path exists, is a regular file and is not empty.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s does not exist", path))
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	if info.Size() == 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is empty", path))
	}
	return nil
}

// ValidateWorkbook checks the name and leading bytes of a workbook. An .xlsx
// must be a zip package; an .xls may be a tab-separated text export but not
// a binary BIFF file, which the reader cannot parse.
func (v *FileValidator) ValidateWorkbook(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejecting Excel lock file", slog.String("file", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is an Excel lock file", base))
	}

	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".xlsx" && ext != ".xls" {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is not a workbook (extension %q)", base, ext))
	}

	head, err := readHead(path, len(oleMagic))
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to read %s", base), err)
	}

	switch {
	case ext == ".xlsx" && !bytes.HasPrefix(head, zipMagic):
		return apperrors.NewParsingError(fmt.Sprintf("%s is not an xlsx package", base), nil)
	case ext == ".xls" && bytes.HasPrefix(head, oleMagic):
		return apperrors.NewParsingError(fmt.Sprintf("%s is a binary .xls; save it as .xlsx", base), nil)
	}

	v.logger.Debug("Workbook validated", slog.String("file", path))
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewPermissionError(fmt.Sprintf("output directory %s is not writable", dir))
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:read], nil
}
