package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	DataDir        string
	ExtractionsDir string
	StudentDataDir string
	ReportsDir     string
	LogsDir        string

	StudentDataFile string
	CertifiedFile   string
}

// NewPaths resolves the configured directories to absolute paths.
//
//	data/
//	  ├── extractions/<course_code>/*.xlsx
//	  ├── Student_Data/
//	  │   ├── Student_data.xlsx
//	  │   └── Certified_Students.xlsx
//	  └── reports/
//	logs/
func NewPaths(cfg PathsConfig) (*Paths, error) {
	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	reportsDir := cfg.ReportsDir
	if reportsDir == "" {
		reportsDir = filepath.Join(dataDir, "reports")
	}
	if reportsDir, err = filepath.Abs(reportsDir); err != nil {
		return nil, fmt.Errorf("failed to resolve reports dir: %w", err)
	}

	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = DefaultLogsDir
	}
	if logsDir, err = filepath.Abs(logsDir); err != nil {
		return nil, fmt.Errorf("failed to resolve logs dir: %w", err)
	}

	studentDir := filepath.Join(dataDir, StudentDataDirName)
	return &Paths{
		DataDir:         dataDir,
		ExtractionsDir:  filepath.Join(dataDir, ExtractionsDirName),
		StudentDataDir:  studentDir,
		ReportsDir:      reportsDir,
		LogsDir:         logsDir,
		StudentDataFile: filepath.Join(studentDir, StudentDataFileName),
		CertifiedFile:   filepath.Join(studentDir, CertifiedFileName),
	}, nil
}

// EnsureDirectories creates the writable directories. The extraction root is
// left alone; a missing root simply yields an empty snapshot.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetReportPath returns the path of a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path of a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// CourseDir returns the extraction folder of a course.
func (p *Paths) CourseDir(course string) string {
	return filepath.Join(p.ExtractionsDir, course)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs every resolved path at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution",
		slog.String("data_dir", p.DataDir),
		slog.String("extractions_dir", p.ExtractionsDir),
		slog.String("student_data_file", p.StudentDataFile),
		slog.String("certified_file", p.CertifiedFile),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("logs_dir", p.LogsDir),
		slog.Bool("extractions_exist", FileExists(p.ExtractionsDir)))
}
