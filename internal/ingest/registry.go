package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/columns"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/files"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var (
	directoryResolver = columns.NewResolver(columns.DirectoryRules...)
	certifiedResolver = columns.NewResolver(columns.CertifiedRules...)
)

// LoadStudentDirectory reads the student directory workbook. Rows without an
// ID or an email are dropped; a missing file yields an empty directory.
func LoadStudentDirectory(path string) (*domain.StudentDirectory, error) {
	if !files.Exists(path) {
		return &domain.StudentDirectory{}, nil
	}

	rows, err := ReadFirstSheet(path)
	if err != nil {
		return nil, fmt.Errorf("student directory: %w", err)
	}

	table := PromoteHeader(rows, 0)
	m := directoryResolver.Resolve(table.Header)
	idx := func(f columns.Field) int { return table.Column(m.Column(f)) }
	idCol, emailCol := idx(columns.FieldStudentID), idx(columns.FieldEmail)
	campusCol, programCol := idx(columns.FieldCampus), idx(columns.FieldProgram)
	promoCol, licenseCol := idx(columns.FieldPromotion), idx(columns.FieldLicense)

	dir := &domain.StudentDirectory{}
	for _, row := range table.Rows {
		e := domain.StudentExtra{
			StudentIDE:    textnorm.NormalizeStudentID(cell(row, idCol)),
			EmailNorm:     textnorm.NormalizeEmail(cell(row, emailCol)),
			Campus:        cell(row, campusCol),
			Program:       cell(row, programCol),
			Promotion:     cell(row, promoCol),
			LicenseStatus: cell(row, licenseCol),
		}
		if e.StudentIDE == "" && e.EmailNorm == "" {
			continue
		}
		dir.Entries = append(dir.Entries, e)
	}
	return dir, nil
}

// LoadCertifiedEmails reads the certification list. The email column is used
// when one is found, otherwise the first email of each row. A missing file
// yields an empty set.
func LoadCertifiedEmails(path string) (domain.CertifiedEmailSet, error) {
	if !files.Exists(path) {
		return domain.NewCertifiedEmailSet(), nil
	}

	rows, err := ReadFirstSheet(path)
	if err != nil {
		return nil, fmt.Errorf("certified students: %w", err)
	}

	table := PromoteHeader(rows, 0)
	emailCol := table.Column(certifiedResolver.Resolve(table.Header).Column(columns.FieldEmail))

	emails := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if emailCol >= 0 {
			emails = append(emails, textnorm.NormalizeEmail(row[emailCol]))
		} else {
			emails = append(emails, textnorm.FirstEmail(row))
		}
	}
	return domain.NewCertifiedEmailSet(emails...), nil
}

// Registry caches the student directory and certification list, each keyed by
// its file's modification time.
type Registry struct {
	directoryPath string
	certifiedPath string

	directory Memo[*domain.StudentDirectory]
	certified Memo[domain.CertifiedEmailSet]

	logger  *slog.Logger
	metrics *infrastructure.ReconMetrics
}

// NewRegistry creates a registry over the two workbook paths.
func NewRegistry(directoryPath, certifiedPath string, logger *slog.Logger, metrics *infrastructure.ReconMetrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		directoryPath: directoryPath,
		certifiedPath: certifiedPath,
		logger:        infrastructure.WithComponent(logger, "registry"),
		metrics:       metrics,
	}
}

// Directory returns the student directory.
func (r *Registry) Directory(ctx context.Context) (*domain.StudentDirectory, error) {
	version, err := files.ModTime(r.directoryPath)
	if err != nil {
		return nil, err
	}
	dir, hit, err := r.directory.Get(version, func() (*domain.StudentDirectory, error) {
		d, err := LoadStudentDirectory(r.directoryPath)
		if err == nil {
			r.logger.InfoContext(ctx, "Student directory loaded", slog.Int("entries", d.Len()))
		}
		return d, err
	})
	if err != nil {
		return nil, err
	}
	r.metrics.RecordCache(ctx, "student_directory", hit)
	return dir, nil
}

// Certified returns the set of certified emails.
func (r *Registry) Certified(ctx context.Context) (domain.CertifiedEmailSet, error) {
	version, err := files.ModTime(r.certifiedPath)
	if err != nil {
		return nil, err
	}
	set, hit, err := r.certified.Get(version, func() (domain.CertifiedEmailSet, error) {
		s, err := LoadCertifiedEmails(r.certifiedPath)
		if err == nil {
			r.logger.InfoContext(ctx, "Certification list loaded", slog.Int("emails", len(s)))
		}
		return s, err
	})
	if err != nil {
		return nil, err
	}
	r.metrics.RecordCache(ctx, "certified_emails", hit)
	return set, nil
}
