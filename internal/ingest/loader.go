// Package ingest loads the extraction archive into an immutable snapshot of
// normalized records, and the student registries that enrich it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/columns"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/files"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var tracer = otel.Tracer("github.com/genai-ESCP/Backoffice-DataAnalytics/internal/ingest")

// Loader reads data/extractions/<course_code>/*.xlsx into a Snapshot.
type Loader struct {
	root       string
	discovery  *files.Discovery
	workers    int
	headerScan int
	now        func() time.Time
	logger     *slog.Logger
	metrics    *infrastructure.ReconMetrics
}

// Option configures a Loader.
type Option func(*Loader)

// WithWorkers bounds the number of workbooks parsed concurrently.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithHeaderScan sets how many leading rows are searched for the header.
func WithHeaderScan(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.headerScan = n
		}
	}
}

// WithClock sets the clock used for year inference of undated course codes.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records load metrics.
func WithMetrics(m *infrastructure.ReconMetrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// NewLoader creates a loader over root.
func NewLoader(root string, opts ...Option) *Loader {
	l := &Loader{
		root:       root,
		discovery:  files.NewDiscovery(root),
		workers:    4,
		headerScan: columns.DefaultHeaderScan,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = infrastructure.WithComponent(l.logger, "ingest")
	return l
}

// Version returns the newest modification time of any workbook below the
// root, or the zero time when there is none.
func (l *Loader) Version() (time.Time, error) {
	return l.discovery.LatestWorkbookModTime("")
}

type fileJob struct {
	course string
	file   files.FileInfo
}

type fileResult struct {
	records []domain.NormalizedRecord
	source  domain.SourceFile
	skipped *domain.SkippedFile
}

// Load reads every workbook below the root. Output order is course folder
// name, then file name, then row, regardless of worker scheduling. A file
// that cannot be read is skipped and reported in Snapshot.Skipped; a missing
// root yields an empty snapshot.
func (l *Loader) Load(ctx context.Context) (*domain.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "ingest.Load", trace.WithAttributes(attribute.String("ingest.root", l.root)))
	defer span.End()
	start := time.Now()

	version, err := l.Version()
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to compute extraction version: %w", err)
	}

	snap := &domain.Snapshot{Version: version, LoadedAt: l.now()}

	jobs, skipped, err := l.discover()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.WarnContext(ctx, "Extraction root not found", slog.String("root", l.root))
			return snap, nil
		}
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	snap.Skipped = append(snap.Skipped, skipped...)

	results := make([]fileResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.loadFile(job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("extraction load interrupted: %w", err)
	}

	for _, r := range results {
		if r.skipped != nil {
			l.logger.WarnContext(ctx, "Skipping unreadable extraction file",
				slog.String("course", r.skipped.CourseType),
				slog.String("path", r.skipped.Path),
				slog.String("reason", r.skipped.Reason))
			infrastructure.AddSpanEvent(ctx, "extraction skipped", map[string]interface{}{
				"course": r.skipped.CourseType,
				"path":   r.skipped.Path,
			})
			snap.Skipped = append(snap.Skipped, *r.skipped)
			continue
		}
		snap.Files = append(snap.Files, r.source)
		snap.Records = append(snap.Records, r.records...)
	}

	duration := time.Since(start)
	span.SetAttributes(
		attribute.Int("ingest.files", len(snap.Files)),
		attribute.Int("ingest.skipped", len(snap.Skipped)),
		attribute.Int("ingest.records", len(snap.Records)),
	)
	l.metrics.RecordLoad(ctx, len(snap.Files), len(snap.Skipped), len(snap.Records), duration)
	l.logger.InfoContext(ctx, "Extractions loaded",
		slog.Int("files", len(snap.Files)),
		slog.Int("skipped", len(snap.Skipped)),
		slog.Int("records", len(snap.Records)),
		slog.Time("version", version),
		slog.Duration("duration", duration))

	return snap, nil
}

func (l *Loader) discover() ([]fileJob, []domain.SkippedFile, error) {
	dirs, err := l.discovery.ListDirectories("")
	if err != nil {
		return nil, nil, err
	}

	var jobs []fileJob
	var skipped []domain.SkippedFile
	for _, dir := range dirs {
		workbooks, err := l.discovery.FindWorkbooks(dir.Path)
		if err != nil {
			skipped = append(skipped, domain.SkippedFile{CourseType: dir.Name, Path: dir.Path, Reason: err.Error()})
			continue
		}
		for _, wb := range workbooks {
			jobs = append(jobs, fileJob{course: dir.Name, file: wb})
		}
	}
	return jobs, skipped, nil
}

func (l *Loader) loadFile(job fileJob) (res fileResult) {
	defer func() {
		if r := recover(); r != nil {
			res = fileResult{skipped: &domain.SkippedFile{
				CourseType: job.course,
				Path:       job.file.Path,
				Reason:     fmt.Sprintf("panic while reading workbook: %v", r),
			}}
		}
	}()

	rows, err := ReadFirstSheet(job.file.Path)
	if err != nil {
		return fileResult{skipped: &domain.SkippedFile{
			CourseType: job.course,
			Path:       job.file.Path,
			Reason:     err.Error(),
		}}
	}

	extractedAt := ParseExtractionDate(job.file.Name, job.course, l.now())
	records := NormalizeRows(job.course, job.file.Name, extractedAt, rows, l.headerScan)
	return fileResult{
		records: records,
		source: domain.SourceFile{
			CourseType:  job.course,
			Name:        job.file.Name,
			Path:        job.file.Path,
			ModTime:     job.file.ModTime,
			ExtractedAt: extractedAt,
			Rows:        len(records),
		},
	}
}
