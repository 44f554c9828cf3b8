package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var tracer = otel.Tracer("github.com/genai-ESCP/Backoffice-DataAnalytics/internal/status")

// ErrNotFound is returned when no record matches the query.
var ErrNotFound = errors.New("student not found")

// SituationNeedsReview is the situation of any student the rules cannot
// classify, or whose enrollments conflict.
const SituationNeedsReview = "Needs review"

// Outcome banners.
const (
	OutcomePOC            = "poc_student"
	OutcomeCompleted      = "Completed the GenAI course"
	OutcomeRetakeFailed   = "Failed to complete the GenAI course in retake. Student cannot redo it again."
	OutcomeFailedMainIdle = "In progress: failed the new students course and currently not enrolled in another track."
)

// Inputs is everything a lookup reads. Directory and Certified may be nil.
type Inputs struct {
	Snapshot  *domain.Snapshot
	Directory *domain.StudentDirectory
	Certified domain.CertifiedEmailSet
}

// Engine computes student statuses for a course catalog.
type Engine struct {
	catalog config.CourseCatalog
	logger  *slog.Logger
	metrics *infrastructure.ReconMetrics
}

// NewEngine creates an Engine. logger and metrics may be nil.
func NewEngine(catalog config.CourseCatalog, logger *slog.Logger, metrics *infrastructure.ReconMetrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog: catalog,
		logger:  infrastructure.WithComponent(logger, "status"),
		metrics: metrics,
	}
}

// Lookup resolves q against the snapshot. It returns ErrNotFound when nothing
// matches, and a status flagged NeedsReview when an email maps to several
// student IDs.
func (e *Engine) Lookup(ctx context.Context, q string, in Inputs) (*domain.StudentStatus, error) {
	ctx, span := tracer.Start(ctx, "status.Lookup")
	defer span.End()

	var records []domain.NormalizedRecord
	if in.Snapshot != nil {
		records = in.Snapshot.Records
	}
	query := ParseQuery(q)
	rows := Match(records, query)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"status.matched_rows": len(rows),
		"status.by_email":     query.Email != "",
	})

	if len(rows) == 0 {
		e.metrics.RecordStatusLookup(ctx, "not_found")
		return nil, ErrNotFound
	}

	if query.Email != "" {
		if ids := DistinctIDs(rows); len(ids) > 1 {
			e.metrics.RecordStatusLookup(ctx, "needs_review")
			e.logger.WarnContext(ctx, "Email matches several student IDs",
				slog.String("email", query.Email),
				slog.Any("student_ids", ids))
			return &domain.StudentStatus{
				Query:       q,
				NeedsReview: true,
				Reason:      "Multiple student IDs match the same email across extractions.",
				MatchedRows: len(rows),
			}, nil
		}
	}

	st := e.evaluate(query, rows, in)
	e.metrics.RecordStatusLookup(ctx, "found")
	return st, nil
}

func (e *Engine) evaluate(query Query, rows []domain.NormalizedRecord, in Inputs) *domain.StudentStatus {
	cat := e.catalog
	latestByCourse := in.Snapshot.LatestByCourse()

	id := identity(rows)
	st := &domain.StudentStatus{
		Query:       query.Raw,
		Identity:    &id,
		MatchedRows: len(rows),
		Timeline:    Timeline(rows),
	}

	emails := []string{query.Email, id.EmailNorm}
	ids := []string{textnorm.NormalizeStudentID(query.StudentID), id.StudentIDE}
	if extra, ok := in.Directory.Lookup(emails, ids); ok {
		st.Extra = &extra
	}
	certEmail := query.Email
	if certEmail == "" {
		certEmail = id.EmailNorm
	}
	st.Certified = in.Certified.Contains(textnorm.NormalizeEmail(certEmail))

	member := make(map[string]bool)
	verdict := make(map[string]domain.Verdict)
	for _, code := range cat.StatusOrder() {
		latest := latestByCourse[code]
		member[code] = InLatest(rows, code, latest)
		verdict[code] = ReduceVerdict(VerdictsAt(rows, code, latest))
		st.Courses = append(st.Courses, domain.CourseStatus{
			Code:          code,
			Label:         cat.StatusLabel(code),
			LatestDate:    latest,
			InLatest:      member[code],
			LatestVerdict: verdict[code],
		})
		if member[code] {
			st.Enrollment = append(st.Enrollment, cat.StatusLabel(code))
		}
	}

	oldVerdicts := VerdictsAt(rows, cat.Old, latestByCourse[cat.Old])
	passedOld := anyContains(oldVerdicts, "PASS")
	failedOld := anyContains(oldVerdicts, "FAIL")

	st.Conflicts = conflicts(cat, member, passedOld, failedOld)
	st.Situation = situation(cat, member, passedOld, failedOld)
	if len(st.Conflicts) > 0 {
		st.Situation = SituationNeedsReview
	}
	st.Outcome = e.outcome(rows, member, verdict)
	return st
}

func conflicts(cat config.CourseCatalog, member map[string]bool, passedOld, failedOld bool) []string {
	var out []string
	if member[cat.Main] && member[cat.Retake] {
		out = append(out, fmt.Sprintf("Student in both %s and %s", cat.StatusLabel(cat.Main), cat.StatusLabel(cat.Retake)))
	}
	if member[cat.Retake] && passedOld {
		out = append(out, fmt.Sprintf("In %s but passed %s", cat.StatusLabel(cat.Retake), cat.StatusLabel(cat.Old)))
	}
	if member[cat.Main] && failedOld {
		out = append(out, fmt.Sprintf("In %s but failed %s", cat.StatusLabel(cat.Main), cat.StatusLabel(cat.Old)))
	}
	return out
}

func situation(cat config.CourseCatalog, member map[string]bool, passedOld, failedOld bool) string {
	switch {
	case passedOld:
		return fmt.Sprintf("Passed (%s)", cat.StatusLabel(cat.Old))
	case failedOld:
		return fmt.Sprintf("Retake required (%s)", cat.StatusLabel(cat.Retake))
	case member[cat.Main]:
		return fmt.Sprintf("In progress (%s)", cat.StatusLabel(cat.Main))
	case member[cat.Retake]:
		return fmt.Sprintf("In progress (%s)", cat.StatusLabel(cat.Retake))
	}
	return SituationNeedsReview
}

func (e *Engine) outcome(rows []domain.NormalizedRecord, member map[string]bool, verdict map[string]domain.Verdict) string {
	cat := e.catalog
	for _, r := range rows {
		if cat.IsPOC(r.CourseType) {
			return OutcomePOC
		}
	}
	for _, code := range cat.StatusOrder() {
		if verdict[code] == domain.VerdictPassed {
			return OutcomeCompleted
		}
	}
	if member[cat.Retake] && verdict[cat.Retake] != domain.VerdictPassed {
		return OutcomeRetakeFailed
	}
	if verdict[cat.Main] == domain.VerdictFailed && !member[cat.Retake] && !member[cat.Old] {
		return OutcomeFailedMainIdle
	}
	return ""
}

// identity takes names and keys from the most recent row. Undated rows sort
// after every dated row; ties go to the greater file name.
func identity(rows []domain.NormalizedRecord) domain.Identity {
	latest := rows[0]
	for _, r := range rows[1:] {
		if newer(r, latest) {
			latest = r
		}
	}
	return domain.Identity{
		FirstName:  latest.FirstName,
		LastName:   latest.LastName,
		StudentID:  latest.StudentID,
		StudentIDE: textnorm.NormalizeStudentID(latest.StudentID),
		EmailNorm:  latest.EmailNorm,
	}
}

// newer reports whether a sorts at or after b.
func newer(a, b domain.NormalizedRecord) bool {
	switch {
	case a.ExtractedAt == nil && b.ExtractedAt != nil:
		return true
	case a.ExtractedAt != nil && b.ExtractedAt == nil:
		return false
	case a.ExtractedAt != nil && !a.ExtractedAt.Equal(*b.ExtractedAt):
		return a.ExtractedAt.After(*b.ExtractedAt)
	}
	return a.FileName >= b.FileName
}

// Timeline returns the dated rows as observations, oldest first. Hours and
// grades accept comma decimals; unparseable values are nil.
func Timeline(rows []domain.NormalizedRecord) []domain.TimelinePoint {
	var out []domain.TimelinePoint
	for _, r := range rows {
		if r.ExtractedAt == nil {
			continue
		}
		out = append(out, domain.TimelinePoint{
			ExtractedAt: *r.ExtractedAt,
			CourseType:  r.CourseType,
			FileName:    r.FileName,
			Hours:       textnorm.ParseDecimalPtr(r.Hours),
			Grade:       textnorm.ParseDecimalPtr(r.Grade),
			Verdict:     r.Verdict,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExtractedAt.Before(out[j].ExtractedAt) })
	return out
}

// FilterTimeline keeps the points of one course. An empty course keeps all.
func FilterTimeline(points []domain.TimelinePoint, course string) []domain.TimelinePoint {
	if strings.TrimSpace(course) == "" {
		return points
	}
	var out []domain.TimelinePoint
	for _, p := range points {
		if p.CourseType == course {
			out = append(out, p)
		}
	}
	return out
}
