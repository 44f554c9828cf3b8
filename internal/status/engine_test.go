package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var (
	catalog      = config.DefaultCourseCatalog()
	mainCourse   = catalog.Main
	retakeCourse = catalog.Retake
	oldCourse    = catalog.Old
)

func day(m time.Month, d int) *time.Time {
	t := time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type rec struct {
	course, file string
	at           *time.Time
	email, id    string
	verdict      string
}

func snapshot(rows ...rec) *domain.Snapshot {
	s := &domain.Snapshot{}
	for _, r := range rows {
		s.Records = append(s.Records, domain.NormalizedRecord{
			CourseType:  r.course,
			FileName:    r.file,
			ExtractedAt: r.at,
			EmailNorm:   r.email,
			StudentID:   r.id,
			FirstName:   "Jane",
			LastName:    "Doe",
			Hours:       "1,5",
			Grade:       "60",
			Verdict:     r.verdict,
		})
	}
	return s
}

func lookup(t *testing.T, q string, in Inputs) *domain.StudentStatus {
	t.Helper()
	st, err := NewEngine(catalog, nil, nil).Lookup(context.Background(), q, in)
	require.NoError(t, err)
	return st
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		input string
		want  Query
	}{
		{input: " Jane@School.edu ", want: Query{Raw: " Jane@School.edu ", Email: "jane@school.edu"}},
		{input: "123456", want: Query{Raw: "123456", StudentID: "123456"}},
		{input: "ID: e123", want: Query{Raw: "ID: e123", StudentID: "e123"}},
		{input: "id:a@b.io", want: Query{Raw: "id:a@b.io", StudentID: "a@b.io"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuery(tt.input))
		})
	}
}

func TestReduceVerdict(t *testing.T) {
	assert.Equal(t, domain.VerdictPassed, ReduceVerdict([]string{"Failed", "passed"}))
	assert.Equal(t, domain.VerdictFailed, ReduceVerdict([]string{"", "FAIL"}))
	assert.Equal(t, domain.VerdictUnknown, ReduceVerdict([]string{"", "  ", "n/a"}))
	assert.Equal(t, domain.VerdictUnknown, ReduceVerdict(nil))
}

func TestLookupNotFound(t *testing.T) {
	_, err := NewEngine(catalog, nil, nil).Lookup(context.Background(), "ghost@school.edu",
		Inputs{Snapshot: snapshot(rec{course: mainCourse, at: day(1, 27), email: "jane@school.edu", id: "1"})})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewEngine(catalog, nil, nil).Lookup(context.Background(), "x", Inputs{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupAmbiguousEmail(t *testing.T) {
	snap := snapshot(
		rec{course: mainCourse, file: "a.xlsx", at: day(1, 10), email: "jane@school.edu", id: "111"},
		rec{course: mainCourse, file: "b.xlsx", at: day(1, 27), email: "jane@school.edu", id: "222"},
		rec{course: mainCourse, file: "b.xlsx", at: day(1, 27), email: "jane@school.edu", id: ""},
	)

	st := lookup(t, "jane@school.edu", Inputs{Snapshot: snap})
	assert.True(t, st.NeedsReview)
	assert.Contains(t, st.Reason, "Multiple student IDs")
	assert.Nil(t, st.Identity)
	assert.Empty(t, st.Situation)
	assert.Equal(t, 3, st.MatchedRows)

	// the same rows queried by ID are not ambiguous
	st = lookup(t, "222", Inputs{Snapshot: snap})
	assert.False(t, st.NeedsReview)
	assert.Equal(t, 1, st.MatchedRows)
}

func TestMembershipUsesGlobalLatest(t *testing.T) {
	snap := snapshot(
		rec{course: mainCourse, file: "a.xlsx", at: day(1, 10), email: "jane@school.edu", id: "1"},
		rec{course: mainCourse, file: "b.xlsx", at: day(1, 27), email: "other@school.edu", id: "2"},
		rec{course: retakeCourse, file: "r.xlsx", at: day(1, 27), email: "jane@school.edu", id: "1"},
	)

	st := lookup(t, "jane@school.edu", Inputs{Snapshot: snap})
	require.Len(t, st.Courses, 3)
	assert.Equal(t, mainCourse, st.Courses[0].Code)
	assert.False(t, st.Courses[0].InLatest)
	assert.Equal(t, day(1, 27), st.Courses[0].LatestDate)
	assert.True(t, st.Courses[1].InLatest)
	assert.False(t, st.Courses[2].InLatest)
	assert.Nil(t, st.Courses[2].LatestDate)
	assert.Equal(t, []string{catalog.StatusLabel(retakeCourse)}, st.Enrollment)
	assert.Equal(t, "In progress ("+catalog.StatusLabel(retakeCourse)+")", st.Situation)
	assert.Equal(t, "In progress (Retake Fall 2526)", st.Situation)
	assert.Equal(t, "Fall 2526 course", st.Courses[0].Label)
	assert.Empty(t, st.Conflicts)
}

func TestSituation(t *testing.T) {
	const email = "jane@school.edu"
	tests := []struct {
		name      string
		rows      []rec
		situation string
		conflicts int
		outcome   string
	}{
		{
			name:      "passed old course",
			rows:      []rec{{course: oldCourse, at: day(6, 1), email: email, id: "1", verdict: "Passed"}},
			situation: "Passed (" + catalog.StatusLabel(oldCourse) + ")",
			outcome:   OutcomeCompleted,
		},
		{
			name: "pass wins over fail in the same snapshot",
			rows: []rec{
				{course: oldCourse, at: day(6, 1), email: email, id: "1", verdict: "Failed"},
				{course: oldCourse, at: day(6, 1), email: email, id: "1", verdict: "Passed"},
			},
			situation: "Passed (" + catalog.StatusLabel(oldCourse) + ")",
			outcome:   OutcomeCompleted,
		},
		{
			name:      "failed old course",
			rows:      []rec{{course: oldCourse, at: day(6, 1), email: email, id: "1", verdict: "Failed"}},
			situation: "Retake required (" + catalog.StatusLabel(retakeCourse) + ")",
		},
		{
			name:      "main in progress",
			rows:      []rec{{course: mainCourse, at: day(1, 27), email: email, id: "1"}},
			situation: "In progress (" + catalog.StatusLabel(mainCourse) + ")",
		},
		{
			name: "main and retake conflict",
			rows: []rec{
				{course: mainCourse, at: day(1, 27), email: email, id: "1"},
				{course: retakeCourse, at: day(1, 27), email: email, id: "1", verdict: "Failed"},
			},
			situation: SituationNeedsReview,
			conflicts: 1,
			outcome:   OutcomeRetakeFailed,
		},
		{
			name: "retake after passing old",
			rows: []rec{
				{course: oldCourse, at: day(6, 1), email: email, id: "1", verdict: "Passed"},
				{course: retakeCourse, at: day(1, 27), email: email, id: "1"},
			},
			situation: SituationNeedsReview,
			conflicts: 1,
			outcome:   OutcomeCompleted,
		},
		{
			name: "main after failing old",
			rows: []rec{
				{course: oldCourse, at: day(6, 1), email: email, id: "1", verdict: "FAIL"},
				{course: mainCourse, at: day(1, 27), email: email, id: "1", verdict: "Failed"},
			},
			situation: SituationNeedsReview,
			conflicts: 1,
		},
		{
			name:      "failed main and idle",
			rows:      []rec{{course: mainCourse, at: day(1, 27), email: email, id: "1", verdict: "Failed"}},
			situation: "In progress (" + catalog.StatusLabel(mainCourse) + ")",
			outcome:   OutcomeFailedMainIdle,
		},
		{
			name:      "undated only",
			rows:      []rec{{course: mainCourse, email: email, id: "1"}},
			situation: SituationNeedsReview,
		},
		{
			name: "poc student",
			rows: []rec{
				{course: catalog.POC, at: day(2, 1), email: email, id: "1"},
				{course: oldCourse, at: day(6, 1), email: email, id: "1", verdict: "Passed"},
			},
			situation: "Passed (" + catalog.StatusLabel(oldCourse) + ")",
			outcome:   OutcomePOC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := lookup(t, email, Inputs{Snapshot: snapshot(tt.rows...)})
			assert.False(t, st.NeedsReview)
			assert.Equal(t, tt.situation, st.Situation)
			assert.Len(t, st.Conflicts, tt.conflicts)
			assert.Equal(t, tt.outcome, st.Outcome)
		})
	}
}

func TestIdentityAndEnrichment(t *testing.T) {
	snap := snapshot(
		rec{course: mainCourse, file: "a.xlsx", at: day(1, 10), email: "jane@school.edu", id: "123"},
		rec{course: mainCourse, file: "b.xlsx", at: day(1, 27), email: "jane@school.edu", id: "123"},
	)
	snap.Records[1].FirstName = "Janet"

	dir := &domain.StudentDirectory{Entries: []domain.StudentExtra{
		{StudentIDE: "e123", Campus: "Paris", LicenseStatus: "Enabled"},
		{EmailNorm: "jane@school.edu", Campus: "Lyon", Program: "BBA"},
	}}
	in := Inputs{
		Snapshot:  snap,
		Directory: dir,
		Certified: domain.NewCertifiedEmailSet("jane@school.edu"),
	}

	st := lookup(t, "Jane@School.edu", in)
	assert.False(t, st.NeedsReview)
	require.NotNil(t, st.Identity)
	assert.Equal(t, "Janet", st.Identity.FirstName, "identity comes from the latest dated row")
	assert.Equal(t, "e123", st.Identity.StudentIDE)
	require.NotNil(t, st.Extra)
	assert.Equal(t, "Lyon", st.Extra.Campus, "email match beats ID match")
	assert.True(t, st.Certified)

	st = lookup(t, "id:123", Inputs{Snapshot: snap, Directory: dir})
	require.NotNil(t, st.Extra)
	assert.Equal(t, "Lyon", st.Extra.Campus, "identity email is tried before the ID")
	assert.False(t, st.Certified)
}

func TestIdentityUndatedRowsSortLast(t *testing.T) {
	snap := snapshot(
		rec{course: mainCourse, file: "b.xlsx", at: day(1, 27), email: "jane@school.edu", id: "123"},
		rec{course: mainCourse, file: "a.xlsx", email: "jane@school.edu", id: "123"},
		rec{course: mainCourse, file: "zzz.xlsx", email: "jane@school.edu", id: "123"},
		rec{course: mainCourse, file: "c.xlsx", at: day(1, 10), email: "jane@school.edu", id: "123"},
	)
	snap.Records[0].FirstName = "Janet"
	snap.Records[1].FirstName = "Jo"
	snap.Records[2].FirstName = "Jay"
	snap.Records[2].EmailNorm = "jane.doe@school.edu"

	dir := &domain.StudentDirectory{Entries: []domain.StudentExtra{
		{EmailNorm: "jane@school.edu", Campus: "Lyon"},
		{EmailNorm: "jane.doe@school.edu", Campus: "Paris"},
	}}

	st := lookup(t, "id:123", Inputs{Snapshot: snap, Directory: dir})
	assert.False(t, st.NeedsReview)
	require.NotNil(t, st.Identity)
	assert.Equal(t, "Jay", st.Identity.FirstName, "undated rows outrank dated ones, then file name decides")
	assert.Equal(t, "jane.doe@school.edu", st.Identity.EmailNorm)
	require.NotNil(t, st.Extra)
	assert.Equal(t, "Paris", st.Extra.Campus, "enrichment follows the identity email")
}

func TestNewer(t *testing.T) {
	dated := domain.NormalizedRecord{FileName: "a.xlsx", ExtractedAt: day(1, 27)}
	older := domain.NormalizedRecord{FileName: "z.xlsx", ExtractedAt: day(1, 10)}
	undated := domain.NormalizedRecord{FileName: "a.xlsx"}

	assert.True(t, newer(dated, older))
	assert.False(t, newer(older, dated))
	assert.True(t, newer(undated, dated))
	assert.False(t, newer(dated, undated))
	assert.True(t, newer(domain.NormalizedRecord{FileName: "b.xlsx"}, undated))
}

func TestTimeline(t *testing.T) {
	rows := snapshot(
		rec{course: retakeCourse, file: "r.xlsx", at: day(1, 27), email: "a@b.io"},
		rec{course: mainCourse, file: "m.xlsx", at: day(1, 10), email: "a@b.io"},
		rec{course: mainCourse, file: "u.xlsx", email: "a@b.io"},
	).Records
	rows[0].Grade = "n/a"

	points := Timeline(rows)
	require.Len(t, points, 2)
	assert.Equal(t, mainCourse, points[0].CourseType)
	require.NotNil(t, points[0].Hours)
	assert.InDelta(t, 1.5, *points[0].Hours, 1e-9)
	assert.Nil(t, points[1].Grade)

	assert.Len(t, FilterTimeline(points, retakeCourse), 1)
	assert.Len(t, FilterTimeline(points, ""), 2)
}
