// Package stats computes the archive-wide statistics view: per-course counts
// and KPIs over each course's latest snapshot, and counts over time.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// Overview builds the statistics view of snap. certified may be nil.
func Overview(snap *domain.Snapshot, catalog config.CourseCatalog, certified domain.CertifiedEmailSet) *domain.Overview {
	ov := &domain.Overview{
		LatestByCourse:      snap.LatestByCourse(),
		StudentsByCourse:    make(map[string]int),
		PassedByCourse:      make(map[string]int),
		VerdictDistribution: make(map[string]int),
		CountsOverTime:      make(map[string][]domain.DatedCount),
	}

	latest := make(map[string][]domain.NormalizedRecord)
	for _, course := range snap.Courses() {
		latest[course] = LatestSnapshot(snap.ForCourse(course))
	}

	for _, course := range catalog.StatsCourses() {
		ov.StudentsByCourse[course] = len(latest[course])
	}

	for course, rows := range latest {
		passed := countPassed(rows)
		if catalog.IsPOC(course) {
			passed = len(rows)
		}
		ov.PassedByCourse[course] = passed
		ov.TotalPassed += passed

		kpi := courseKPI(rows, snap.ForCourse(course), certified)
		kpi.Course = course
		kpi.Label = catalog.Label(course)
		kpi.Passed = passed
		if kpi.Students > 0 {
			kpi.PassRate = percent(passed, kpi.Students)
		}
		ov.Courses = append(ov.Courses, kpi)
	}
	sort.Slice(ov.Courses, func(i, j int) bool {
		if ov.Courses[i].Label != ov.Courses[j].Label {
			return ov.Courses[i].Label < ov.Courses[j].Label
		}
		return ov.Courses[i].Course < ov.Courses[j].Course
	})

	if day := ov.LatestByCourse[catalog.Old]; day != nil {
		for _, r := range snap.ForCourse(catalog.Old) {
			if !r.ExtractedOn(*day) {
				continue
			}
			v := r.Verdict
			if v == "" {
				v = string(domain.VerdictUnknown)
			}
			ov.VerdictDistribution[v]++
		}
	}

	ov.CountsOverTime = CountsOverTime(snap.Records)
	return ov
}

// LatestSnapshot returns the rows of one course taken on its latest
// extraction date. When no row is dated, the rows of the lexically greatest
// file name are used instead.
func LatestSnapshot(rows []domain.NormalizedRecord) []domain.NormalizedRecord {
	var day *time.Time
	var lastFile string
	for _, r := range rows {
		if r.ExtractedAt != nil && (day == nil || r.ExtractedAt.After(*day)) {
			day = r.ExtractedAt
		}
		if r.FileName > lastFile {
			lastFile = r.FileName
		}
	}

	var out []domain.NormalizedRecord
	for _, r := range rows {
		if (day != nil && r.ExtractedOn(*day)) || (day == nil && r.FileName == lastFile) {
			out = append(out, r)
		}
	}
	return out
}

// CountsOverTime counts dated rows per course and extraction date, oldest
// first.
func CountsOverTime(records []domain.NormalizedRecord) map[string][]domain.DatedCount {
	counts := make(map[string]map[time.Time]int)
	for _, r := range records {
		if r.ExtractedAt == nil {
			continue
		}
		if counts[r.CourseType] == nil {
			counts[r.CourseType] = make(map[time.Time]int)
		}
		counts[r.CourseType][*r.ExtractedAt]++
	}

	out := make(map[string][]domain.DatedCount, len(counts))
	for course, byDay := range counts {
		series := make([]domain.DatedCount, 0, len(byDay))
		for day, n := range byDay {
			series = append(series, domain.DatedCount{ExtractedAt: day, Count: n})
		}
		sort.Slice(series, func(i, j int) bool { return series[i].ExtractedAt.Before(series[j].ExtractedAt) })
		out[course] = series
	}
	return out
}

// IsPassed reports whether a verdict text reads as a pass.
func IsPassed(verdict string) bool {
	return strings.Contains(strings.ToUpper(verdict), "PASS")
}

func countPassed(rows []domain.NormalizedRecord) int {
	n := 0
	for _, r := range rows {
		if IsPassed(r.Verdict) {
			n++
		}
	}
	return n
}

func courseKPI(latest, all []domain.NormalizedRecord, certified domain.CertifiedEmailSet) domain.CourseKPI {
	kpi := domain.CourseKPI{Students: len(latest)}

	var hours, grades []float64
	for _, r := range latest {
		h, ok := textnorm.ParseDecimal(r.Hours)
		if ok {
			hours = append(hours, h)
		}
		if !ok || h <= 0 {
			kpi.Inactive++
		}
		if g, ok := textnorm.ParseDecimal(r.Grade); ok {
			grades = append(grades, g)
		}
	}
	kpi.AvgHours = round2(mean(hours))
	kpi.MedianHours = round2(median(hours))
	kpi.AvgGrade = round2(mean(grades))
	kpi.GradeDelta = gradeDelta(all)

	passedEmails := make(map[string]struct{})
	for _, r := range latest {
		if !IsPassed(r.Verdict) {
			continue
		}
		if e := textnorm.NormalizeEmail(r.EmailNorm); e != "" {
			passedEmails[e] = struct{}{}
		}
	}
	if len(passedEmails) > 0 {
		certifiedCount := 0
		for e := range passedEmails {
			if certified.Contains(e) {
				certifiedCount++
			}
		}
		kpi.CertRate = percent(certifiedCount, len(passedEmails))
	}
	return kpi
}

type snapshotKey struct {
	day  *time.Time
	file string
}

func (k snapshotKey) holds(r domain.NormalizedRecord) bool {
	if r.FileName != k.file {
		return false
	}
	if k.day == nil {
		return r.ExtractedAt == nil
	}
	return r.ExtractedOn(*k.day)
}

// snapshotKeys lists the distinct (date, file) pairs of a course in
// chronological order. Courses without dates fall back to file order.
func snapshotKeys(rows []domain.NormalizedRecord) []snapshotKey {
	seen := make(map[string]bool)
	var dated, undated []snapshotKey
	for _, r := range rows {
		if r.ExtractedAt != nil {
			id := r.ExtractedAt.Format(time.RFC3339) + "|" + r.FileName
			if !seen[id] {
				seen[id] = true
				dated = append(dated, snapshotKey{day: r.ExtractedAt, file: r.FileName})
			}
			continue
		}
		if !seen["|"+r.FileName] {
			seen["|"+r.FileName] = true
			undated = append(undated, snapshotKey{file: r.FileName})
		}
	}

	keys := dated
	if len(keys) == 0 {
		keys = undated
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.day != nil && b.day != nil && !a.day.Equal(*b.day) {
			return a.day.Before(*b.day)
		}
		return a.file < b.file
	})
	return keys
}

// gradeDelta is the change in mean grade between the last two snapshots of a
// course.
func gradeDelta(rows []domain.NormalizedRecord) *float64 {
	keys := snapshotKeys(rows)
	if len(keys) < 2 {
		return nil
	}
	prev, cur := keys[len(keys)-2], keys[len(keys)-1]
	var prevGrades, curGrades []float64
	for _, r := range rows {
		g, ok := textnorm.ParseDecimal(r.Grade)
		if !ok {
			continue
		}
		if prev.holds(r) {
			prevGrades = append(prevGrades, g)
		}
		if cur.holds(r) {
			curGrades = append(curGrades, g)
		}
	}
	p, c := mean(prevGrades), mean(curGrades)
	if p == nil || c == nil {
		return nil
	}
	return round2(ptr(*c - *p))
}

func mean(v []float64) *float64 {
	if len(v) == 0 {
		return nil
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return ptr(sum / float64(len(v)))
}

func median(v []float64) *float64 {
	if len(v) == 0 {
		return nil
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return ptr(s[n/2])
	}
	return ptr((s[n/2-1] + s[n/2]) / 2)
}

func percent(part, whole int) *float64 {
	return round2(ptr(float64(part) / float64(whole) * 100))
}

func round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(math.Round(*v*100) / 100)
}

func ptr(v float64) *float64 { return &v }
