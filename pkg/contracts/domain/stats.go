package domain

import "time"

// CourseKPI aggregates the latest snapshot of one course.
type CourseKPI struct {
	Course      string   `json:"course"`
	Label       string   `json:"label"`
	Students    int      `json:"students"`
	Passed      int      `json:"passed"`
	PassRate    *float64 `json:"pass_rate"`
	AvgHours    *float64 `json:"avg_hours"`
	AvgGrade    *float64 `json:"avg_grade"`
	MedianHours *float64 `json:"median_hours"`
	Inactive    int      `json:"inactive"`
	GradeDelta  *float64 `json:"grade_delta"`
	CertRate    *float64 `json:"cert_rate"`
}

// DatedCount is a count observed at one extraction date.
type DatedCount struct {
	ExtractedAt time.Time `json:"extracted_at"`
	Count       int       `json:"count"`
}

// Overview is the global statistics view across all extraction files.
type Overview struct {
	LatestByCourse      map[string]*time.Time   `json:"latest_by_course"`
	StudentsByCourse    map[string]int          `json:"students_by_course"`
	PassedByCourse      map[string]int          `json:"passed_by_course"`
	TotalPassed         int                     `json:"total_passed"`
	Courses             []CourseKPI             `json:"courses"`
	VerdictDistribution map[string]int          `json:"verdict_distribution"`
	CountsOverTime      map[string][]DatedCount `json:"counts_over_time"`
}
