package domain

import (
	"sort"
	"time"
)

// NormalizedRecord is one student row from one extraction file, reduced to the
// canonical fields every export shape is mapped onto.
type NormalizedRecord struct {
	CourseType  string     `json:"course_type"`
	FileName    string     `json:"file_name"`
	ExtractedAt *time.Time `json:"extracted_at"`
	EmailNorm   string     `json:"email_norm"`
	StudentID   string     `json:"student_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Hours       string     `json:"hours"`
	Grade       string     `json:"grade"`
	Verdict     string     `json:"verdict"`
}

// HasIdentity reports whether the record can be keyed by email or student ID.
func (r NormalizedRecord) HasIdentity() bool {
	return r.EmailNorm != "" || r.StudentID != ""
}

// ExtractedOn reports whether the record belongs to the snapshot taken on day.
// Records without a parsed date never match.
func (r NormalizedRecord) ExtractedOn(day time.Time) bool {
	return r.ExtractedAt != nil && r.ExtractedAt.Equal(day)
}

// SourceFile describes one workbook that contributed rows to a snapshot.
type SourceFile struct {
	CourseType  string     `json:"course_type"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	ModTime     time.Time  `json:"mod_time"`
	ExtractedAt *time.Time `json:"extracted_at"`
	Rows        int        `json:"rows"`
}

// SkippedFile is a workbook the loader could not read.
type SkippedFile struct {
	CourseType string `json:"course_type"`
	Path       string `json:"path"`
	Reason     string `json:"reason"`
}

// Snapshot is the immutable normalized table produced by one full load of the
// extraction root. Callers must treat Records as read-only.
type Snapshot struct {
	Version  time.Time          `json:"version"`
	LoadedAt time.Time          `json:"loaded_at"`
	Records  []NormalizedRecord `json:"records"`
	Files    []SourceFile       `json:"files"`
	Skipped  []SkippedFile      `json:"skipped"`
}

// Empty reports whether the snapshot holds no records.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Records) == 0
}

// Courses returns the distinct course codes in the snapshot, sorted.
func (s *Snapshot) Courses() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.Records {
		if _, ok := seen[r.CourseType]; ok {
			continue
		}
		seen[r.CourseType] = struct{}{}
		out = append(out, r.CourseType)
	}
	sort.Strings(out)
	return out
}

// LatestByCourse returns the most recent extraction date per course. Courses
// whose files carry no parseable date map to nil.
func (s *Snapshot) LatestByCourse() map[string]*time.Time {
	out := make(map[string]*time.Time)
	if s == nil {
		return out
	}
	for _, r := range s.Records {
		cur, ok := out[r.CourseType]
		if !ok {
			out[r.CourseType] = nil
		}
		if r.ExtractedAt == nil {
			continue
		}
		if cur == nil || r.ExtractedAt.After(*cur) {
			d := *r.ExtractedAt
			out[r.CourseType] = &d
		}
	}
	return out
}

// ForCourse returns the records of one course in snapshot order.
func (s *Snapshot) ForCourse(course string) []NormalizedRecord {
	if s == nil {
		return nil
	}
	var out []NormalizedRecord
	for _, r := range s.Records {
		if r.CourseType == course {
			out = append(out, r)
		}
	}
	return out
}

// SnapshotInfo is the metadata view of a snapshot, without the records.
type SnapshotInfo struct {
	Version     time.Time     `json:"version"`
	LoadedAt    time.Time     `json:"loaded_at"`
	RecordCount int           `json:"record_count"`
	Courses     []string      `json:"courses"`
	Files       []SourceFile  `json:"files"`
	Skipped     []SkippedFile `json:"skipped"`
}

// Info summarizes the snapshot.
func (s *Snapshot) Info() SnapshotInfo {
	if s == nil {
		return SnapshotInfo{}
	}
	return SnapshotInfo{
		Version:     s.Version,
		LoadedAt:    s.LoadedAt,
		RecordCount: len(s.Records),
		Courses:     s.Courses(),
		Files:       s.Files,
		Skipped:     s.Skipped,
	}
}
