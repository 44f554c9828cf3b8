package domain

import "time"

// StudentExtra is directory enrichment for one student.
type StudentExtra struct {
	StudentIDE    string `json:"student_id_e"`
	EmailNorm     string `json:"email_norm"`
	Campus        string `json:"campus"`
	Program       string `json:"program"`
	Promotion     string `json:"promotion"`
	LicenseStatus string `json:"license_status"`
}

// StudentDirectory holds the directory rows in file order.
type StudentDirectory struct {
	Entries []StudentExtra
}

// Lookup returns the first entry matching one of the emails, tried in order,
// and falls back to the first entry whose ID is among ids.
func (d *StudentDirectory) Lookup(emails []string, ids []string) (StudentExtra, bool) {
	if d == nil {
		return StudentExtra{}, false
	}
	for _, email := range emails {
		if email == "" {
			continue
		}
		for _, e := range d.Entries {
			if e.EmailNorm == email {
				return e, true
			}
		}
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			want[id] = struct{}{}
		}
	}
	if len(want) == 0 {
		return StudentExtra{}, false
	}
	for _, e := range d.Entries {
		if _, ok := want[e.StudentIDE]; ok {
			return e, true
		}
	}
	return StudentExtra{}, false
}

// Len returns the number of directory rows.
func (d *StudentDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Entries)
}

// CertifiedEmailSet is the set of canonical emails of certified students.
type CertifiedEmailSet map[string]struct{}

// NewCertifiedEmailSet builds a set from emails, ignoring empty strings.
func NewCertifiedEmailSet(emails ...string) CertifiedEmailSet {
	s := make(CertifiedEmailSet, len(emails))
	for _, e := range emails {
		if e != "" {
			s[e] = struct{}{}
		}
	}
	return s
}

// Contains reports membership.
func (s CertifiedEmailSet) Contains(email string) bool {
	if email == "" {
		return false
	}
	_, ok := s[email]
	return ok
}

// Verdict is the reconciled pass/fail outcome of a student in a snapshot.
type Verdict string

const (
	VerdictPassed  Verdict = "Passed"
	VerdictFailed  Verdict = "Failed"
	VerdictUnknown Verdict = "Unknown"
)

// Identity is the student's name and keys taken from their latest record.
type Identity struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	StudentID  string `json:"student_id"`
	StudentIDE string `json:"student_id_e"`
	EmailNorm  string `json:"email_norm"`
}

// CourseStatus is the student's standing in one tracked course.
type CourseStatus struct {
	Code          string     `json:"code"`
	Label         string     `json:"label"`
	LatestDate    *time.Time `json:"latest_date"`
	InLatest      bool       `json:"in_latest"`
	LatestVerdict Verdict    `json:"latest_verdict"`
}

// TimelinePoint is one snapshot observation of a student in a course.
type TimelinePoint struct {
	ExtractedAt time.Time `json:"extracted_at"`
	CourseType  string    `json:"course_type"`
	FileName    string    `json:"file_name"`
	Hours       *float64  `json:"hours"`
	Grade       *float64  `json:"grade"`
	Verdict     string    `json:"verdict"`
}

// StudentStatus is the reconciled view of one student across all snapshots.
type StudentStatus struct {
	Query       string `json:"query"`
	NeedsReview bool   `json:"needs_review"`
	Reason      string `json:"reason,omitempty"`

	// Populated only when the identity is unambiguous.
	Identity    *Identity       `json:"identity,omitempty"`
	Extra       *StudentExtra   `json:"extra,omitempty"`
	Certified   bool            `json:"certified"`
	Courses     []CourseStatus  `json:"courses,omitempty"`
	Enrollment  []string        `json:"enrollment,omitempty"`
	Situation   string          `json:"situation,omitempty"`
	Conflicts   []string        `json:"conflicts,omitempty"`
	Outcome     string          `json:"outcome,omitempty"`
	Timeline    []TimelinePoint `json:"timeline,omitempty"`
	MatchedRows int             `json:"matched_rows"`
}
