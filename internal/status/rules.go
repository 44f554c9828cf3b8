package status

import (
	"strings"
	"time"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// Query is a parsed search string. Exactly one of Email and StudentID is set.
type Query struct {
	Raw       string
	Email     string
	StudentID string
}

// ParseQuery reads q as an email when it contains one, else as a student ID.
// An "id:" prefix forces the ID interpretation.
func ParseQuery(q string) Query {
	out := Query{Raw: q}
	sid := strings.TrimSpace(q)
	if len(sid) >= 3 && strings.EqualFold(sid[:3], "id:") {
		out.StudentID = strings.TrimSpace(sid[3:])
		return out
	}
	if email := textnorm.NormalizeEmail(q); email != "" {
		out.Email = email
		return out
	}
	out.StudentID = sid
	return out
}

// Match returns the records of the snapshot that belong to the queried
// student, in snapshot order.
func Match(records []domain.NormalizedRecord, q Query) []domain.NormalizedRecord {
	var out []domain.NormalizedRecord
	switch {
	case q.Email != "":
		for _, r := range records {
			if r.EmailNorm == q.Email {
				out = append(out, r)
			}
		}
	case q.StudentID != "":
		for _, r := range records {
			if strings.TrimSpace(r.StudentID) == q.StudentID {
				out = append(out, r)
			}
		}
	}
	return out
}

// DistinctIDs returns the distinct non-empty student IDs of rows in first-seen
// order.
func DistinctIDs(rows []domain.NormalizedRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range rows {
		if r.StudentID == "" || seen[r.StudentID] {
			continue
		}
		seen[r.StudentID] = true
		ids = append(ids, r.StudentID)
	}
	return ids
}

// InLatest reports whether rows hold a record of course taken on latest.
// A course with no dated extraction has no members.
func InLatest(rows []domain.NormalizedRecord, course string, latest *time.Time) bool {
	if latest == nil {
		return false
	}
	for _, r := range rows {
		if r.CourseType == course && r.ExtractedOn(*latest) {
			return true
		}
	}
	return false
}

// VerdictsAt returns the verdict texts of rows for course taken on latest.
func VerdictsAt(rows []domain.NormalizedRecord, course string, latest *time.Time) []string {
	if latest == nil {
		return nil
	}
	var out []string
	for _, r := range rows {
		if r.CourseType == course && r.ExtractedOn(*latest) {
			out = append(out, r.Verdict)
		}
	}
	return out
}

// ReduceVerdict collapses the verdict texts of one snapshot. A PASS anywhere
// wins over a FAIL; blank texts are ignored.
func ReduceVerdict(verdicts []string) domain.Verdict {
	if anyContains(verdicts, "PASS") {
		return domain.VerdictPassed
	}
	if anyContains(verdicts, "FAIL") {
		return domain.VerdictFailed
	}
	return domain.VerdictUnknown
}

func anyContains(verdicts []string, token string) bool {
	for _, v := range verdicts {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if strings.Contains(strings.ToUpper(v), token) {
			return true
		}
	}
	return false
}
