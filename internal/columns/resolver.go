package columns

import (
	"fmt"
	"strings"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
)

// Field names a canonical column.
type Field string

const (
	FieldEmail     Field = "email"
	FieldStudentID Field = "student_id"
	FieldCode      Field = "code"
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldHours     Field = "hours"
	FieldGrade     Field = "grade"
	FieldVerdict   Field = "verdict"
	FieldCampus    Field = "campus"
	FieldProgram   Field = "program"
	FieldPromotion Field = "promotion"
	FieldLicense   Field = "license_status"
)

// KeywordGroup is a set of tokens that must all appear in a column label.
type KeywordGroup []string

// Rule is an ordered list of keyword groups; the first group that matches any
// column wins.
type Rule []KeywordGroup

func (g KeywordGroup) matches(tokens map[string]struct{}) bool {
	if len(g) == 0 {
		return false
	}
	for _, kw := range g {
		if _, ok := tokens[textnorm.NormalizeKey(kw)]; !ok {
			return false
		}
	}
	return true
}

func tokenSet(label string) map[string]struct{} {
	toks := textnorm.Tokens(label)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

// FindColumn returns the first column, in column order, matching the earliest
// group of rule that matches anything. Columns in exclude are skipped. It
// returns "" when nothing matches.
func FindColumn(columns []string, rule Rule, exclude map[string]bool) string {
	sets := make([]map[string]struct{}, len(columns))
	for i, c := range columns {
		sets[i] = tokenSet(c)
	}
	for _, group := range rule {
		for i, c := range columns {
			if exclude[c] {
				continue
			}
			if group.matches(sets[i]) {
				return c
			}
		}
	}
	return ""
}

// Binding ties a field to its matching rule. Default, when set, is used as the
// column name if the rule finds nothing; it may be absent from the table, which
// Ensure reports.
type Binding struct {
	Field   Field
	Rule    Rule
	Default string
}

// Resolver resolves bindings in order. Each binding excludes every column
// claimed by the bindings before it, so later fields cannot steal an earlier
// field's column.
type Resolver struct {
	Bindings []Binding
}

// NewResolver builds a resolver over bindings.
func NewResolver(bindings ...Binding) *Resolver {
	return &Resolver{Bindings: bindings}
}

// Assignment is one resolved field.
type Assignment struct {
	Field  Field
	Column string
}

// Mapping is the result of resolving a header row.
type Mapping struct {
	Assignments []Assignment
	Available   []string
}

// Resolve maps the resolver's bindings onto columns.
func (r *Resolver) Resolve(columns []string) *Mapping {
	m := &Mapping{Available: append([]string(nil), columns...)}
	claimed := make(map[string]bool)
	for _, b := range r.Bindings {
		col := FindColumn(columns, b.Rule, claimed)
		if col == "" {
			col = b.Default
		}
		if col != "" {
			claimed[col] = true
		}
		m.Assignments = append(m.Assignments, Assignment{Field: b.Field, Column: col})
	}
	return m
}

// Column returns the column bound to field, or "".
func (m *Mapping) Column(field Field) string {
	for _, a := range m.Assignments {
		if a.Field == field {
			return a.Column
		}
	}
	return ""
}

// Index returns the position of field's column in Available, or -1.
func (m *Mapping) Index(field Field) int {
	col := m.Column(field)
	if col == "" {
		return -1
	}
	for i, c := range m.Available {
		if c == col {
			return i
		}
	}
	return -1
}

// Ensure checks that every required field is bound to a distinct column that
// exists in the table.
func (m *Mapping) Ensure(required ...Field) error {
	present := make(map[string]bool, len(m.Available))
	for _, c := range m.Available {
		present[c] = true
	}

	owners := make(map[string][]Field)
	var missing []Field
	for _, f := range required {
		col := m.Column(f)
		if col == "" || !present[col] {
			missing = append(missing, f)
		}
		if col != "" {
			owners[col] = append(owners[col], f)
		}
	}

	var overlaps []string
	for _, f := range required {
		col := m.Column(f)
		if fs := owners[col]; col != "" && len(fs) > 1 && fs[0] == f {
			overlaps = append(overlaps, col)
		}
	}

	if len(missing) == 0 && len(overlaps) == 0 {
		return nil
	}
	return &ResolutionError{
		Detected:  m.describe(required),
		Overlaps:  overlaps,
		Missing:   missing,
		Available: m.Available,
	}
}

func (m *Mapping) describe(fields []Field) []Assignment {
	out := make([]Assignment, 0, len(fields))
	for _, f := range fields {
		out = append(out, Assignment{Field: f, Column: m.Column(f)})
	}
	return out
}

// ResolutionError reports ambiguous or missing column assignments.
type ResolutionError struct {
	Detected  []Assignment
	Overlaps  []string
	Missing   []Field
	Available []string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	if len(e.Overlaps) > 0 {
		fmt.Fprintf(&b, "auto-detection picked overlapping columns %q", e.Overlaps)
	}
	if len(e.Missing) > 0 {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "missing columns for %v", e.Missing)
	}
	parts := make([]string, 0, len(e.Detected))
	for _, a := range e.Detected {
		parts = append(parts, fmt.Sprintf("%s=%q", a.Field, a.Column))
	}
	fmt.Fprintf(&b, ". Detected: %s. Found: %q", strings.Join(parts, ", "), e.Available)
	return b.String()
}
