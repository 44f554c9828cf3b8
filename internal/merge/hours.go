package merge

import (
	"errors"
	"strings"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/columns"
	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

var hoursResolver = columns.NewResolver(columns.HoursRules...)

// ResolveHoursColumns maps the hours export header onto the five roles the
// merge needs. Overlapping or missing columns are a STRUCTURE error carrying
// the detected mapping.
func ResolveHoursColumns(header []string) (domain.HoursMapping, error) {
	m := hoursResolver.Resolve(header)
	mapping := domain.HoursMapping{
		Code:  m.Column(columns.FieldCode),
		First: m.Column(columns.FieldFirstName),
		Last:  m.Column(columns.FieldLastName),
		Email: m.Column(columns.FieldEmail),
		Hours: m.Column(columns.FieldHours),
	}

	if err := m.Ensure(columns.HoursRequired...); err != nil {
		appErr := apperrors.NewStructureError("hours export columns not recognized", err).
			WithContext("detected", mapping)
		var rerr *columns.ResolutionError
		if errors.As(err, &rerr) {
			if len(rerr.Missing) > 0 {
				appErr.WithContext("missing", rerr.Missing)
			}
			if len(rerr.Overlaps) > 0 {
				appErr.WithContext("overlapping", rerr.Overlaps)
			}
			appErr.WithContext("available", rerr.Available)
		}
		return mapping, appErr
	}
	return mapping, nil
}

// hoursEntry aggregates every hours row sharing a key.
type hoursEntry struct {
	hours *float64
	email string
}

func (e *hoursEntry) add(hours *float64, email string) {
	if hours != nil && (e.hours == nil || *hours > *e.hours) {
		v := *hours
		e.hours = &v
	}
	if e.email == "" && email != "" {
		e.email = email
	}
}

// HoursLookup indexes the hours export by student code and by name.
type HoursLookup struct {
	byID   map[string]*hoursEntry
	byName map[string]*hoursEntry
}

// nameKey joins accent-folded first and last names. It returns "" when both
// are empty so blank rows never match each other.
func nameKey(first, last string) string {
	f, l := textnorm.NormalizeKey(first), textnorm.NormalizeKey(last)
	if f == "" && l == "" {
		return ""
	}
	return f + "|" + l
}

// BuildHoursLookup aggregates the hours export: for each key the maximum
// numeric hours value and the first non-empty email, lowercased.
func BuildHoursLookup(sheet domain.Sheet, mapping domain.HoursMapping) *HoursLookup {
	l := &HoursLookup{byID: make(map[string]*hoursEntry), byName: make(map[string]*hoursEntry)}
	code := sheet.ColumnIndex(mapping.Code)
	first := sheet.ColumnIndex(mapping.First)
	last := sheet.ColumnIndex(mapping.Last)
	email := sheet.ColumnIndex(mapping.Email)
	hours := sheet.ColumnIndex(mapping.Hours)

	for _, row := range sheet.Rows {
		h := textnorm.ParseDecimalPtr(at(row, hours))
		e := strings.ToLower(strings.TrimSpace(at(row, email)))

		if id := strings.TrimSpace(at(row, code)); id != "" {
			entry(l.byID, id).add(h, e)
		}
		if key := nameKey(at(row, first), at(row, last)); key != "" {
			entry(l.byName, key).add(h, e)
		}
	}
	return l
}

func entry(m map[string]*hoursEntry, key string) *hoursEntry {
	e, ok := m[key]
	if !ok {
		e = &hoursEntry{}
		m[key] = e
	}
	return e
}

// Match returns the hours and email for a gradebook row. Hours come from the
// ID match, else the name match, else 0. Email comes from the ID match when
// non-empty, else the name match, else "".
func (l *HoursLookup) Match(id, first, last string) (float64, string) {
	byID := l.byID[strings.TrimSpace(id)]
	var byName *hoursEntry
	if key := nameKey(first, last); key != "" {
		byName = l.byName[key]
	}

	var hours float64
	switch {
	case byID != nil && byID.hours != nil:
		hours = *byID.hours
	case byName != nil && byName.hours != nil:
		hours = *byName.hours
	}

	var email string
	switch {
	case byID != nil && byID.email != "":
		email = byID.email
	case byName != nil:
		email = byName.email
	}
	return hours, email
}

func at(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
