package ingest

import (
	"regexp"
	"strconv"
	"time"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
)

var (
	// ..._27_Janv.xlsx, ..._27_Janv (1).xlsx, ..._27_Janv_2026.xlsx
	extractionDatePattern = regexp.MustCompile(`(?i)_(\d{1,2})_([A-Za-zÀ-ÿ]+)(?:_(\d{4}))?\s*(?:\(\d+\))?\.xlsx$`)
	academicPrefix        = regexp.MustCompile(`^(\d{2})(\d{2})`)
)

// Keys are accent-free; tokens go through textnorm.NormalizeKey first.
var monthTokens = map[string]time.Month{
	"jan": time.January, "janv": time.January, "janvier": time.January, "january": time.January,
	"fev": time.February, "fevr": time.February, "fevrier": time.February, "feb": time.February, "february": time.February,
	"mar": time.March, "mars": time.March, "march": time.March,
	"avr": time.April, "avril": time.April, "apr": time.April, "april": time.April,
	"mai": time.May, "may": time.May,
	"juin": time.June, "jun": time.June, "june": time.June,
	"juil": time.July, "juillet": time.July, "jul": time.July, "july": time.July,
	"aout": time.August, "aug": time.August, "august": time.August,
	"sept": time.September, "sep": time.September, "september": time.September, "septembre": time.September,
	"oct": time.October, "october": time.October, "octobre": time.October,
	"nov": time.November, "november": time.November, "novembre": time.November,
	"dec": time.December, "decembre": time.December, "december": time.December,
}

// ParseExtractionDate reads the snapshot date encoded in an extraction file
// name. A missing year is inferred from the course code with InferYear. It
// returns nil when the name has no date suffix, the month token is unknown or
// the day does not exist in that month.
func ParseExtractionDate(fileName, courseCode string, now time.Time) *time.Time {
	m := extractionDatePattern.FindStringSubmatch(fileName)
	if m == nil {
		return nil
	}

	day, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	month, ok := monthTokens[textnorm.NormalizeKey(m[2])]
	if !ok {
		return nil
	}

	var year int
	if m[3] != "" {
		if year, err = strconv.Atoi(m[3]); err != nil {
			return nil
		}
	} else {
		year = InferYear(courseCode, month, now)
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		return nil
	}
	return &d
}

// InferYear maps a month onto a calendar year using the academic prefix of a
// course code: "2526..." runs from October 2025 to September 2026. Codes
// without the prefix fall back to now's year.
func InferYear(courseCode string, month time.Month, now time.Time) int {
	m := academicPrefix.FindStringSubmatch(courseCode)
	if m == nil {
		return now.Year()
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if month >= time.October {
		return 2000 + start
	}
	return 2000 + end
}
