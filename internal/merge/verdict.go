package merge

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// Output column names of the merged sheet.
const (
	ColLastName  = "Last Name"
	ColFirstName = "First Name"
	ColStudentID = "Student ID"
	ColEmail     = "Email"
	ColVerdict   = "Verdict"
	ColHours     = "Hours in Course"
	ColGrade     = "Overall Grade"
)

// VerdictRule is the pass rule written into every data row of the merged
// sheet. Columns are spreadsheet letters.
type VerdictRule struct {
	HoursCol   string
	GradeCol   string
	VerdictCol string
	MinHours   float64
	MinGrade   float64
}

// Formula returns the Verdict formula for a 1-based sheet row, without the
// leading "=".
func (v VerdictRule) Formula(row int) string {
	return fmt.Sprintf(`IF(AND(%s%d>=%g,%s%d>=%g),"Passed","Failed")`,
		v.HoursCol, row, v.MinHours, v.GradeCol, row, v.MinGrade)
}

// Evaluate applies the rule in Go.
func (v VerdictRule) Evaluate(hours, grade float64) domain.Verdict {
	if hours >= v.MinHours && grade >= v.MinGrade {
		return domain.VerdictPassed
	}
	return domain.VerdictFailed
}

// LocateVerdictRule finds the Verdict, Hours in Course and grade columns in a
// header row. The grade column is the first header containing both "overall"
// and "grade", else the first containing either.
func LocateVerdictRule(header []string) (VerdictRule, error) {
	verdict, hours, grade := -1, -1, -1
	for i, h := range header {
		switch h {
		case ColVerdict:
			verdict = i
		case ColHours:
			hours = i
		}
	}
	for i, h := range header {
		k := textnorm.NormalizeKey(h)
		if strings.Contains(k, "overall") && strings.Contains(k, "grade") {
			grade = i
			break
		}
	}
	if grade < 0 {
		for i, h := range header {
			k := textnorm.NormalizeKey(h)
			if strings.Contains(k, "overall") || strings.Contains(k, "grade") {
				grade = i
				break
			}
		}
	}

	if verdict < 0 || hours < 0 || grade < 0 {
		var missing []string
		for name, idx := range map[string]int{ColVerdict: verdict, ColHours: hours, ColGrade: grade} {
			if idx < 0 {
				missing = append(missing, name)
			}
		}
		return VerdictRule{}, apperrors.NewStructureError("cannot place the Verdict formula", nil).
			WithContext("missing", sortedStrings(missing)).
			WithContext("available", header)
	}

	return VerdictRule{
		HoursCol:   columnName(hours),
		GradeCol:   columnName(grade),
		VerdictCol: columnName(verdict),
		MinHours:   config.MinPassingHours,
		MinGrade:   config.MinPassingGrade,
	}, nil
}

func columnName(idx int) string {
	name, err := excelize.ColumnNumberToName(idx + 1)
	if err != nil {
		return ""
	}
	return name
}
