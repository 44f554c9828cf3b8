package merge

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/genai-ESCP/Backoffice-DataAnalytics/internal/errors"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// Render writes the merged sheet first, then the companion sheets, and puts
// the Verdict formula in every data row of the merged sheet.
func Render(result *domain.MergeResult) ([]byte, error) {
	rule, err := LocateVerdictRule(result.Merged.Header)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if first := f.GetSheetName(0); first != result.Merged.Name {
		if err := f.SetSheetName(first, result.Merged.Name); err != nil {
			return nil, renderError(err)
		}
	}
	if err := writeSheet(f, result.Merged); err != nil {
		return nil, renderError(err)
	}
	for row := 2; row <= len(result.Merged.Rows)+1; row++ {
		if err := f.SetCellFormula(result.Merged.Name, rule.VerdictCol+strconv.Itoa(row), rule.Formula(row)); err != nil {
			return nil, renderError(err)
		}
	}

	for _, s := range result.Passthrough {
		if _, err := f.NewSheet(s.Name); err != nil {
			return nil, renderError(err)
		}
		if err := writeSheet(f, s); err != nil {
			return nil, renderError(err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, renderError(err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s domain.Sheet) error {
	for c, h := range s.Header {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(s.Name, cell, h); err != nil {
			return err
		}
	}
	for r, row := range s.Rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(s.Name, cell, cellValue(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// cellValue writes numbers as numbers so formulas can compare them. Values
// with a leading zero such as student codes stay text.
func cellValue(v string) any {
	t := strings.TrimSpace(v)
	if t == "" || strings.Trim(t, "0123456789.eE+-") != "" {
		return v
	}
	if len(t) > 1 && t[0] == '0' && t[1] != '.' {
		return v
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return v
	}
	return n
}

func renderError(err error) error {
	return apperrors.NewStorageError("cannot render extraction workbook", err)
}
