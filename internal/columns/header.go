// Package columns locates the header row of headerless exports and maps their
// free-form column labels onto canonical fields.
//
// Matching is data-driven: a Rule is an ordered list of keyword groups and a
// column matches a group when its token set contains every keyword. New header
// variants are added to the tables in rules.go, not to code.
package columns

import (
	"strings"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/textnorm"
)

// DefaultHeaderScan is how many leading rows DetectHeaderRow inspects.
const DefaultHeaderScan = 30

// headerTokens are the compact forms of the canonical gradebook headers.
var headerTokens = []string{
	"lastname",
	"firstname",
	"studentid",
	"email",
	"verdict",
	"hoursincourse",
	"overallgrade",
}

// DetectHeaderRow returns the index of the row among the first maxScan rows
// that contains the most canonical header tokens. Ties go to the lowest index,
// blank rows are ignored and an empty table yields 0.
func DetectHeaderRow(rows [][]string, maxScan int) int {
	if maxScan <= 0 {
		maxScan = DefaultHeaderScan
	}
	limit := min(maxScan, len(rows))

	best, bestScore := 0, -1
	for i := 0; i < limit; i++ {
		var cells []string
		for _, v := range rows[i] {
			v = strings.TrimSpace(v)
			if v == "" || strings.EqualFold(v, "nan") {
				continue
			}
			if c := textnorm.CompactKey(v); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}

		joined := strings.Join(cells, " ")
		score := 0
		for _, tok := range headerTokens {
			if strings.Contains(joined, tok) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
