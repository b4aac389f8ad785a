package coach

import (
	"math"
	"strings"
)

// Issue is a data inconsistency found by AnalyzeData.
type Issue string

const (
	IssueDuplicateCategories Issue = "duplicate_categories"
	IssueNonIntegerCounts    Issue = "non_integer_counts"
	IssueNegativeCounts      Issue = "negative_counts"
	IssueNullSum             Issue = "null_sum"
)

// Stats summarizes the counts and proposes a round scale.
type Stats struct {
	Total         int `json:"total"`
	Max           int `json:"max"`
	SuggestedStep int `json:"suggestedStep"`
	RoundedTop    int `json:"roundedTop"`
}

// Analysis is the result of AnalyzeData.
type Analysis struct {
	Issues []Issue `json:"issues"`
	Stats  Stats   `json:"stats"`
}

// graduationTarget is the number of tick marks the suggested step aims for.
const graduationTarget = 8

// MaxCount bounds the magnitude of a single count. Larger values are
// reported as IssueNonIntegerCounts so totals and tops cannot overflow.
const MaxCount = 1_000_000_000

// AnalyzeData checks categories and raw counts. It never fails: a count
// that is not an integer, or exceeds MaxCount in magnitude, yields
// IssueNonIntegerCounts and zeroed totals.
func AnalyzeData(categories []string, counts []RawCount) Analysis {
	issues := []Issue{}

	seen := make(map[string]struct{}, len(categories))
	duplicate := false
	for _, c := range categories {
		label := strings.TrimSpace(c)
		if label == "" {
			continue
		}
		// Case only, accents are kept.
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			duplicate = true
		}
		seen[key] = struct{}{}
	}
	if duplicate {
		issues = append(issues, IssueDuplicateCategories)
	}

	ints := make([]int, 0, len(counts))
	for _, raw := range counts {
		n, err := raw.Int()
		if err != nil || n > MaxCount || n < -MaxCount {
			issues = append(issues, IssueNonIntegerCounts)
			ints = nil
			break
		}
		ints = append(ints, n)
	}

	var total, maxCount int
	if len(ints) > 0 {
		negative := false
		maxCount = ints[0]
		for _, n := range ints {
			if n < 0 {
				negative = true
			}
			total += n
			maxCount = max(maxCount, n)
		}
		if negative {
			issues = append(issues, IssueNegativeCounts)
		}
		if total == 0 {
			issues = append(issues, IssueNullSum)
		}
	}

	step, top := SuggestScale(maxCount)
	return Analysis{
		Issues: issues,
		Stats: Stats{
			Total:         total,
			Max:           maxCount,
			SuggestedStep: step,
			RoundedTop:    top,
		},
	}
}

// SuggestScale proposes a graduation step giving roughly eight marks and a
// top that strictly exceeds maxCount. A maximum that is not positive falls
// back to a step of 1 and a top of 10. maxCount is expected to be at most
// MaxCount.
func SuggestScale(maxCount int) (step, top int) {
	if maxCount <= 0 {
		return 1, 10
	}
	step = max(1, int(math.RoundToEven(float64(maxCount)/graduationTarget)))
	top = (maxCount/step + 1) * step
	return step, top
}

// IssueTexts localizes issues in order.
func (c *Coach) IssueTexts(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, c.loc.T("issue."+string(is)))
	}
	return out
}

// Analyze runs AnalyzeData on the data held by s.
func (s State) Analyze() Analysis {
	return AnalyzeData(s.Categories, s.Counts)
}
