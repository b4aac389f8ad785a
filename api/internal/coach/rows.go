package coach

import "strings"

// Row is one line of the data entry table.
type Row struct {
	Category string   `json:"category"`
	Count    RawCount `json:"count"`
}

// SplitRows turns table rows into the parallel category and count
// sequences kept in State. Rows with neither a label nor a non-zero count
// are blank table lines and are dropped. Integer counts are normalized.
func SplitRows(rows []Row) ([]string, []RawCount) {
	categories := make([]string, 0, len(rows))
	counts := make([]RawCount, 0, len(rows))
	for _, r := range rows {
		label := strings.TrimSpace(r.Category)
		if label == "" && blankCount(r.Count) {
			continue
		}
		categories = append(categories, label)
		counts = append(counts, r.Count.Normalize())
	}
	return categories, counts
}

// Rows zips categories and counts back into table rows. Extra entries on
// either side get an empty partner.
func (s State) Rows() []Row {
	n := max(len(s.Categories), len(s.Counts))
	out := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		var r Row
		if i < len(s.Categories) {
			r.Category = s.Categories[i]
		}
		if i < len(s.Counts) {
			r.Count = s.Counts[i]
		}
		out = append(out, r)
	}
	return out
}

func blankCount(c RawCount) bool {
	if strings.TrimSpace(string(c)) == "" {
		return true
	}
	n, err := c.Int()
	return err == nil && n == 0
}
