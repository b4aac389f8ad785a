package telegram

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/util"
)

var errNoSeparator = errors.New("missing separator between category and count")

// parseDataLines reads one "Category: count" row per line; ";", "=" and a
// tab also separate. Leading list markers are ignored. On failure it
// returns the 1-based number of the offending non-blank line.
func parseDataLines(text string) ([]coach.Row, int, error) {
	lines := util.SplitLines(text)
	rows := make([]coach.Row, 0, len(lines))
	for i, line := range lines {
		row, err := parseDataLine(line)
		if err != nil {
			return nil, i + 1, err
		}
		rows = append(rows, row)
	}
	return rows, 0, nil
}

func parseDataLine(line string) (coach.Row, error) {
	line = strings.TrimLeft(line, "-•* ")
	idx := strings.LastIndexAny(line, ":;=\t")
	if idx < 0 {
		return coach.Row{}, errNoSeparator
	}
	return coach.Row{
		Category: strings.TrimSpace(line[:idx]),
		Count:    coach.RawCount(strings.TrimSpace(line[idx+1:])),
	}, nil
}

var reInt = regexp.MustCompile(`-?\d+`)

// parseScale extracts the graduation step and the axis top from text such
// as "5 40", "5, 40" or "step 5 top 40".
func parseScale(text string) (step, top int, err error) {
	nums := reInt.FindAllString(text, -1)
	if len(nums) != 2 {
		return 0, 0, errors.New("expected two integers")
	}
	if step, err = strconv.Atoi(nums[0]); err != nil {
		return 0, 0, err
	}
	if top, err = strconv.Atoi(nums[1]); err != nil {
		return 0, 0, err
	}
	return step, top, nil
}
