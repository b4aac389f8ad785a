package coach

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawCount is a count exactly as the student typed it. It may not be an
// integer; the analyzer reports that instead of rejecting the input.
type RawCount string

// Count builds a RawCount from an integer.
func Count(n int) RawCount {
	return RawCount(strconv.Itoa(n))
}

// Int coerces the raw value to a base-10 integer, ignoring surrounding blanks.
func (c RawCount) Int() (int, error) {
	s := strings.TrimSpace(string(c))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("count %q is not an integer", string(c))
	}
	return n, nil
}

// Normalize returns the canonical decimal form when the value coerces,
// and the untouched input otherwise.
func (c RawCount) Normalize() RawCount {
	if n, err := c.Int(); err == nil {
		return Count(n)
	}
	return c
}

func (c RawCount) String() string {
	return string(c)
}

// MarshalJSON emits canonical integers as JSON numbers and anything else
// as a string.
func (c RawCount) MarshalJSON() ([]byte, error) {
	if n, err := c.Int(); err == nil && Count(n) == c {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (c *RawCount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = RawCount(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("count must be a number or a string: %w", err)
		}
		*c = RawCount(n.String())
		return nil
	}
}
