package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateLayout is the canonical rendering of calendar dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout, "2006/01/02", "01/02/2006", "1/2/2006", "01-02-06", "1-2-06",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
	time.RFC3339, "1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006 3:04:05 PM",
	"01/02/2006 15:04:05", "02-Jan-06", "02-Jan-2006", "January 2, 2006",
}

// IsMissing reports whether a cell holds no value.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// FormatValue renders a cell as text. Missing cells render empty.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.Format(DateLayout)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// ToFloat coerces a cell to a number. Non-numeric and missing cells fail.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ToDate coerces a cell to a calendar date (UTC midnight). Numbers and
// numeric strings are read as Excel serial dates.
func ToDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return truncateDay(x), true
	case float64:
		return fromSerial(x)
	case int:
		return fromSerial(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		return ParseDate(s)
	}
	return time.Time{}, false
}

// ParseDate parses common textual date layouts into a calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func fromSerial(f float64) (time.Time, bool) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return truncateDay(t), true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// kind orders heterogeneous values: numbers, then dates, then text.
func kind(v any) int {
	switch v.(type) {
	case float64, int:
		return 0
	case time.Time:
		return 1
	}
	return 2
}

// CompareValues orders two non-missing cells ascending. Numbers compare
// numerically, dates chronologically, everything else by rendered text.
func CompareValues(a, b any) int {
	ka, kb := kind(a), kind(b)
	if ka != kb {
		return ka - kb
	}
	switch ka {
	case 0:
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 1:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

// SameValue reports whether two cells are equal for join and filter
// purposes. Text and numbers match when their renderings match.
func SameValue(a, b any) bool {
	if IsMissing(a) || IsMissing(b) {
		return false
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := ToDate(b)
		return ok && truncateDay(ta).Equal(tb)
	}
	if tb, ok := b.(time.Time); ok {
		ta, ok := ToDate(a)
		return ok && ta.Equal(truncateDay(tb))
	}
	return strings.TrimSpace(FormatValue(a)) == strings.TrimSpace(FormatValue(b))
}
