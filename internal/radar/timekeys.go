package radar

import (
	"fmt"
	"strconv"
	"time"
)

// TimeKeys are the derived calendar labels usable as group keys.
var TimeKeys = []string{
	"year", "month", "month_name", "quarter", "season",
	"day", "doy", "dow", "hour", "minute", "second",
}

var timeKeySet = func() map[string]bool {
	m := make(map[string]bool, len(TimeKeys))
	for _, k := range TimeKeys {
		m[k] = true
	}
	return m
}()

// Season returns the meteorological season code of t (DJF, MAM, JJA, SON).
func Season(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return "DJF"
	case time.March, time.April, time.May:
		return "MAM"
	case time.June, time.July, time.August:
		return "JJA"
	default:
		return "SON"
	}
}

// TimeComponent returns the label of t for one of TimeKeys. Numbers are not
// zero padded; dow counts from Monday = 0.
func TimeComponent(t time.Time, key string) (string, error) {
	switch key {
	case "year":
		return strconv.Itoa(t.Year()), nil
	case "month":
		return strconv.Itoa(int(t.Month())), nil
	case "month_name":
		return t.Month().String(), nil
	case "quarter":
		return strconv.Itoa((int(t.Month())-1)/3 + 1), nil
	case "season":
		return Season(t), nil
	case "day":
		return strconv.Itoa(t.Day()), nil
	case "doy":
		return strconv.Itoa(t.YearDay()), nil
	case "dow":
		return strconv.Itoa((int(t.Weekday()) + 6) % 7), nil
	case "hour":
		return strconv.Itoa(t.Hour()), nil
	case "minute":
		return strconv.Itoa(t.Minute()), nil
	case "second":
		return strconv.Itoa(t.Second()), nil
	}
	return "", fmt.Errorf("%w: unknown time key %q", ErrInvalidValue, key)
}
