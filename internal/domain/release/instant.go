package release

import (
	"fmt"
	"time"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ResolveInstant converts a user-entered wall-clock time into an absolute
// UTC instant. Inputs carrying an explicit offset (RFC 3339) are taken as-is
// and the timezone is ignored; otherwise the value is interpreted in tz
// (UTC when tz is empty).
func ResolveInstant(value, tz string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, value); err == nil {
		return at.UTC(), nil
	}

	loc, err := LoadTimezone(tz)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range localLayouts {
		if at, err := time.ParseInLocation(layout, value, loc); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, Validation(fmt.Sprintf("cannot parse time %q", value), map[string]interface{}{
		"value":    value,
		"timezone": tz,
	})
}

// LoadTimezone resolves an IANA zone name; empty means UTC.
func LoadTimezone(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("unknown timezone %q", tz), err, map[string]interface{}{
			"timezone": tz,
		})
	}
	return loc, nil
}
