package models

import "time"

// TimestampLayout is the fixed timestamp format used on every stored
// created_at/modified_at field: DD-MM-YYYY HH:MM:SS.
const TimestampLayout = "02-01-2006 15:04:05"

// Now returns the current time in the stored timestamp format.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. A malformed value parses as the
// zero time, which sorts last in newest-first listings.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TimestampAfter reports whether a sorts after b as parsed times. The
// day-first layout is not lexically ordered, so listings must never compare
// the raw strings.
func TimestampAfter(a, b string) bool {
	return ParseTimestamp(a).After(ParseTimestamp(b))
}

// TimestampBefore reports whether a sorts before b as parsed times.
func TimestampBefore(a, b string) bool {
	return ParseTimestamp(a).Before(ParseTimestamp(b))
}
