package schedule

import (
	"strings"
	"unicode"
)

// Normalize prepares free text for the query string: lower case, trailing
// whitespace removed, spaces replaced with '+'. No other characters are
// escaped.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	return strings.ReplaceAll(s, " ", "+")
}

// Query is one schedule lookup. Departure and Destination are expected to be
// normalized; Time is either empty or a confirmed time string.
type Query struct {
	Departure   string
	Destination string
	Time        string
}

// NewQuery normalizes the raw text inputs and pairs them with time.
func NewQuery(start, destination, time string) Query {
	return Query{
		Departure:   Normalize(start),
		Destination: Normalize(destination),
		Time:        time,
	}
}

// Encode renders the query string in the fixed parameter order the API
// expects.
func (q Query) Encode() string {
	var b strings.Builder
	b.WriteString("departure=")
	b.WriteString(q.Departure)
	b.WriteString("&destination=")
	b.WriteString(q.Destination)
	b.WriteString("&time=")
	b.WriteString(q.Time)
	return b.String()
}

// URL appends the encoded query to base. A base that already ends in '?' or
// '&' is used as is.
func (q Query) URL(base string) string {
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		return base + q.Encode()
	case strings.Contains(base, "?"):
		return base + "&" + q.Encode()
	default:
		return base + "?" + q.Encode()
	}
}
