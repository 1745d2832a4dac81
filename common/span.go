package common

import "fmt"

// Span records one match occurrence inside an attribute's text.
// Start and End are byte offsets into the attribute text, End exclusive. Key is the query,
// dictionary entry or pattern that produced the match and Value is the matched text.
type Span struct {
	AttributeName string
	Start         int
	End           int
	Key           string
	Value         string
}

func NewSpan(attributeName string, start, end int, key, value string) Span {
	return Span{AttributeName: attributeName, Start: start, End: end, Key: key, Value: value}
}

// Interval returns the positional part of the span.
func (s Span) Interval() Interval {
	return Interval{Start: s.Start, End: s.End, AttributeName: s.AttributeName}
}

// Valid reports whether the span lies inside text and its value is the text it covers.
func (s Span) Valid(text string) bool {
	if s.Start < 0 || s.Start > s.End || s.End > len(text) {
		return false
	}
	return text[s.Start:s.End] == s.Value
}

func (s Span) String() string {
	return fmt.Sprintf("%s[%d,%d) %q:%q", s.AttributeName, s.Start, s.End, s.Key, s.Value)
}

// Interval is a lightweight positional marker, a Span without provenance.
type Interval struct {
	Start         int
	End           int
	AttributeName string
}
