package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ObjectID is a unique identifier for a table/index in the database.
type ObjectID uint32

const InvalidObjectID ObjectID = 0

// DateLayout is the textual form of DateType values.
const DateLayout = "2006-01-02"

type Type int8

const (
	// For uninitialized Values
	DefaultType Type = iota
	// StringType holds short identifiers that are matched as a whole.
	StringType
	// TextType holds free text that is searched for substrings and tokens.
	TextType
	IntType
	DoubleType
	DateType
	// ListType holds a list of Spans.
	ListType
)

func (t Type) String() string {
	switch t {
	case StringType:
		return "string"
	case TextType:
		return "text"
	case IntType:
		return "int"
	case DoubleType:
		return "double"
	case DateType:
		return "date"
	case ListType:
		return "list"
	}
	return "unknown"
}

// IsStringLike reports whether values of this type carry text that matchers can search.
func (t Type) IsStringLike() bool {
	return t == StringType || t == TextType
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return StringType, nil
	case "text":
		return TextType, nil
	case "int", "integer":
		return IntType, nil
	case "double":
		return DoubleType, nil
	case "date":
		return DateType, nil
	case "list":
		return ListType, nil
	}
	return DefaultType, NewConfigurationError("unknown attribute type '%s'", s)
}

// MarshalText lets catalogs and plan files spell types by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value represents a single field of a tuple.
// Exactly one of the underlying members is meaningful, selected by t. A ListType value
// shares its span slice with copies of the Value; see Tuple.AppendSpans.
type Value struct {
	t                Type
	null             bool
	underlyingString string
	underlyingInt    int64
	underlyingDouble float64
	underlyingDate   time.Time
	spans            []Span
}

// IsNil returns true if the Value is nil and uninitialized. This is NOT to be confused with NULL values.
func (v Value) IsNil() bool {
	return v.t == DefaultType
}

// NewStringValue creates a new string Value.
func NewStringValue(v string) Value {
	return Value{t: StringType, underlyingString: v}
}

// NewTextValue creates a new free-text Value.
func NewTextValue(v string) Value {
	return Value{t: TextType, underlyingString: v}
}

// NewIntValue creates a new integer Value.
func NewIntValue(v int64) Value {
	return Value{t: IntType, underlyingInt: v}
}

// NewDoubleValue creates a new floating point Value.
func NewDoubleValue(v float64) Value {
	return Value{t: DoubleType, underlyingDouble: v}
}

// NewDateValue creates a new date Value.
func NewDateValue(v time.Time) Value {
	return Value{t: DateType, underlyingDate: v}
}

// NewSpanListValue creates a span list Value. The slice is owned by the Value afterwards.
func NewSpanListValue(spans []Span) Value {
	if spans == nil {
		spans = make([]Span, 0)
	}
	return Value{t: ListType, spans: spans}
}

// NewNullValue creates a NULL Value of the given type.
func NewNullValue(t Type) Value {
	return Value{t: t, null: true}
}

// Type returns the type of the Value.
func (v Value) Type() Type {
	return v.t
}

// IsNull returns true if the Value is NULL.
func (v Value) IsNull() bool {
	return v.null
}

// StringValue returns the underlying (non-NULL) string of a String or Text value.
func (v Value) StringValue() string {
	Assert(v.t.IsStringLike(), "type mismatch in StringValue")
	Assert(!v.null, "accessing value of NULL string")
	return v.underlyingString
}

// IntValue returns the underlying (non-NULL) integer.
func (v Value) IntValue() int64 {
	Assert(v.t == IntType, "type mismatch in IntValue")
	Assert(!v.null, "accessing value of NULL int")
	return v.underlyingInt
}

// DoubleValue returns the underlying (non-NULL) float.
func (v Value) DoubleValue() float64 {
	Assert(v.t == DoubleType, "type mismatch in DoubleValue")
	Assert(!v.null, "accessing value of NULL double")
	return v.underlyingDouble
}

// DateValue returns the underlying (non-NULL) date.
func (v Value) DateValue() time.Time {
	Assert(v.t == DateType, "type mismatch in DateValue")
	Assert(!v.null, "accessing value of NULL date")
	return v.underlyingDate
}

// Spans returns the underlying span list. Callers must not modify it.
func (v Value) Spans() []Span {
	Assert(v.t == ListType, "type mismatch in Spans")
	return v.spans
}

// String renders the value as text. NULL renders as the empty string.
func (v Value) String() string {
	if v.null {
		return ""
	}
	switch v.t {
	case StringType, TextType:
		return v.underlyingString
	case IntType:
		return strconv.FormatInt(v.underlyingInt, 10)
	case DoubleType:
		return strconv.FormatFloat(v.underlyingDouble, 'g', -1, 64)
	case DateType:
		return v.underlyingDate.Format(DateLayout)
	case ListType:
		parts := make([]string, len(v.spans))
		for i, s := range v.spans {
			parts[i] = s.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("<%s>", v.t)
}
