package storage

import (
	"fmt"
	"strings"

	"mit.edu/dsg/textdb/common"
)

// SpanListName is the name of the reserved attribute that source operators annotate
// tuples with.
const SpanListName = "spanList"

// SpanListAttribute is the reserved span list attribute.
var SpanListAttribute = Attribute{Name: SpanListName, Type: common.ListType}

// Attribute is one named, typed column of a Schema.
type Attribute struct {
	Name string      `json:"name" yaml:"name"`
	Type common.Type `json:"type" yaml:"type"`
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s:%s", a.Name, a.Type)
}

// Schema is an ordered list of uniquely named attributes. Attribute order defines tuple
// field order.
//
// Schemas are immutable. Operators derive their output schema from the upstream one with
// Append, which returns a new Schema and leaves the receiver untouched, so a schema can be
// shared freely by every tuple of a stream.
type Schema struct {
	attributes []Attribute
	index      map[string]int
}

// NewSchema builds a schema, rejecting duplicate attribute names with DuplicateObjectError.
func NewSchema(attributes ...Attribute) (*Schema, error) {
	s := &Schema{
		attributes: make([]Attribute, len(attributes)),
		index:      make(map[string]int, len(attributes)),
	}
	for i, attr := range attributes {
		if _, exists := s.index[attr.Name]; exists {
			return nil, common.NewError(common.DuplicateObjectError,
				"attribute '%s' appears more than once in schema", attr.Name)
		}
		s.attributes[i] = attr
		s.index[attr.Name] = i
	}
	return s, nil
}

// MustNewSchema is NewSchema for statically known attribute lists.
func MustNewSchema(attributes ...Attribute) *Schema {
	s, err := NewSchema(attributes...)
	common.Assert(err == nil, "invalid schema: %v", err)
	return s
}

// Append returns a new schema with the given attributes added at the end.
func (s *Schema) Append(attributes ...Attribute) (*Schema, error) {
	combined := make([]Attribute, 0, len(s.attributes)+len(attributes))
	combined = append(combined, s.attributes...)
	combined = append(combined, attributes...)
	return NewSchema(combined...)
}

// WithSpanList returns s itself if it already has the reserved span list attribute, or a
// derived schema with the attribute appended.
func (s *Schema) WithSpanList() *Schema {
	if s.Contains(SpanListName) {
		return s
	}
	out, err := s.Append(SpanListAttribute)
	common.Assert(err == nil, "appending span list to schema: %v", err)
	return out
}

// NumAttributes returns the number of attributes in the schema.
func (s *Schema) NumAttributes() int {
	return len(s.attributes)
}

// Attribute returns the attribute at position i.
func (s *Schema) Attribute(i int) Attribute {
	return s.attributes[i]
}

// Attributes returns a copy of the attribute list.
func (s *Schema) Attributes() []Attribute {
	out := make([]Attribute, len(s.attributes))
	copy(out, s.attributes)
	return out
}

// Index returns the position of the named attribute.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Contains reports whether the schema has an attribute with this name.
func (s *Schema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// GetAttribute looks an attribute up by name, returning NoSuchObjectError if absent.
func (s *Schema) GetAttribute(name string) (Attribute, error) {
	i, ok := s.index[name]
	if !ok {
		return Attribute{}, common.NewError(common.NoSuchObjectError,
			"attribute '%s' does not exist in schema %s", name, s)
	}
	return s.attributes[i], nil
}

// Equals reports whether both schemas have the same attributes in the same order.
func (s *Schema) Equals(other *Schema) bool {
	if s == other {
		return true
	}
	if other == nil || len(s.attributes) != len(other.attributes) {
		return false
	}
	for i := range s.attributes {
		if s.attributes[i] != other.attributes[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.attributes))
	for i, a := range s.attributes {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
