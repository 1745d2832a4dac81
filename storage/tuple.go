package storage

import (
	"strings"

	"mit.edu/dsg/textdb/common"
)

// Tuple represents one record flowing through an operator tree.
//
// A Tuple pairs a Schema with one Value per attribute. Operators create tuples on every
// Next() call and never hold on to a tuple after returning it. From the consumer's point of
// view a tuple is immutable, with one exception: span list fields are append-only ledgers
// that successive matchers extend in place during a single pass through the pipeline (see
// AppendSpans). Readers that need a stable view take a copy with Spans().
type Tuple struct {
	schema *Schema
	values []common.Value
}

// NewTuple creates a tuple, checking that the values conform to the schema by position.
// NULL values of the right type are accepted.
func NewTuple(schema *Schema, values ...common.Value) (Tuple, error) {
	if len(values) != schema.NumAttributes() {
		return Tuple{}, common.NewEvaluationError(
			"tuple has %d values but schema %s has %d attributes", len(values), schema, schema.NumAttributes())
	}
	for i, v := range values {
		attr := schema.Attribute(i)
		if v.Type() != attr.Type {
			return Tuple{}, common.NewEvaluationError(
				"value for attribute '%s' has type %s, expected %s", attr.Name, v.Type(), attr.Type)
		}
	}
	return Tuple{schema: schema, values: values}, nil
}

// MustNewTuple is NewTuple for values known to conform, e.g. in tests and fixtures.
func MustNewTuple(schema *Schema, values ...common.Value) Tuple {
	t, err := NewTuple(schema, values...)
	common.Assert(err == nil, "invalid tuple: %v", err)
	return t
}

// IsNil checks if the tuple is uninitialized.
func (t *Tuple) IsNil() bool {
	return t.schema == nil
}

// Schema returns the schema the tuple conforms to.
func (t *Tuple) Schema() *Schema {
	return t.schema
}

// NumColumns returns the total number of fields in the tuple.
func (t *Tuple) NumColumns() int {
	return len(t.values)
}

// GetValue retrieves the value at index i.
func (t *Tuple) GetValue(i int) common.Value {
	return t.values[i]
}

// GetField retrieves a value by attribute name. A missing attribute is an EvaluationError
// because it means a tuple reached an operator it was not planned for.
func (t *Tuple) GetField(name string) (common.Value, error) {
	i, ok := t.schema.Index(name)
	if !ok {
		return common.Value{}, common.NewEvaluationError("tuple %s has no attribute '%s'", t.schema, name)
	}
	return t.values[i], nil
}

// Extend returns a NEW Tuple with the given schema, consisting of the current tuple's
// fields followed by newValues. The schema must be this tuple's schema plus the
// attributes of newValues. The result never shares its field slice with t.
func (t *Tuple) Extend(schema *Schema, newValues ...common.Value) (Tuple, error) {
	values := make([]common.Value, 0, len(t.values)+len(newValues))
	values = append(values, t.values...)
	values = append(values, newValues...)
	return NewTuple(schema, values...)
}

// Spans returns a copy of the span list stored in the named list attribute.
func (t *Tuple) Spans(name string) ([]common.Span, error) {
	v, err := t.GetField(name)
	if err != nil {
		return nil, err
	}
	if v.Type() != common.ListType {
		return nil, common.NewEvaluationError("attribute '%s' is a %s, not a span list", name, v.Type())
	}
	out := make([]common.Span, len(v.Spans()))
	copy(out, v.Spans())
	return out, nil
}

// AppendSpans appends spans to the named span list attribute in place.
func (t *Tuple) AppendSpans(name string, spans ...common.Span) error {
	i, ok := t.schema.Index(name)
	if !ok {
		return common.NewEvaluationError("tuple %s has no attribute '%s'", t.schema, name)
	}
	v := t.values[i]
	if v.Type() != common.ListType {
		return common.NewEvaluationError("attribute '%s' is a %s, not a span list", name, v.Type())
	}
	combined := make([]common.Span, 0, len(v.Spans())+len(spans))
	combined = append(combined, v.Spans()...)
	combined = append(combined, spans...)
	t.values[i] = common.NewSpanListValue(combined)
	return nil
}

// Copy returns a tuple with its own field slice. Span lists are copied too, so appending to
// the copy never shows up in the original. Used by stores that hand out tuples they keep.
func (t *Tuple) Copy() Tuple {
	values := make([]common.Value, len(t.values))
	for i, v := range t.values {
		if v.Type() == common.ListType && !v.IsNull() {
			spans := make([]common.Span, len(v.Spans()))
			copy(spans, v.Spans())
			v = common.NewSpanListValue(spans)
		}
		values[i] = v
	}
	return Tuple{schema: t.schema, values: values}
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = t.schema.Attribute(i).Name + "=" + v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
