package field

import "strings"

// Value is an encoded field value: a single string or an ordered list of strings.
type Value struct {
	scalar string
	multi  []string
	many   bool
}

// Scalar returns a single-string value.
func Scalar(s string) Value { return Value{scalar: s} }

// Multi returns a multi-valued value. A nil slice is stored as empty.
func Multi(values []string) Value {
	if values == nil {
		values = []string{}
	}
	return Value{multi: values, many: true}
}

// IsMulti reports whether v holds a list of values.
func (v Value) IsMulti() bool { return v.many }

// Strings returns the values as a slice; a scalar yields one element.
func (v Value) Strings() []string {
	if v.many {
		out := make([]string, len(v.multi))
		copy(out, v.multi)
		return out
	}
	return []string{v.scalar}
}

// Interface returns a string for scalars and a []string for multi values, the shape
// backend payloads expect.
func (v Value) Interface() any {
	if v.many {
		return v.Strings()
	}
	return v.scalar
}

func (v Value) String() string {
	if v.many {
		return "[" + strings.Join(v.multi, ", ") + "]"
	}
	return v.scalar
}

// Encoded is one terminal document field: the full index field name and its value.
type Encoded struct {
	Name  string
	Value Value
}
