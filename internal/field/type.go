// Package field implements the field type system: the closed set of field kinds, their
// index-name suffixes, and coercion of raw attribute values into backend strings.
package field

import (
	"github.com/hyperjump/solrdex/internal/indexerr"
)

// Type is the kind of a searchable field.
type Type int

const (
	String Type = iota + 1
	Text
	Integer
	Float
	Time
	Boolean
)

var typeNames = map[Type]string{
	String:  "string",
	Text:    "text",
	Integer: "integer",
	Float:   "float",
	Time:    "time",
	Boolean: "boolean",
}

// Types lists every field type in declaration order.
var Types = []Type{String, Text, Integer, Float, Time, Boolean}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is one of the declared field types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType maps a directive name ("string", "integer", ...) to its Type.
func ParseType(directive string) (Type, error) {
	for _, t := range Types {
		if typeNames[t] == directive {
			return t, nil
		}
	}
	return 0, indexerr.New(indexerr.ErrUnknownFieldDirective, "%q", directive)
}

// Suffix returns the index-name suffix for a field of this type.
// Text is multi-valued in the backend schema and keeps one suffix.
// Dynamic floats always use the multi-valued suffix; this mirrors the backend's
// dynamic field templates and is kept for compatibility.
func (t Type) Suffix(multiple, dynamic bool) string {
	switch t {
	case String:
		return pick(multiple, "_s", "_sm")
	case Text:
		return "_text"
	case Integer:
		return pick(multiple, "_i", "_im")
	case Float:
		if dynamic {
			return "_fm"
		}
		return pick(multiple, "_f", "_fm")
	case Time:
		return pick(multiple, "_d", "_dm")
	case Boolean:
		return pick(multiple, "_b", "_bm")
	}
	return ""
}

func pick(multiple bool, single, multi string) string {
	if multiple {
		return multi
	}
	return single
}
