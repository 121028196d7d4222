// Package adapter derives the indexed identity of an instance: its most-derived
// indexable type, the declared ancestors of that type, and its unique id.
//
// Ancestry is a declared relation. Each type's chain is computed once when the type is
// declared and never changes afterwards, so lookups need no locking once declaration
// is over.
package adapter

import (
	"fmt"
	"reflect"

	"github.com/hyperjump/solrdex/internal/field"
)

// Typed is implemented by instances that name their own indexable type.
type Typed interface {
	SearchType() string
}

// Adapter yields the unique id of an instance.
type Adapter interface {
	ID(instance any) (string, error)
}

// Func adapts a function to Adapter.
type Func func(instance any) (string, error)

// ID calls f.
func (f Func) ID(instance any) (string, error) { return f(instance) }

// ByAttribute returns an adapter reading the id from the named attribute.
func ByAttribute(name string) Adapter {
	read := field.AttributeAccessor(name)
	return Func(func(instance any) (string, error) {
		raw, err := read(instance)
		if err != nil {
			return "", err
		}
		rv := reflect.ValueOf(raw)
		for rv.IsValid() && rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return "", nil
			}
			rv = rv.Elem()
		}
		if !rv.IsValid() {
			return "", nil
		}
		return fmt.Sprint(rv.Interface()), nil
	})
}

// Identity is the indexed identity of one instance.
type Identity struct {
	// Type is the most-derived indexable type of the instance.
	Type string
	// Ancestors lists the declared ancestors of Type, root first.
	Ancestors []string
	ID        string
}

// Chain returns the ancestors followed by Type.
func (i Identity) Chain() []string {
	return append(append([]string(nil), i.Ancestors...), i.Type)
}

// IndexID is the backend document id, "{Type} {ID}".
func (i Identity) IndexID() string {
	return i.Type + " " + i.ID
}

// TypeNames is the value of the document's type field: Type, then its ancestors
// nearest first.
func (i Identity) TypeNames() []string {
	out := make([]string, 0, len(i.Ancestors)+1)
	out = append(out, i.Type)
	for j := len(i.Ancestors) - 1; j >= 0; j-- {
		out = append(out, i.Ancestors[j])
	}
	return out
}
