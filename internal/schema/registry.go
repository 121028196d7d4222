// Package schema holds the per-type field declarations and resolves them across a
// type's ancestor chain.
//
// A Registry has two phases. During initialization types are declared with Setup,
// Declare, or Add; these calls are not safe for concurrent use. After Freeze the
// registry is read-only and lookups are safe from any goroutine without locking.
package schema

import (
	"sort"

	"github.com/hyperjump/solrdex/internal/field"
	"github.com/hyperjump/solrdex/internal/indexerr"
)

// TypeSchema is the ordered set of field definitions attached to one type.
type TypeSchema struct {
	Type   string
	fields []*field.Definition
	index  map[string]int
}

func newTypeSchema(typeName string) *TypeSchema {
	return &TypeSchema{Type: typeName, index: make(map[string]int)}
}

// Fields returns the definitions in declaration order.
func (s *TypeSchema) Fields() []*field.Definition {
	return append([]*field.Definition(nil), s.fields...)
}

// put adds d, replacing an earlier definition with the same key in place.
func (s *TypeSchema) put(d *field.Definition) {
	if i, ok := s.index[d.Key()]; ok {
		s.fields[i] = d
		return
	}
	s.index[d.Key()] = len(s.fields)
	s.fields = append(s.fields, d)
}

// Registry maps type names to their schemas.
type Registry struct {
	schemas map[string]*TypeSchema
	frozen  bool
}

// NewRegistry returns an empty registry in its declaration phase.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*TypeSchema)}
}

// Setup declares fields for typeName through a Builder. Nothing is registered when
// any declaration in build fails.
func (r *Registry) Setup(typeName string, build func(b *Builder)) error {
	b := &Builder{typeName: typeName}
	if build != nil {
		build(b)
	}
	if b.err != nil {
		return b.err
	}
	return r.Add(typeName, b.defs...)
}

// Declaration is a raw field declaration, typically decoded from configuration:
// the keys name, type, multiple, and dynamic.
type Declaration map[string]any

// Declare registers or amends typeName from raw declarations. Unknown option keys are
// ErrInvalidFieldArgument; an unknown type is ErrUnknownFieldDirective.
func (r *Registry) Declare(typeName string, decls ...Declaration) error {
	defs := make([]*field.Definition, 0, len(decls))
	for _, decl := range decls {
		cfg, err := field.DecodeConfig(decl)
		if err != nil {
			return err
		}
		d, err := field.New(cfg)
		if err != nil {
			return err
		}
		defs = append(defs, d)
	}
	return r.Add(typeName, defs...)
}

// Add attaches built definitions to typeName. A type may be declared with no fields,
// which still counts as configured.
func (r *Registry) Add(typeName string, defs ...*field.Definition) error {
	if r.frozen {
		return indexerr.New(indexerr.ErrRegistryFrozen, "cannot declare %q", typeName)
	}
	if typeName == "" {
		return indexerr.New(indexerr.ErrInvalidFieldArgument, "type name is required")
	}
	s, ok := r.schemas[typeName]
	if !ok {
		s = newTypeSchema(typeName)
		r.schemas[typeName] = s
	}
	for _, d := range defs {
		s.put(d)
	}
	return nil
}

// Freeze ends the declaration phase.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Schema returns the schema attached directly to typeName.
func (r *Registry) Schema(typeName string) (*TypeSchema, bool) {
	s, ok := r.schemas[typeName]
	return s, ok
}

// Configured reports whether any type in chain has a schema.
func (r *Registry) Configured(chain []string) bool {
	for _, t := range chain {
		if _, ok := r.schemas[t]; ok {
			return true
		}
	}
	return false
}

// Resolve returns the effective fields for a chain ordered root first with the
// instance's own type last. Fields come nearest type first; when two types declare
// the same field key the nearer declaration wins.
func (r *Registry) Resolve(chain []string) []*field.Definition {
	seen := make(map[string]struct{})
	var out []*field.Definition
	for i := len(chain) - 1; i >= 0; i-- {
		s, ok := r.schemas[chain[i]]
		if !ok {
			continue
		}
		for _, d := range s.fields {
			if _, dup := seen[d.Key()]; dup {
				continue
			}
			seen[d.Key()] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// Types returns the configured type names, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexNames returns the sorted static index field names of type t across all schemas.
func (r *Registry) IndexNames(t field.Type) []string {
	set := make(map[string]struct{})
	for _, s := range r.schemas {
		for _, d := range s.fields {
			if d.Type == t && !d.Dynamic {
				set[d.IndexName("")] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
