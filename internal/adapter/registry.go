package adapter

import (
	"fmt"
	"reflect"

	"github.com/hyperjump/solrdex/internal/indexerr"
)

// Registry holds the declared type hierarchy and the adapters attached to it.
// Declarations are not safe for concurrent use; call Freeze before serving traffic.
type Registry struct {
	parents  map[string]string
	chains   map[string][]string
	adapters map[string]Adapter
	frozen   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parents:  make(map[string]string),
		chains:   make(map[string][]string),
		adapters: make(map[string]Adapter),
	}
}

// DeclareType records name as a child of parent; an empty parent makes name a root.
// An undeclared parent is declared as a root. Declaring a type again with the same
// parent is a no-op; a different parent is an error.
func (r *Registry) DeclareType(name, parent string) error {
	if r.frozen {
		return indexerr.New(indexerr.ErrRegistryFrozen, "cannot declare type %q", name)
	}
	if name == "" {
		return fmt.Errorf("type name is required")
	}
	if name == parent {
		return fmt.Errorf("type %q cannot be its own parent", name)
	}
	if existing, ok := r.parents[name]; ok {
		if existing != parent {
			return fmt.Errorf("type %q already declared with parent %q", name, existing)
		}
		return nil
	}
	var chain []string
	if parent != "" {
		if _, ok := r.chains[parent]; !ok {
			if err := r.DeclareType(parent, ""); err != nil {
				return err
			}
		}
		chain = append(chain, r.chains[parent]...)
	}
	r.parents[name] = parent
	r.chains[name] = append(chain, name)
	return nil
}

// Register attaches an identity adapter to name, declaring name as a root when it
// is not yet declared.
func (r *Registry) Register(name string, a Adapter) error {
	if r.frozen {
		return indexerr.New(indexerr.ErrRegistryFrozen, "cannot register adapter for %q", name)
	}
	if a == nil {
		return fmt.Errorf("adapter for %q is nil", name)
	}
	if _, ok := r.chains[name]; !ok {
		if err := r.DeclareType(name, ""); err != nil {
			return err
		}
	}
	r.adapters[name] = a
	return nil
}

// Freeze ends the declaration phase.
func (r *Registry) Freeze() { r.frozen = true }

// Declared reports whether name is part of the hierarchy.
func (r *Registry) Declared(name string) bool {
	_, ok := r.chains[name]
	return ok
}

// Parent returns the declared parent of name.
func (r *Registry) Parent(name string) (string, bool) {
	p, ok := r.parents[name]
	return p, ok
}

// Chain returns the ancestor chain of typeName, root first and ending with typeName.
// An undeclared type is its own single-element chain.
func (r *Registry) Chain(typeName string) []string {
	if chain, ok := r.chains[typeName]; ok {
		return append([]string(nil), chain...)
	}
	return []string{typeName}
}

// TypeName returns the indexable type name of instance: SearchType for Typed
// instances, otherwise the name of its Go type.
func (r *Registry) TypeName(instance any) (string, error) {
	if instance == nil {
		return "", indexerr.New(indexerr.ErrNoAdapter, "nil instance")
	}
	if rv := reflect.ValueOf(instance); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "", indexerr.New(indexerr.ErrNoAdapter, "nil %T", instance)
	}
	if t, ok := instance.(Typed); ok {
		if name := t.SearchType(); name != "" {
			return name, nil
		}
		return "", indexerr.New(indexerr.ErrNoAdapter, "%T reports an empty type", instance)
	}
	rt := reflect.TypeOf(instance)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		return "", indexerr.New(indexerr.ErrNoAdapter, "unnamed type %T", instance)
	}
	return rt.Name(), nil
}

// Lookup returns the adapter of the nearest type in chain that has one.
func (r *Registry) Lookup(chain []string) (Adapter, bool) {
	for i := len(chain) - 1; i >= 0; i-- {
		if a, ok := r.adapters[chain[i]]; ok {
			return a, true
		}
	}
	return nil, false
}

// Resolve derives the identity of instance. It fails with ErrNoAdapter when neither
// the instance's type nor any ancestor has an adapter.
func (r *Registry) Resolve(instance any) (Identity, error) {
	typeName, err := r.TypeName(instance)
	if err != nil {
		return Identity{}, err
	}
	return r.ResolveAs(typeName, instance)
}

// ResolveAs is Resolve with the type name already known.
func (r *Registry) ResolveAs(typeName string, instance any) (Identity, error) {
	chain := r.Chain(typeName)
	a, ok := r.Lookup(chain)
	if !ok {
		return Identity{}, indexerr.New(indexerr.ErrNoAdapter, "type %q", typeName)
	}
	id, err := a.ID(instance)
	if err != nil {
		return Identity{}, fmt.Errorf("id of %s: %w", typeName, err)
	}
	if id == "" {
		return Identity{}, indexerr.New(indexerr.ErrInvalidValue, "%s instance has an empty id", typeName)
	}
	return Identity{Type: typeName, Ancestors: chain[:len(chain)-1], ID: id}, nil
}
