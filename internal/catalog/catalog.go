// Package catalog builds frozen schema and adapter registries from configured type
// declarations whose instances are records.
package catalog

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/hyperjump/solrdex/internal/adapter"
	"github.com/hyperjump/solrdex/internal/config"
	"github.com/hyperjump/solrdex/internal/document"
	"github.com/hyperjump/solrdex/internal/field"
	"github.com/hyperjump/solrdex/internal/record"
	"github.com/hyperjump/solrdex/internal/schema"
)

// Catalog is the frozen set of declared types.
type Catalog struct {
	Schemas  *schema.Registry
	Adapters *adapter.Registry
}

// Build declares every type and its fields, registers the record adapter on each root
// of the hierarchy, and freezes both registries. All declaration errors are reported
// together.
func Build(types []config.TypeConfig) (*Catalog, error) {
	c := &Catalog{Schemas: schema.NewRegistry(), Adapters: adapter.NewRegistry()}

	parents := make(map[string]string, len(types))
	for _, t := range types {
		parents[t.Name] = t.Parent
	}
	var result *multierror.Error
	declared := make(map[string]bool, len(types))
	var declare func(name string, path map[string]bool) error
	declare = func(name string, path map[string]bool) error {
		if declared[name] {
			return nil
		}
		if path[name] {
			return fmt.Errorf("type %q: inheritance cycle", name)
		}
		path[name] = true
		parent := parents[name]
		if _, ok := parents[parent]; ok && parent != "" {
			if err := declare(parent, path); err != nil {
				return err
			}
		}
		declared[name] = true
		return c.Adapters.DeclareType(name, parent)
	}
	for _, t := range types {
		if err := declare(t.Name, map[string]bool{}); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	roots := make(map[string]bool)
	for _, t := range types {
		decls := make([]schema.Declaration, len(t.Fields))
		for i, f := range t.Fields {
			decls[i] = schema.Declaration(f)
		}
		if err := c.Schemas.Declare(t.Name, decls...); err != nil {
			result = multierror.Append(result, fmt.Errorf("type %q: %w", t.Name, err))
		}
		roots[c.Adapters.Chain(t.Name)[0]] = true
	}
	for root := range roots {
		if err := c.Adapters.Register(root, record.Adapter()); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	c.Schemas.Freeze()
	c.Adapters.Freeze()
	return c, nil
}

// Assembler returns a document assembler over the catalog.
func (c *Catalog) Assembler() *document.Assembler {
	return document.NewAssembler(c.Schemas, c.Adapters)
}

// TextFields lists the static text index fields of every type.
func (c *Catalog) TextFields() []string {
	return c.Schemas.IndexNames(field.Text)
}

// TypeInfo describes one configured type.
type TypeInfo struct {
	Name   string   `json:"name"`
	Chain  []string `json:"chain"`
	Fields []string `json:"fields"`
}

// Types describes every configured type with its effective field patterns.
func (c *Catalog) Types() []TypeInfo {
	names := c.Schemas.Types()
	out := make([]TypeInfo, 0, len(names))
	for _, name := range names {
		chain := c.Adapters.Chain(name)
		defs := c.Schemas.Resolve(chain)
		fields := make([]string, len(defs))
		for i, d := range defs {
			fields[i] = d.Key()
		}
		out = append(out, TypeInfo{Name: name, Chain: chain, Fields: fields})
	}
	return out
}
