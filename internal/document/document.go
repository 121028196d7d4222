// Package document assembles backend documents from domain instances.
package document

import (
	"fmt"

	"github.com/hyperjump/solrdex/internal/adapter"
	"github.com/hyperjump/solrdex/internal/field"
	"github.com/hyperjump/solrdex/internal/indexerr"
	"github.com/hyperjump/solrdex/internal/schema"
)

const (
	// IDField holds the "{Type} {id}" document id.
	IDField = "id"
	// TypeField holds the leaf type followed by its ancestors.
	TypeField = "type"
)

// Payload is the wire form of a document: index field name to a string or []string.
type Payload map[string]any

// ID returns the document id carried by the payload.
func (p Payload) ID() string {
	id, _ := p[IDField].(string)
	return id
}

// Types returns the type names carried by the payload.
func (p Payload) Types() []string {
	switch v := p[TypeField].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Document is one assembled instance.
type Document struct {
	adapter.Identity
	Fields []field.Encoded
}

// FieldByName returns the encoded field with the given index name.
func (d *Document) FieldByName(name string) (field.Encoded, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return field.Encoded{}, false
}

// Payload renders the document for a backend connection.
func (d *Document) Payload() Payload {
	p := make(Payload, len(d.Fields)+2)
	p[IDField] = d.IndexID()
	p[TypeField] = d.TypeNames()
	for _, f := range d.Fields {
		p[f.Name] = f.Value.Interface()
	}
	return p
}

// Assembler turns instances into documents using frozen schema and adapter registries.
type Assembler struct {
	schemas  *schema.Registry
	adapters *adapter.Registry
}

// NewAssembler returns an assembler over the given registries.
func NewAssembler(schemas *schema.Registry, adapters *adapter.Registry) *Assembler {
	return &Assembler{schemas: schemas, adapters: adapters}
}

// Identify resolves the identity of instance without encoding its fields.
// An instance whose chain has no schema at all is ErrNoSchema; one without an
// adapter is ErrNoAdapter.
func (a *Assembler) Identify(instance any) (adapter.Identity, error) {
	typeName, err := a.adapters.TypeName(instance)
	if err != nil {
		return adapter.Identity{}, err
	}
	if !a.schemas.Configured(a.adapters.Chain(typeName)) {
		return adapter.Identity{}, indexerr.New(indexerr.ErrNoSchema, "type %q", typeName)
	}
	return a.adapters.ResolveAs(typeName, instance)
}

// Assemble builds the full document for instance. Any failing field fails the whole
// document.
func (a *Assembler) Assemble(instance any) (*Document, error) {
	id, err := a.Identify(instance)
	if err != nil {
		return nil, err
	}
	doc := &Document{Identity: id}
	for _, def := range a.schemas.Resolve(id.Chain()) {
		encoded, err := def.Encode(instance)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id.IndexID(), err)
		}
		doc.Fields = append(doc.Fields, encoded...)
	}
	return doc, nil
}
