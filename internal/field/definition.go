package field

import (
	"fmt"
	"sort"

	"github.com/hyperjump/solrdex/internal/indexerr"
)

// Definition is one declared field of a type schema.
type Definition struct {
	Name     string
	Type     Type
	Multiple bool
	Dynamic  bool

	value    Accessor
	keys     KeyAccessor
	valueFor KeyedAccessor
	virtual  bool
}

// Option customizes how a Definition obtains its raw value.
type Option func(*Definition)

// WithAccessor replaces the attribute read with a computed value (a virtual field).
// For dynamic fields the accessor must return a string-keyed map.
func WithAccessor(a Accessor) Option {
	return func(d *Definition) {
		d.value = a
		d.virtual = true
	}
}

// WithAttribute reads the value from a differently named attribute.
func WithAttribute(attr string) Option {
	return func(d *Definition) { d.value = AttributeAccessor(attr) }
}

// WithKeys gives a dynamic field explicit key and per-key value accessors.
func WithKeys(keys KeyAccessor, valueFor KeyedAccessor) Option {
	return func(d *Definition) {
		d.keys = keys
		d.valueFor = valueFor
		d.virtual = true
	}
}

// New validates cfg and builds a Definition. Unless an option says otherwise the value
// is read from the instance attribute carrying the field's name.
func New(cfg Config, opts ...Option) (*Definition, error) {
	t, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	d := &Definition{
		Name:     cfg.Name,
		Type:     t,
		Multiple: cfg.Multiple,
		Dynamic:  cfg.Dynamic,
		value:    AttributeAccessor(cfg.Name),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.value == nil {
		return nil, indexerr.New(indexerr.ErrInvalidFieldArgument, "field %q: nil accessor", d.Name)
	}
	if d.keys != nil || d.valueFor != nil {
		if !d.Dynamic {
			return nil, indexerr.New(indexerr.ErrInvalidFieldArgument, "field %q: key accessors need a dynamic field", d.Name)
		}
		if d.keys == nil || d.valueFor == nil {
			return nil, indexerr.New(indexerr.ErrInvalidFieldArgument, "field %q: key and value accessors go together", d.Name)
		}
	}
	return d, nil
}

// Virtual reports whether the value is computed rather than read from an attribute.
func (d *Definition) Virtual() bool { return d.virtual }

// Suffix returns the index-name suffix of the field.
func (d *Definition) Suffix() string { return d.Type.Suffix(d.Multiple, d.Dynamic) }

// IndexName returns the backend field name. key is the dynamic sub-name and is
// ignored for static fields.
func (d *Definition) IndexName(key string) string {
	if d.Dynamic {
		return d.Name + ":" + key + d.Suffix()
	}
	return d.Name + d.Suffix()
}

// Key identifies the definition within a schema: the index name for static fields and
// the name pattern for dynamic ones, so a text and a string field may share a name.
func (d *Definition) Key() string {
	if d.Dynamic {
		return d.Name + ":*" + d.Suffix()
	}
	return d.IndexName("")
}

// Encode evaluates the definition against instance. Nil single values and dynamic
// keys whose value is nil produce no fields.
func (d *Definition) Encode(instance any) ([]Encoded, error) {
	if !d.Dynamic {
		raw, err := d.value(instance)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", d.Name, err)
		}
		v, ok, err := d.Type.Coerce(raw, d.Multiple)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", d.Name, err)
		}
		if !ok {
			return nil, nil
		}
		return []Encoded{{Name: d.IndexName(""), Value: v}}, nil
	}

	keys, valueFor, err := d.dynamicAccessors(instance)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", d.Name, err)
	}
	var out []Encoded
	for _, key := range keys {
		if key == "" {
			return nil, indexerr.New(indexerr.ErrInvalidValue, "field %q: empty dynamic key", d.Name)
		}
		raw, err := valueFor(key)
		if err != nil {
			return nil, fmt.Errorf("field %q key %q: %w", d.Name, key, err)
		}
		v, ok, err := d.Type.Coerce(raw, d.Multiple)
		if err != nil {
			return nil, fmt.Errorf("field %q key %q: %w", d.Name, key, err)
		}
		if ok {
			out = append(out, Encoded{Name: d.IndexName(key), Value: v})
		}
	}
	return out, nil
}

func (d *Definition) dynamicAccessors(instance any) ([]string, func(string) (any, error), error) {
	if d.keys != nil {
		keys, err := d.keys(instance)
		if err != nil {
			return nil, nil, err
		}
		return keys, func(key string) (any, error) { return d.valueFor(instance, key) }, nil
	}
	m, err := dynamicMap(d.value, instance)
	if err != nil {
		return nil, nil, err
	}
	return sortedKeys(m), func(key string) (any, error) { return m[key], nil }, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
