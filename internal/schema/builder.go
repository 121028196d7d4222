package schema

import (
	"fmt"

	"github.com/hyperjump/solrdex/internal/field"
)

// Builder collects field declarations for one type inside Registry.Setup.
// The first failing declaration is kept and reported by Setup; later ones are ignored.
type Builder struct {
	typeName string
	defs     []*field.Definition
	err      error
}

// FieldOption adjusts a single declaration.
type FieldOption func(*fieldSpec)

type fieldSpec struct {
	cfg  field.Config
	opts []field.Option
}

// Multiple declares a multi-valued field.
func Multiple() FieldOption {
	return func(s *fieldSpec) { s.cfg.Multiple = true }
}

// Dynamic declares a field whose sub-names are chosen at index time.
func Dynamic() FieldOption {
	return func(s *fieldSpec) { s.cfg.Dynamic = true }
}

// Using computes the value from the instance instead of reading an attribute.
func Using(fn func(instance any) (any, error)) FieldOption {
	return func(s *fieldSpec) { s.opts = append(s.opts, field.WithAccessor(fn)) }
}

// Compute is Using for accessors that cannot fail.
func Compute(fn func(instance any) any) FieldOption {
	return Using(func(instance any) (any, error) { return fn(instance), nil })
}

// Attribute reads the value from the named attribute rather than the field name.
func Attribute(name string) FieldOption {
	return func(s *fieldSpec) { s.opts = append(s.opts, field.WithAttribute(name)) }
}

// Keys supplies the sub-names of a dynamic field and a value accessor per sub-name.
func Keys(keys field.KeyAccessor, value field.KeyedAccessor) FieldOption {
	return func(s *fieldSpec) { s.opts = append(s.opts, field.WithKeys(keys, value)) }
}

// Field declares a field by directive name ("string", "integer", ...).
func (b *Builder) Field(directive, name string, opts ...FieldOption) {
	if b.err != nil {
		return
	}
	s := &fieldSpec{cfg: field.Config{Name: name, Type: directive}}
	for _, opt := range opts {
		opt(s)
	}
	d, err := field.New(s.cfg, s.opts...)
	if err != nil {
		b.err = fmt.Errorf("type %q: %w", b.typeName, err)
		return
	}
	b.defs = append(b.defs, d)
}

func (b *Builder) declare(t field.Type, dynamic bool, name string, opts []FieldOption) {
	if dynamic {
		opts = append([]FieldOption{Dynamic()}, opts...)
	}
	b.Field(t.String(), name, opts...)
}

func (b *Builder) String(name string, opts ...FieldOption) {
	b.declare(field.String, false, name, opts)
}

func (b *Builder) Text(name string, opts ...FieldOption) {
	b.declare(field.Text, false, name, opts)
}

func (b *Builder) Integer(name string, opts ...FieldOption) {
	b.declare(field.Integer, false, name, opts)
}

func (b *Builder) Float(name string, opts ...FieldOption) {
	b.declare(field.Float, false, name, opts)
}

func (b *Builder) Time(name string, opts ...FieldOption) {
	b.declare(field.Time, false, name, opts)
}

func (b *Builder) Boolean(name string, opts ...FieldOption) {
	b.declare(field.Boolean, false, name, opts)
}

func (b *Builder) DynamicString(name string, opts ...FieldOption) {
	b.declare(field.String, true, name, opts)
}

func (b *Builder) DynamicInteger(name string, opts ...FieldOption) {
	b.declare(field.Integer, true, name, opts)
}

func (b *Builder) DynamicFloat(name string, opts ...FieldOption) {
	b.declare(field.Float, true, name, opts)
}

func (b *Builder) DynamicTime(name string, opts ...FieldOption) {
	b.declare(field.Time, true, name, opts)
}

func (b *Builder) DynamicBoolean(name string, opts ...FieldOption) {
	b.declare(field.Boolean, true, name, opts)
}
