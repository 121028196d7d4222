// Package record provides a generic indexable instance: a type name, an id, and a bag
// of attributes. It is what the HTTP, watcher, and CLI surfaces index.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/solrdex/internal/adapter"
)

// Reserved keys of a flat record.
const (
	TypeKey = "type"
	IDKey   = "id"
)

// Record is one instance of a declared type.
type Record struct {
	Type       string
	ID         string
	Attributes map[string]any
}

// SearchType returns the record's type name.
func (r *Record) SearchType() string { return r.Type }

// Attribute returns the named attribute; "id" is the record id.
func (r *Record) Attribute(name string) (any, bool) {
	if name == IDKey {
		return r.ID, r.ID != ""
	}
	v, ok := r.Attributes[name]
	return v, ok
}

// MarshalJSON writes the flat form.
func (r *Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Attributes)+2)
	for k, v := range r.Attributes {
		m[k] = v
	}
	m[TypeKey] = r.Type
	m[IDKey] = r.ID
	return json.Marshal(m)
}

// String identifies the record for logs.
func (r *Record) String() string { return r.Type + " " + r.ID }

// Adapter yields record ids.
func Adapter() adapter.Adapter {
	return adapter.Func(func(instance any) (string, error) {
		r, ok := instance.(*Record)
		if !ok {
			return "", fmt.Errorf("%T is not a record", instance)
		}
		return r.ID, nil
	})
}

// FromMap builds a record from its flat form: "type" and "id" keys plus attributes.
// A record without an id gets a random one.
func FromMap(m map[string]any) (*Record, error) {
	return fromMap(m, randomID)
}

func randomID() string { return uuid.New().String() }

func fromMap(m map[string]any, missingID func() string) (*Record, error) {
	typ, _ := m[TypeKey].(string)
	if typ == "" {
		return nil, fmt.Errorf("record needs a string %q", TypeKey)
	}
	r := &Record{Type: typ, Attributes: make(map[string]any, len(m))}
	switch id := m[IDKey].(type) {
	case nil:
	case string:
		r.ID = id
	case json.Number:
		r.ID = id.String()
	case int, int64, uint64, float64:
		r.ID = fmt.Sprint(id)
	default:
		return nil, fmt.Errorf("record %s: unsupported id %T", typ, id)
	}
	if r.ID == "" {
		r.ID = missingID()
	}
	for k, v := range m {
		if k != TypeKey && k != IDKey {
			r.Attributes[k] = v
		}
	}
	return r, nil
}

// Keys returns the attribute names, sorted.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format names a record file encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unsupported record file %s", path)
}

// Option adjusts decoding.
type Option func(*decodeOptions)

type decodeOptions struct {
	missingID func(index int) string
}

// WithMissingIDs names records that carry no id. index is the record's position in
// the input.
func WithMissingIDs(f func(index int) string) Option {
	return func(o *decodeOptions) { o.missingID = f }
}

// Decode reads one record or a list of records.
func Decode(r io.Reader, format Format, opts ...Option) ([]*Record, error) {
	var raw any
	switch format {
	case JSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	o := decodeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return fromRaw(raw, o)
}

// ParseJSON decodes JSON records from data.
func ParseJSON(data []byte) ([]*Record, error) {
	return Decode(bytes.NewReader(data), JSON)
}

// ReadFile decodes the records stored in path.
func ReadFile(path string, opts ...Option) ([]*Record, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	records, err := Decode(f, format, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func fromRaw(raw any, o decodeOptions) ([]*Record, error) {
	idFor := func(i int) func() string {
		if o.missingID == nil {
			return randomID
		}
		return func() string { return o.missingID(i) }
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		r, err := fromMap(v, idFor(0))
		if err != nil {
			return nil, err
		}
		return []*Record{r}, nil
	case []any:
		out := make([]*Record, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d: expected an object, got %T", i, item)
			}
			r, err := fromMap(m, idFor(i))
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			out = append(out, r)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a record or a list of records, got %T", raw)
}
