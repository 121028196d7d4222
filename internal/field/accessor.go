package field

import (
	"reflect"

	"github.com/iancoleman/strcase"

	"github.com/hyperjump/solrdex/internal/indexerr"
)

// Accessor extracts the raw value of a field from an instance.
type Accessor func(instance any) (any, error)

// KeyAccessor yields the dynamic sub-names to materialize for an instance.
type KeyAccessor func(instance any) ([]string, error)

// KeyedAccessor yields the raw value of one dynamic sub-name.
type KeyedAccessor func(instance any, key string) (any, error)

// Attributes is implemented by instances that expose their attributes by name.
// The boolean is false for an absent attribute, which indexes as nil.
type Attributes interface {
	Attribute(name string) (any, bool)
}

// TagName is the struct tag consulted by AttributeAccessor before falling back to the
// snake_case form of the Go field name.
const TagName = "solr"

// AttributeAccessor reads the named attribute from an instance. It understands
// Attributes implementations, string-keyed maps, and structs (or pointers to them).
// A struct without a matching exported field is an error.
func AttributeAccessor(name string) Accessor {
	return func(instance any) (any, error) {
		if a, ok := instance.(Attributes); ok {
			v, _ := a.Attribute(name)
			return v, nil
		}
		rv := reflect.ValueOf(instance)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil, nil
			}
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				break
			}
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !v.IsValid() {
				return nil, nil
			}
			return v.Interface(), nil
		case reflect.Struct:
			if v, ok := structAttribute(rv, name); ok {
				return v, nil
			}
		}
		return nil, indexerr.New(indexerr.ErrInvalidFieldArgument, "%T has no attribute %q", instance, name)
	}
}

func structAttribute(rv reflect.Value, name string) (any, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag := sf.Tag.Get(TagName); tag != "" {
			if tag == name {
				return rv.Field(i).Interface(), true
			}
			continue
		}
		if sf.Name == name || strcase.ToSnake(sf.Name) == name {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// dynamicMap evaluates a map accessor and normalizes its keys to strings.
// A nil result yields no sub-fields.
func dynamicMap(value Accessor, instance any) (map[string]any, error) {
	raw, err := value(instance)
	if err != nil {
		return nil, err
	}
	raw, ok := deref(raw)
	if !ok {
		return nil, nil
	}
	if m, ok := raw.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map {
		return nil, indexerr.New(indexerr.ErrCardinalityMismatch, "dynamic field needs a keyed map, got %T", raw)
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[encodeString(iter.Key().Interface())] = iter.Value().Interface()
	}
	return m, nil
}
