package field

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hyperjump/solrdex/internal/indexerr"
)

// TimeLayout is the UTC instant format the backend stores.
const TimeLayout = "2006-01-02T15:04:05Z"

// Coerce encodes raw for a field of type t. The boolean result is false when the field
// should be omitted: a nil scalar for a single-value field.
// A collection for a single-value field fails with ErrCardinalityMismatch.
// Multiple fields wrap scalars into a one-element list and keep empty lists.
func (t Type) Coerce(raw any, multiple bool) (Value, bool, error) {
	elems, isCollection, err := collectionElems(raw)
	if err != nil {
		return Value{}, false, err
	}
	if !multiple {
		if isCollection {
			return Value{}, false, indexerr.New(indexerr.ErrCardinalityMismatch,
				"%s field given a collection of %d values", t, len(elems))
		}
		s, ok, err := t.encodeScalar(raw)
		if err != nil || !ok {
			return Value{}, false, err
		}
		return Scalar(s), true, nil
	}
	if !isCollection {
		elems = []any{raw}
	}
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		if _, nested, _ := collectionElems(elem); nested {
			return Value{}, false, indexerr.New(indexerr.ErrCardinalityMismatch,
				"%s field given a nested collection", t)
		}
		s, ok, err := t.encodeScalar(elem)
		if err != nil {
			return Value{}, false, err
		}
		if ok {
			out = append(out, s)
		}
	}
	return Multi(out), true, nil
}

// collectionElems reports whether raw, after following pointers, is a slice, array or map
// and returns its elements.
// Maps are collections too; their elements are not meaningful for static fields.
func collectionElems(raw any) ([]any, bool, error) {
	raw, ok := deref(raw)
	if !ok {
		return nil, false, nil
	}
	switch raw.(type) {
	case []byte, json.RawMessage:
		return nil, false, nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return elems, true, nil
	case reflect.Map:
		return make([]any, rv.Len()), true, nil
	}
	return nil, false, nil
}

// encodeScalar returns the backend string form of a single value; ok is false for nil.
func (t Type) encodeScalar(raw any) (string, bool, error) {
	raw, ok := deref(raw)
	if !ok {
		return "", false, nil
	}
	var (
		s   string
		err error
	)
	switch t {
	case String, Text:
		s = encodeString(raw)
	case Integer:
		s, err = encodeInteger(raw)
	case Float:
		s, err = encodeFloat(raw)
	case Time:
		s, err = encodeTime(raw)
	case Boolean:
		s, err = encodeBoolean(raw)
	default:
		return "", false, indexerr.New(indexerr.ErrUnknownFieldDirective, "field type %d", int(t))
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func deref(raw any) (any, bool) {
	if raw == nil {
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

func encodeString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(raw)
}

func encodeInteger(raw any) (string, error) {
	switch v := raw.(type) {
	case json.Number:
		if _, err := strconv.ParseInt(string(v), 10, 64); err != nil {
			return "", invalid(Integer, raw)
		}
		return string(v), nil
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return "", invalid(Integer, raw)
		}
		return v, nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) > 1<<63 {
			return "", invalid(Integer, raw)
		}
		return strconv.FormatInt(int64(f), 10), nil
	}
	return "", invalid(Integer, raw)
}

func encodeFloat(raw any) (string, error) {
	switch v := raw.(type) {
	case json.Number:
		return passFloat(string(v), raw)
	case string:
		return passFloat(v, raw)
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32:
		return formatFloat(rv.Float(), 32, raw)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64, raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10) + ".0", nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10) + ".0", nil
	}
	return "", invalid(Float, raw)
}

// passFloat keeps textual input as given once it parses, so no precision is lost.
func passFloat(s string, raw any) (string, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", invalid(Float, raw)
	}
	return s, nil
}

func formatFloat(f float64, bits int, raw any) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", invalid(Float, raw)
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func encodeTime(raw any) (string, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC().Format(TimeLayout), nil
	case string:
		parsed, err := dateparse.ParseAny(v)
		if err != nil {
			return "", invalid(Time, raw)
		}
		return parsed.UTC().Format(TimeLayout), nil
	}
	return "", invalid(Time, raw)
}

func encodeBoolean(raw any) (string, error) {
	switch v := raw.(type) {
	case bool:
		return strconv.FormatBool(v), nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return "", invalid(Boolean, raw)
		}
		return strconv.FormatBool(b), nil
	}
	return "", invalid(Boolean, raw)
}

func invalid(t Type, raw any) error {
	return indexerr.New(indexerr.ErrInvalidValue, "cannot encode %T(%v) as %s", raw, raw, t)
}
