// Package jsonvalue provides a tagged-variant representation of a parsed
// JSON document, so callers can switch on the shape of a value instead of
// type-asserting on any.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
)

// Kind identifies the variant held by a [Value].
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrTrailingData is returned by [Parse] when more than one JSON value is present.
var ErrTrailingData = errors.New("trailing data after JSON value")

// Value is an immutable JSON value. The zero Value is JSON null.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  map[string]Value
}

// NullValue returns JSON null.
func NullValue() Value { return Value{} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// NumberValue wraps n, keeping its literal text.
func NumberValue(n json.Number) Value { return Value{kind: Number, n: n} }

// IntValue is shorthand for a NumberValue holding i.
func IntValue(i int64) Value { return NumberValue(json.Number(strconv.FormatInt(i, 10))) }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue wraps the given elements.
func ArrayValue(elems ...Value) Value {
	return Value{kind: Array, arr: slices.Clone(elems)}
}

// ObjectValue wraps the given members.
func ObjectValue(members map[string]Value) Value {
	if members == nil {
		members = map[string]Value{}
	}
	return Value{kind: Object, obj: maps.Clone(members)}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

// IsObject reports whether v is a JSON object.
func (v Value) IsObject() bool { return v.kind == Object }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (json.Number, bool) { return v.n, v.kind == Number }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == String }

// AsArray returns a copy of the elements held by v.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return slices.Clone(v.arr), true
}

// AsObject returns a copy of the members held by v.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != Object {
		return nil, false
	}
	return maps.Clone(v.obj), true
}

// Get returns the member named key when v is an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	m, ok := v.obj[key]
	return m, ok
}

// Index returns the i'th element when v is an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Len returns the number of elements or members, and 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	default:
		return 0
	}
}

// Keys returns the object member names in sorted order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	return slices.Sorted(maps.Keys(v.obj))
}

// Equal reports whether v and o hold the same variant and content.
// Numbers compare by literal text.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Number:
		return v.n == o.n
	case String:
		return v.s == o.s
	case Array:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case Object:
		return maps.EqualFunc(v.obj, o.obj, Value.Equal)
	}

	return false
}

// Interface converts v into the plain Go representation used by
// encoding/json with UseNumber: nil, bool, json.Number, string, []any
// and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.n
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes exactly one JSON value from data.
func Parse(data []byte) (Value, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()

	var raw any
	if err := d.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decoding json: %w", err)
	}

	if _, err := d.Token(); err == nil {
		return Value{}, ErrTrailingData
	} else if !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%w: %w", ErrTrailingData, err)
	}

	return FromInterface(raw)
}

// FromInterface converts the output of encoding/json (decoded into any)
// into a Value. Go numeric types are accepted as well as json.Number.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case float64:
		return NumberValue(json.Number(strconv.FormatFloat(t, 'f', -1, 64))), nil
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case string:
		return StringValue(t), nil
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = ev
		}
		return Value{kind: Array, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("member %q: %w", k, err)
			}
			obj[k] = ev
		}
		return Value{kind: Object, obj: obj}, nil
	case Value:
		return t, nil
	default:
		return Value{}, fmt.Errorf("unsupported json type %T", x)
	}
}
