package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing the result of evaluating a rule.
// Only Nothing, Bool, Number, String, List and Object implement it.
// Numbers are int64 only; rule-sets never need fractional thresholds.
type Value interface {
	ruleValue() // Sealed - only these types implement it
}

// Nothing is the absent value (JSON null, unknown name, missing field).
type Nothing struct{}

func (Nothing) ruleValue() {}

// MarshalJSON implements json.Marshaler for Nothing.
func (Nothing) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool is a boolean value.
type Bool bool

func (Bool) ruleValue() {}

// Number is an integer value.
type Number int64

func (Number) ruleValue() {}

// String is a string value.
type String string

func (String) ruleValue() {}

// List is an ordered list of values.
type List []Value

func (List) ruleValue() {}

// Object maps string keys to values. Used for settings and helper results.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) ruleValue() {}

// True and False are the two boolean values, for readability at call sites.
var (
	True  Value = Bool(true)
	False Value = Bool(false)
)

// Truthy reports whether v counts as true when a rule result gates access.
// Nothing, false, 0, "" and empty collections are false.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Nothing:
		return false
	case Bool:
		return bool(val)
	case Number:
		return val != 0
	case String:
		return val != ""
	case List:
		return len(val) > 0
	case Object:
		return len(val) > 0
	default:
		return false
	}
}

// AsString returns the string payload of v.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsNumber returns the numeric payload of v. Booleans coerce to 0/1.
func AsNumber(v Value) (int64, bool) {
	switch val := v.(type) {
	case Number:
		return int64(val), true
	case Bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Equal reports deep structural equality. Lists compare element-wise,
// objects compare key by key. Bool and Number compare numerically.
func Equal(a, b Value) bool {
	if a == nil {
		a = Nothing{}
	}
	if b == nil {
		b = Nothing{}
	}

	switch av := a.(type) {
	case Nothing:
		_, ok := b.(Nothing)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool, Number:
		an, _ := AsNumber(a)
		bn, ok := AsNumber(b)
		return ok && an == bn
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Contains reports whether needle is a member of haystack.
// Lists test element equality, strings test substrings, objects test keys.
func Contains(haystack, needle Value) bool {
	switch h := haystack.(type) {
	case List:
		for _, elem := range h {
			if Equal(elem, needle) {
				return true
			}
		}
		return false
	case String:
		s, ok := needle.(String)
		return ok && strings.Contains(string(h), string(s))
	case Object:
		s, ok := needle.(String)
		if !ok {
			return false
		}
		_, exists := h[string(s)]
		return exists
	default:
		return false
	}
}

// Format renders a value for logs and diagnostics.
func Format(v Value) string {
	data, err := MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	return string(data)
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = make(List, len(raw))
	for i, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("list index %d: %w", i, err)
		}
		(*l)[i] = val
	}
	return nil
}

// UnmarshalValue decodes a JSON value into the matching Value type.
// null becomes Nothing. Floats are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Nothing{}, nil

	case '[':
		var l List
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil

	case '{':
		var obj Object
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number not supported: %s", string(data))
		}
		return Number(i), nil
	}
}

// FromGo converts a decoded Go value (from encoding/json, yaml.v3 or a
// scripted helper) into a Value. Whole floats are accepted as numbers.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Nothing{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(int64(val)), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("non-integer number not supported: %v", val)
		}
		return Number(int64(val)), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number not supported: %s", val)
		}
		return Number(n), nil
	case []any:
		l := make(List, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = conv
		}
		return l, nil
	case []string:
		l := make(List, len(val))
		for i, s := range val {
			l[i] = String(s)
		}
		return l, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for List.
func (l List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalValue marshals a Value to JSON bytes.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Nothing:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Number:
		return json.Marshal(int64(val))
	case Bool:
		return json.Marshal(bool(val))
	case List:
		return val.MarshalJSON()
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}
