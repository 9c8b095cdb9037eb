package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseRule decodes a rule from JSON.
//
// Only syntactically invalid JSON is an error. A well-formed document whose
// nodes have an unknown "type" or miss a required field decodes to Invalid
// nodes in place, so sibling rules stay usable. JSON null decodes to a nil
// Rule (vacuously true). Bare strings, numbers and booleans decode to Constant.
func ParseRule(data []byte) (Rule, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("rule is not valid JSON")
	}
	return decodeNode(data), nil
}

// MustParseRule is like ParseRule but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseRule(data string) Rule {
	r, err := ParseRule([]byte(data))
	if err != nil {
		panic(err)
	}
	return r
}

func decodeNode(data json.RawMessage) Rule {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case 'n':
		return nil
	case '{':
		return decodeObject(data)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return Invalid{Reason: err.Error()}
		}
		elems := make([]Rule, len(raw))
		for i, elem := range raw {
			elems[i] = decodeNode(elem)
		}
		return ListExpr{Elements: elems}
	default:
		v, err := UnmarshalValue(data)
		if err != nil {
			return Invalid{Type: string(KindConstant), Reason: err.Error()}
		}
		return Constant{Value: v}
	}
}

// nodeFields wraps the raw fields of one JSON rule object.
type nodeFields struct {
	typ    string
	fields map[string]json.RawMessage
}

func decodeObject(data json.RawMessage) Rule {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Invalid{Reason: err.Error()}
	}

	var typ string
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &typ); err != nil {
			return Invalid{Reason: "type must be a string"}
		}
	}
	if typ == "" {
		return Invalid{Reason: "missing type"}
	}

	n := nodeFields{typ: typ, fields: fields}

	switch typ {
	case "constant":
		raw, ok := fields["value"]
		if !ok {
			return n.missing("value")
		}
		v, err := UnmarshalValue(raw)
		if err != nil {
			return Invalid{Type: typ, Reason: err.Error()}
		}
		return Constant{Value: v}

	case "and", "or":
		conds, bad := n.rules("conditions", true)
		if bad != nil {
			return *bad
		}
		if typ == "and" {
			return And{Conditions: conds}
		}
		return Or{Conditions: conds}

	case "item_check":
		item, bad := n.operand("item")
		if bad != nil {
			return *bad
		}
		return ItemCheck{Item: item}

	case "count_check":
		item, bad := n.operand("item")
		if bad != nil {
			return *bad
		}
		return CountCheck{Item: item, Count: n.optional("count")}

	case "group_check":
		group, bad := n.operand("group")
		if bad != nil {
			return *bad
		}
		return GroupCheck{Group: group, Count: n.optional("count")}

	case "state_flag":
		flag, bad := n.str("flag", "name")
		if bad != nil {
			return *bad
		}
		return StateFlag{Flag: flag}

	case "helper":
		name, bad := n.str("name")
		if bad != nil {
			return *bad
		}
		args, bad := n.rules("args", false)
		if bad != nil {
			return *bad
		}
		return Helper{Name: name, Args: args}

	case "state_method":
		method, bad := n.str("method", "name")
		if bad != nil {
			return *bad
		}
		args, bad := n.rules("args", false)
		if bad != nil {
			return *bad
		}
		return StateMethod{Method: method, Args: args}

	case "attribute":
		obj, bad := n.operand("object")
		if bad != nil {
			return *bad
		}
		attr, bad := n.str("attr", "name")
		if bad != nil {
			return *bad
		}
		return Attribute{Object: obj, Attr: attr}

	case "subscript":
		value, bad := n.operand("value")
		if bad != nil {
			return *bad
		}
		index, bad := n.operand("index")
		if bad != nil {
			return *bad
		}
		return Subscript{Value: value, Index: index}

	case "function_call":
		fn, bad := n.operand("function")
		if bad != nil {
			return *bad
		}
		args, bad := n.rules("args", false)
		if bad != nil {
			return *bad
		}
		return FunctionCall{Function: fn, Args: args}

	case "comparison", "compare":
		op, bad := n.str("op")
		if bad != nil {
			return *bad
		}
		left, bad := n.operand("left")
		if bad != nil {
			return *bad
		}
		right, bad := n.operand("right")
		if bad != nil {
			return *bad
		}
		return Comparison{Op: op, Left: left, Right: right}

	case "name":
		id, bad := n.str("name", "id")
		if bad != nil {
			return *bad
		}
		return Name{Identifier: id}

	case "list":
		elems, bad := n.rules("elements", true, "value")
		if bad != nil {
			return *bad
		}
		return ListExpr{Elements: elems}

	default:
		return Invalid{Type: typ, Reason: "unknown rule type"}
	}
}

func (n nodeFields) missing(field string) *Invalid {
	return &Invalid{Type: n.typ, Reason: fmt.Sprintf("missing required field %q", field)}
}

func (n nodeFields) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := n.fields[k]; ok {
			return raw, true
		}
	}
	return nil, false
}

// operand decodes a required nested node or literal.
func (n nodeFields) operand(key string) (Rule, *Invalid) {
	raw, ok := n.lookup(key)
	if !ok {
		return nil, n.missing(key)
	}
	r := decodeNode(raw)
	if r == nil {
		return nil, n.missing(key)
	}
	return r, nil
}

// optional decodes a nested node that may be absent.
func (n nodeFields) optional(key string) Rule {
	raw, ok := n.lookup(key)
	if !ok {
		return nil
	}
	return decodeNode(raw)
}

func (n nodeFields) str(keys ...string) (string, *Invalid) {
	raw, ok := n.lookup(keys...)
	if !ok {
		return "", n.missing(keys[0])
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", &Invalid{Type: n.typ, Reason: fmt.Sprintf("field %q must be a non-empty string", keys[0])}
	}
	return s, nil
}

func (n nodeFields) rules(key string, required bool, aliases ...string) ([]Rule, *Invalid) {
	raw, ok := n.lookup(append([]string{key}, aliases...)...)
	if !ok {
		if required {
			return nil, n.missing(key)
		}
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &Invalid{Type: n.typ, Reason: fmt.Sprintf("field %q must be an array", key)}
	}
	out := make([]Rule, len(elems))
	for i, elem := range elems {
		out[i] = decodeNode(elem)
	}
	return out, nil
}

// RuleToValue renders a rule back into its JSON object form.
// A nil rule renders as Nothing.
func RuleToValue(r Rule) Value {
	node := func(k Kind, pairs ...any) Object {
		obj := Object{"type": String(k)}
		for i := 0; i+1 < len(pairs); i += 2 {
			key := pairs[i].(string)
			switch v := pairs[i+1].(type) {
			case Value:
				obj[key] = v
			case Rule:
				if v != nil {
					obj[key] = RuleToValue(v)
				}
			case []Rule:
				obj[key] = rulesToList(v)
			case string:
				obj[key] = String(v)
			}
		}
		return obj
	}

	switch n := r.(type) {
	case nil:
		return Nothing{}
	case Constant:
		return node(KindConstant, "value", valueOrNothing(n.Value))
	case And:
		return node(KindAnd, "conditions", n.Conditions)
	case Or:
		return node(KindOr, "conditions", n.Conditions)
	case ItemCheck:
		return node(KindItemCheck, "item", n.Item)
	case CountCheck:
		return node(KindCountCheck, "item", n.Item, "count", n.Count)
	case GroupCheck:
		return node(KindGroupCheck, "group", n.Group, "count", n.Count)
	case StateFlag:
		return node(KindStateFlag, "flag", n.Flag)
	case Helper:
		return node(KindHelper, "name", n.Name, "args", n.Args)
	case StateMethod:
		return node(KindStateMethod, "method", n.Method, "args", n.Args)
	case Attribute:
		return node(KindAttribute, "object", n.Object, "attr", n.Attr)
	case Subscript:
		return node(KindSubscript, "value", n.Value, "index", n.Index)
	case FunctionCall:
		return node(KindFunctionCall, "function", n.Function, "args", n.Args)
	case Comparison:
		return node(KindComparison, "op", n.Op, "left", n.Left, "right", n.Right)
	case Name:
		return node(KindName, "name", n.Identifier)
	case ListExpr:
		return node(KindList, "elements", n.Elements)
	case Invalid:
		typ := n.Type
		if typ == "" {
			typ = string(KindInvalid)
		}
		return Object{"type": String(typ), "reason": String(n.Reason)}
	default:
		return Nothing{}
	}
}

// MarshalRule encodes a rule as JSON.
func MarshalRule(r Rule) ([]byte, error) {
	return MarshalValue(RuleToValue(r))
}

func rulesToList(rules []Rule) List {
	out := make(List, len(rules))
	for i, r := range rules {
		out[i] = RuleToValue(r)
	}
	return out
}

func valueOrNothing(v Value) Value {
	if v == nil {
		return Nothing{}
	}
	return v
}
