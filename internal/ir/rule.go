package ir

// Kind identifies a rule node variant. The set is closed: the decoder maps
// every JSON "type" string onto one of these, and anything else onto KindInvalid.
type Kind string

const (
	KindConstant     Kind = "constant"
	KindAnd          Kind = "and"
	KindOr           Kind = "or"
	KindItemCheck    Kind = "item_check"
	KindCountCheck   Kind = "count_check"
	KindGroupCheck   Kind = "group_check"
	KindStateFlag    Kind = "state_flag"
	KindHelper       Kind = "helper"
	KindStateMethod  Kind = "state_method"
	KindAttribute    Kind = "attribute"
	KindSubscript    Kind = "subscript"
	KindFunctionCall Kind = "function_call"
	KindComparison   Kind = "comparison"
	KindName         Kind = "name"
	KindList         Kind = "list"
	KindInvalid      Kind = "invalid"
)

// Rule is a sealed interface over the rule expression tree.
// A nil Rule is a missing rule and is vacuously true.
type Rule interface {
	Kind() Kind
	ruleNode()
}

// Constant is a literal value. Bare JSON strings, numbers and booleans
// decode to Constant.
type Constant struct {
	Value Value
}

// And is true when every condition is true. Evaluation short-circuits
// left to right.
type And struct {
	Conditions []Rule
}

// Or is true when any condition is true. Evaluation short-circuits left to right.
type Or struct {
	Conditions []Rule
}

// ItemCheck is true when the inventory has Item. Item evaluates to a string.
type ItemCheck struct {
	Item Rule
}

// CountCheck is true when the inventory holds at least Count of Item.
// A nil Count means 1.
type CountCheck struct {
	Item  Rule
	Count Rule
}

// GroupCheck is true when the summed count of Group reaches Count.
// A nil Count means 1.
type GroupCheck struct {
	Group Rule
	Count Rule
}

// StateFlag reads a named boolean flag from auxiliary state.
type StateFlag struct {
	Flag string
}

// Helper calls a game helper function by name.
type Helper struct {
	Name string
	Args []Rule
}

// StateMethod calls a method on the collection state (has, count, can_reach, ...).
type StateMethod struct {
	Method string
	Args   []Rule
}

// Attribute resolves a named field on a previously evaluated base value.
type Attribute struct {
	Object Rule
	Attr   string
}

// Subscript indexes a list by number or an object by key.
type Subscript struct {
	Value Rule
	Index Rule
}

// FunctionCall applies a call shape. See the rules package for the recognised
// shapes.
type FunctionCall struct {
	Function Rule
	Args     []Rule
}

// Comparison compares two operands with Op.
type Comparison struct {
	Op    string
	Left  Rule
	Right Rule
}

// Name is a bare identifier, resolved against settings and well-known names.
type Name struct {
	Identifier string
}

// ListExpr is a list literal whose elements are rules.
type ListExpr struct {
	Elements []Rule
}

// Invalid stands in for a node the decoder could not interpret.
// It always evaluates to false and is reported as a diagnostic.
type Invalid struct {
	Type   string // original "type" field, if any
	Reason string
}

func (Constant) Kind() Kind     { return KindConstant }
func (And) Kind() Kind          { return KindAnd }
func (Or) Kind() Kind           { return KindOr }
func (ItemCheck) Kind() Kind    { return KindItemCheck }
func (CountCheck) Kind() Kind   { return KindCountCheck }
func (GroupCheck) Kind() Kind   { return KindGroupCheck }
func (StateFlag) Kind() Kind    { return KindStateFlag }
func (Helper) Kind() Kind       { return KindHelper }
func (StateMethod) Kind() Kind  { return KindStateMethod }
func (Attribute) Kind() Kind    { return KindAttribute }
func (Subscript) Kind() Kind    { return KindSubscript }
func (FunctionCall) Kind() Kind { return KindFunctionCall }
func (Comparison) Kind() Kind   { return KindComparison }
func (Name) Kind() Kind         { return KindName }
func (ListExpr) Kind() Kind     { return KindList }
func (Invalid) Kind() Kind      { return KindInvalid }

func (Constant) ruleNode()     {}
func (And) ruleNode()          {}
func (Or) ruleNode()           {}
func (ItemCheck) ruleNode()    {}
func (CountCheck) ruleNode()   {}
func (GroupCheck) ruleNode()   {}
func (StateFlag) ruleNode()    {}
func (Helper) ruleNode()       {}
func (StateMethod) ruleNode()  {}
func (Attribute) ruleNode()    {}
func (Subscript) ruleNode()    {}
func (FunctionCall) ruleNode() {}
func (Comparison) ruleNode()   {}
func (Name) ruleNode()         {}
func (ListExpr) ruleNode()     {}
func (Invalid) ruleNode()      {}

// Lit wraps a literal as a Constant node.
func Lit(v Value) Rule {
	return Constant{Value: v}
}

// Str is shorthand for a string Constant.
func Str(s string) Rule {
	return Constant{Value: String(s)}
}

// Num is shorthand for a number Constant.
func Num(n int64) Rule {
	return Constant{Value: Number(n)}
}

// Has builds an item_check on a literal item name.
func Has(item string) Rule {
	return ItemCheck{Item: Str(item)}
}

// CanReach builds the canonical state_method can_reach(region, "Region") node.
func CanReach(region string) Rule {
	return StateMethod{Method: "can_reach", Args: []Rule{Str(region), Str("Region")}}
}

// AllOf builds an And node.
func AllOf(conditions ...Rule) Rule {
	return And{Conditions: conditions}
}

// AnyOf builds an Or node.
func AnyOf(conditions ...Rule) Rule {
	return Or{Conditions: conditions}
}

// Walk visits r and every descendant depth-first, stopping descent into a
// node when fn returns false.
func Walk(r Rule, fn func(Rule) bool) {
	if r == nil || !fn(r) {
		return
	}
	for _, child := range Children(r) {
		Walk(child, fn)
	}
}

// Children returns the direct child nodes of r in evaluation order.
func Children(r Rule) []Rule {
	switch n := r.(type) {
	case And:
		return n.Conditions
	case Or:
		return n.Conditions
	case ItemCheck:
		return nonNil(n.Item)
	case CountCheck:
		return nonNil(n.Item, n.Count)
	case GroupCheck:
		return nonNil(n.Group, n.Count)
	case Helper:
		return n.Args
	case StateMethod:
		return n.Args
	case Attribute:
		return nonNil(n.Object)
	case Subscript:
		return nonNil(n.Value, n.Index)
	case FunctionCall:
		return append(nonNil(n.Function), n.Args...)
	case Comparison:
		return nonNil(n.Left, n.Right)
	case ListExpr:
		return n.Elements
	default:
		return nil
	}
}

func nonNil(rules ...Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
