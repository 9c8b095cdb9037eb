package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleNodes(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Rule
	}{
		{"constant", `{"type":"constant","value":true}`, Constant{Value: True}},
		{"bare string", `"Hookshot"`, Str("Hookshot")},
		{"bare number", `3`, Num(3)},
		{"bare bool", `false`, Constant{Value: False}},
		{"item_check literal", `{"type":"item_check","item":"Key"}`, Has("Key")},
		{
			"count_check default count",
			`{"type":"count_check","item":"Heart"}`,
			CountCheck{Item: Str("Heart")},
		},
		{
			"count_check nested",
			`{"type":"count_check","item":{"type":"name","name":"token"},"count":{"type":"constant","value":4}}`,
			CountCheck{Item: Name{Identifier: "token"}, Count: Num(4)},
		},
		{"group_check", `{"type":"group_check","group":"Swords","count":2}`, GroupCheck{Group: Str("Swords"), Count: Num(2)}},
		{"state_flag", `{"type":"state_flag","flag":"open_mode"}`, StateFlag{Flag: "open_mode"}},
		{"state_flag alias", `{"type":"state_flag","name":"open_mode"}`, StateFlag{Flag: "open_mode"}},
		{"helper", `{"type":"helper","name":"can_lift","args":[2]}`, Helper{Name: "can_lift", Args: []Rule{Num(2)}}},
		{"helper no args", `{"type":"helper","name":"can_swim"}`, Helper{Name: "can_swim"}},
		{
			"state_method",
			`{"type":"state_method","method":"can_reach","args":["Tower","Region"]}`,
			CanReach("Tower"),
		},
		{
			"compare alias",
			`{"type":"compare","op":">=","left":{"type":"name","id":"goal"},"right":2}`,
			Comparison{Op: ">=", Left: Name{Identifier: "goal"}, Right: Num(2)},
		},
		{"list", `{"type":"list","elements":["a","b"]}`, ListExpr{Elements: []Rule{Str("a"), Str("b")}}},
		{"list alias", `{"type":"list","value":["a"]}`, ListExpr{Elements: []Rule{Str("a")}}},
		{
			"attribute",
			`{"type":"attribute","object":{"type":"name","name":"world"},"attr":"options"}`,
			Attribute{Object: Name{Identifier: "world"}, Attr: "options"},
		},
		{
			"subscript",
			`{"type":"subscript","value":{"type":"name","name":"costs"},"index":0}`,
			Subscript{Value: Name{Identifier: "costs"}, Index: Num(0)},
		},
		{
			"and",
			`{"type":"and","conditions":[{"type":"item_check","item":"A"},"B"]}`,
			AllOf(Has("A"), Str("B")),
		},
		{"empty or", `{"type":"or","conditions":[]}`, Or{Conditions: []Rule{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRule([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRuleNull(t *testing.T) {
	r, err := ParseRule([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = ParseRule(nil)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestParseRuleInvalidSyntax(t *testing.T) {
	_, err := ParseRule([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestParseRuleMalformedNodes(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		invType string
	}{
		{"unknown type", `{"type":"teleport","to":"X"}`, "teleport"},
		{"missing type", `{"item":"A"}`, ""},
		{"item_check missing item", `{"type":"item_check"}`, "item_check"},
		{"item_check null item", `{"type":"item_check","item":null}`, "item_check"},
		{"and missing conditions", `{"type":"and"}`, "and"},
		{"and conditions not array", `{"type":"and","conditions":"A"}`, "and"},
		{"helper without name", `{"type":"helper","args":[]}`, "helper"},
		{"comparison missing right", `{"type":"comparison","op":"==","left":1}`, "comparison"},
		{"float constant", `{"type":"constant","value":1.5}`, "constant"},
		{"bare float", `2.5`, "constant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRule([]byte(tt.json))
			require.NoError(t, err)
			inv, ok := got.(Invalid)
			require.True(t, ok, "expected Invalid, got %T", got)
			assert.Equal(t, tt.invType, inv.Type)
			assert.NotEmpty(t, inv.Reason)
		})
	}
}

func TestParseRuleMalformedChildKeepsSiblings(t *testing.T) {
	got, err := ParseRule([]byte(`{"type":"or","conditions":[{"type":"bogus"},{"type":"item_check","item":"A"}]}`))
	require.NoError(t, err)

	or, ok := got.(Or)
	require.True(t, ok)
	require.Len(t, or.Conditions, 2)
	assert.Equal(t, KindInvalid, or.Conditions[0].Kind())
	assert.Equal(t, Has("A"), or.Conditions[1])
}

func TestMarshalRuleRoundTrip(t *testing.T) {
	src := `{"type":"and","conditions":[{"type":"item_check","item":"Bow"},{"type":"comparison","op":"in","left":"a","right":{"type":"list","elements":["a"]}},{"type":"state_method","method":"can_reach","args":["D","Region"]}]}`

	r := MustParseRule(src)
	data, err := MarshalRule(r)
	require.NoError(t, err)

	again, err := ParseRule(data)
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestMarshalRuleNil(t *testing.T) {
	data, err := MarshalRule(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestWalkStopsDescent(t *testing.T) {
	r := AllOf(Has("A"), AnyOf(Has("B"), Has("C")))

	var kinds []Kind
	Walk(r, func(n Rule) bool {
		kinds = append(kinds, n.Kind())
		return n.Kind() != KindOr
	})

	assert.Equal(t, []Kind{KindAnd, KindItemCheck, KindConstant, KindOr}, kinds)
}
