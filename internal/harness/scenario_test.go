package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/boss_event.yaml")
	require.NoError(t, err)

	assert.Equal(t, "boss_event", s.Name)
	assert.Equal(t, "../worlds/sample.json", s.RuleSet)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, Step{Add: "Sword"}, s.Steps[0])
	assert.Equal(t, Step{Add: "Heart", Count: 3}, s.Steps[1])
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertPath, s.Assertions[3].Type)
	assert.Equal(t, filepath.Join("testdata", "worlds", "sample.json"), s.resolve(s.RuleSet))
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
ruleset: world.json
assertion:
  - type: reachable
    regions: [Menu]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "ruleset: w.json\nassertions: [{type: reachable, regions: [A]}]",
			want: "name is required",
		},
		{
			name: "missing ruleset",
			yaml: "name: x\nassertions: [{type: reachable, regions: [A]}]",
			want: "ruleset is required",
		},
		{
			name: "no assertions",
			yaml: "name: x\nruleset: w.json",
			want: "at least one assertion is required",
		},
		{
			name: "bad indirect mode",
			yaml: "name: x\nruleset: w.json\nindirect_mode: loose\nassertions: [{type: reachable, regions: [A]}]",
			want: "unknown indirect mode",
		},
		{
			name: "step with two actions",
			yaml: "name: x\nruleset: w.json\nsteps: [{add: Sword, flag: f}]\nassertions: [{type: reachable, regions: [A]}]",
			want: "steps[0]: exactly one of add, flag or invalidate is required",
		},
		{
			name: "count without add",
			yaml: "name: x\nruleset: w.json\nsteps: [{flag: f, count: 2}]\nassertions: [{type: reachable, regions: [A]}]",
			want: "count requires add",
		},
		{
			name: "reachable without regions",
			yaml: "name: x\nruleset: w.json\nassertions: [{type: reachable}]",
			want: "reachable assertion requires regions",
		},
		{
			name: "path without region",
			yaml: "name: x\nruleset: w.json\nassertions: [{type: path}]",
			want: "path assertion requires region",
		},
		{
			name: "has_item without item",
			yaml: "name: x\nruleset: w.json\nassertions: [{type: has_item}]",
			want: "has_item assertion requires item",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\nruleset: w.json\nassertions: [{type: trace_order}]",
			want: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStepAction(t *testing.T) {
	assert.Equal(t, ActionAdd, Step{Add: "Sword"}.Action())
	assert.Equal(t, ActionFlag, Step{Flag: "calm"}.Action())
	assert.Equal(t, ActionInvalidate, Step{Invalidate: true}.Action())
	assert.Equal(t, "", Step{}.Action())
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "nested/c.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x"), 0o644))
	}

	files, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)
}
