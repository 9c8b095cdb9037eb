package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/ir"
)

func TestLoadRuleSetFormatsAgree(t *testing.T) {
	want, err := LoadRuleSet(filepath.Join("testdata", "sample.json"))
	require.NoError(t, err)
	wantHash := ir.MustRuleSetHash(want)

	for _, name := range []string{"sample.yaml", "sample.cue"} {
		t.Run(name, func(t *testing.T) {
			rs, err := LoadRuleSet(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, wantHash, ir.MustRuleSetHash(rs), "every format decodes to the same rule-set")
		})
	}
}

func TestLoadRuleSetContents(t *testing.T) {
	rs, err := LoadRuleSet(filepath.Join("testdata", "sample.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Sample", rs.Game)
	assert.Equal(t, []string{"Castle", "Field", "Menu"}, rs.RegionNames())

	boss, ok := rs.Location("Defeat Boss")
	require.True(t, ok)
	assert.True(t, boss.Event)
	assert.Equal(t, "Castle", boss.Region)
	assert.Equal(t, ir.CountCheck{Item: ir.Str("Heart"), Count: ir.Num(3)}, boss.Rule)

	exit, ok := rs.Entrance("Field -> Castle")
	require.True(t, ok)
	assert.Equal(t, "Field", exit.From)
	assert.Equal(t, ir.Has("Sword"), exit.Rule)
}

func TestLoadRuleSetCUEDirectory(t *testing.T) {
	rs, err := LoadRuleSet(filepath.Join("testdata", "cuedir"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Field", "Menu"}, rs.RegionNames())
	assert.True(t, rs.Items["Sword"].Progression, "files of one package are unified")
}

func TestLoadRuleSetErrors(t *testing.T) {
	emptyDir := t.TempDir()
	unknown := filepath.Join(t.TempDir(), "world.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("game = 1"), 0644))
	floatJSON := filepath.Join(t.TempDir(), "float.json")
	require.NoError(t, os.WriteFile(floatJSON, []byte(`{"settings": {"ratio": 1.5}}`), 0644))

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join("testdata", "nope.json"), ErrCodeNotFound},
		{"empty directory", emptyDir, ErrCodeNoFiles},
		{"unsupported extension", unknown, ErrCodeFormat},
		{"bad yaml", filepath.Join("testdata", "broken.yaml"), ErrCodeDecode},
		{"float setting", floatJSON, ErrCodeDecode},
		{"non-concrete cue", filepath.Join("testdata", "incomplete.cue"), ErrCodeBuildFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRuleSet(tt.path)
			require.Error(t, err)
			assert.True(t, IsLoadError(err, tt.code), "got %v", err)
		})
	}
}

func TestLoadErrorPosition(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join("testdata", "incomplete.cue"))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Pos.IsValid(), "CUE errors keep their source position")
	assert.Contains(t, le.Error(), "incomplete.cue:")
}

func TestDecodeYAMLKeepsRules(t *testing.T) {
	src := `
start_regions: [Menu]
regions:
  Menu:
    exits:
      - name: up
        connected_region: Attic
        rule:
          type: or
          conditions:
            - {type: item_check, item: Ladder}
            - {type: state_method, method: can_reach, args: [Roof, Region]}
  Attic: {}
  Roof: {}
`
	rs, err := DecodeYAML("inline", []byte(src))
	require.NoError(t, err)

	exit, ok := rs.Entrance("up")
	require.True(t, ok)
	assert.Equal(t, ir.AnyOf(ir.Has("Ladder"), ir.CanReach("Roof")), exit.Rule)
}
