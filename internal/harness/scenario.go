package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reach/internal/compiler"
)

// Scenario defines a conformance test scenario.
// Scenarios replay a sequence of inventory and flag changes against one
// rule-set and assert on the final reachability state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RuleSet is the path to the rule-set (JSON, YAML, CUE file or CUE
	// directory), relative to the scenario file.
	RuleSet string `yaml:"ruleset"`

	// Helpers lists Lua helper scripts, relative to the scenario file.
	Helpers []string `yaml:"helpers,omitempty"`

	// IndirectMode is "strict" (default) or "broad".
	IndirectMode string `yaml:"indirect_mode,omitempty"`

	// MaxPasses bounds event-convergence passes. Zero means the engine
	// default.
	MaxPasses int `yaml:"max_passes,omitempty"`

	// Items are held before the first solve.
	Items []string `yaml:"items,omitempty"`

	// Steps run in order; the engine is solved after each one.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the final state.
	// Supported types: reachable, unreachable, has_item, path, accessible
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// Step is one change to engine state. Exactly one of Add, Flag or
// Invalidate is set.
type Step struct {
	// Add collects an item.
	Add string `yaml:"add,omitempty"`

	// Count is how many copies Add collects. Defaults to 1.
	Count int `yaml:"count,omitempty"`

	// Flag sets a state flag to Value.
	Flag  string `yaml:"flag,omitempty"`
	Value bool   `yaml:"value,omitempty"`

	// Invalidate drops the cached result without changing state.
	Invalidate bool `yaml:"invalidate,omitempty"`
}

// Action names the step kind.
func (s Step) Action() string {
	switch {
	case s.Add != "":
		return ActionAdd
	case s.Flag != "":
		return ActionFlag
	case s.Invalidate:
		return ActionInvalidate
	default:
		return ""
	}
}

// Step action names, as recorded in the trace.
const (
	ActionStart      = "start"
	ActionAdd        = "add"
	ActionFlag       = "flag"
	ActionInvalidate = "invalidate"
)

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "reachable": every region in Regions is reachable
	// - "unreachable": no region in Regions is reachable
	// - "has_item": the inventory holds Item (Count copies, default 1)
	// - "path": the witness path to Region takes exactly Entrances
	// - "accessible": every location in Locations is accessible
	Type string `yaml:"type"`

	Regions   []string `yaml:"regions,omitempty"`
	Locations []string `yaml:"locations,omitempty"`
	Item      string   `yaml:"item,omitempty"`
	Count     int      `yaml:"count,omitempty"`
	Region    string   `yaml:"region,omitempty"`
	Entrances []string `yaml:"entrances,omitempty"`
}

// Assertion type constants.
const (
	AssertReachable   = "reachable"
	AssertUnreachable = "unreachable"
	AssertHasItem     = "has_item"
	AssertPath        = "path"
	AssertAccessible  = "accessible"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative paths resolve against the
// working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// resolve returns path relative to the scenario file.
func (s *Scenario) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.RuleSet == "" {
		return errors.New("ruleset is required")
	}
	if _, err := compiler.ParseIndirectMode(s.IndirectMode); err != nil {
		return err
	}
	if s.MaxPasses < 0 {
		return fmt.Errorf("max_passes must not be negative, got %d", s.MaxPasses)
	}
	if len(s.Assertions) == 0 {
		return errors.New("at least one assertion is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	set := 0
	if step.Add != "" {
		set++
	}
	if step.Flag != "" {
		set++
	}
	if step.Invalidate {
		set++
	}
	if set != 1 {
		return errors.New("exactly one of add, flag or invalidate is required")
	}
	if step.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", step.Count)
	}
	if step.Count > 0 && step.Add == "" {
		return errors.New("count requires add")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertReachable, AssertUnreachable:
		if len(a.Regions) == 0 {
			return fmt.Errorf("%s assertion requires regions", a.Type)
		}
	case AssertAccessible:
		if len(a.Locations) == 0 {
			return errors.New("accessible assertion requires locations")
		}
	case AssertHasItem:
		if a.Item == "" {
			return errors.New("has_item assertion requires item")
		}
	case AssertPath:
		if a.Region == "" {
			return errors.New("path assertion requires region")
		}
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
