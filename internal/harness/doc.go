// Package harness provides conformance testing for rule-sets and the
// reachability engine.
//
// The harness loads a rule-set, replays a scenario's item and flag steps
// against a fresh engine, and checks assertions about the final state.
// Every engine notification is recorded in a trace that can be compared
// with a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	ruleset: ../worlds/sample.json
//	helpers:
//	  - ../helpers/sample.lua
//	indirect_mode: strict
//	items: [Sword]
//	steps:
//	  - add: Heart
//	    count: 3
//	  - flag: ferry
//	    value: true
//	  - invalidate: true
//	assertions:
//	  - type: reachable
//	    regions: [Castle]
//	  - type: path
//	    region: Castle
//	    entrances: ["Menu -> Field", "Field -> Castle"]
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - reachable: every listed region is reachable
//   - unreachable: no listed region is reachable
//   - has_item: the inventory holds item (at least count copies)
//   - path: the witness path to region takes exactly the listed entrances
//   - accessible: every listed location is accessible
//
// # Deterministic Testing
//
// The engine is single-threaded and its notification seqs start at 1, so
// the same scenario always produces the same trace. Traces are rendered
// as canonical JSON for golden comparison.
package harness
