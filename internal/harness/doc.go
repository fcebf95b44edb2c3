// Package harness runs compiler conformance scenarios.
//
// A scenario is a syntax tree plus the facts a pass over it must produce.
// The harness compiles the tree with a fresh symbol manager and no
// dependency installation, validates the output, and checks the
// expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: fog_sync
//	description: "A sync activity guarded by a fog condition"
//	tree:                       # inline tree, or tree_file: path
//	  kind: Program
//	  elements:
//	    - kind: Jconditional
//	      entries: [...]
//	exports:
//	  - {function: helper, level: None, side: J}
//	yield_point: false
//	expect:
//	  max_level: 2
//	  has_jdata: false
//	  codes: {fogSync: 10}
//	  activities: [sense]
//	  contains:
//	    - 'jworklib.registerActivity("sense"'
//	  error: ""                 # expected CompileError kind, e.g. UNDEFINED_SYMBOL
//
// tree_file paths are resolved relative to the scenario file.
//
// # Expectations
//
//   - max_level, has_jdata: compared exactly when present
//   - codes: condition name to code, each condition must exist
//   - activities: names that must be registered, in registration order
//   - contains: substrings of the translated program
//   - error: the pass must fail with this kind; other expectations are skipped
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/fog_sync.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
