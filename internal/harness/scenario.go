package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jamc/internal/compiler"
	"github.com/roach88/jamc/internal/ir"
)

// Scenario defines a compiler conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tree is the syntax tree in map form. Exactly one of Tree and TreeFile
	// is set.
	Tree map[string]any `yaml:"tree,omitempty"`

	// TreeFile is the path of a .json, .yaml or .cue tree. Relative paths
	// are resolved against the scenario file's directory by LoadScenario.
	TreeFile string `yaml:"tree_file,omitempty"`

	// Exports is the externally supplied export list.
	Exports []ir.Export `yaml:"exports,omitempty"`

	// YieldPoint enables yield points in loop bodies.
	YieldPoint bool `yaml:"yield_point,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect lists the facts a pass must produce. Nil and empty fields are not
// checked.
type Expect struct {
	MaxLevel   *int           `yaml:"max_level,omitempty"`
	HasJData   *bool          `yaml:"has_jdata,omitempty"`
	Codes      map[string]int `yaml:"codes,omitempty"`
	Activities []string       `yaml:"activities,omitempty"`
	Contains   []string       `yaml:"contains,omitempty"`

	// Error is the expected CompileError kind. When set, the pass must fail.
	Error string `yaml:"error,omitempty"`
}

// knownKinds are the accepted values of Expect.Error.
var knownKinds = map[compiler.Kind]bool{
	compiler.KindGrammar:                true,
	compiler.KindUndefinedSymbol:        true,
	compiler.KindIllegalOperation:       true,
	compiler.KindExportValidation:       true,
	compiler.KindUnsupportedAggregation: true,
	compiler.KindDependencyResolution:   true,
}

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

	// Resolve the tree path relative to the scenario BEFORE validation
	if scenario.TreeFile != "" && !filepath.IsAbs(scenario.TreeFile) {
		scenario.TreeFile = filepath.Join(filepath.Dir(path), scenario.TreeFile)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every .yaml and .yml scenario in dir, in file name order.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, m...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Tree == nil && s.TreeFile == "":
		return fmt.Errorf("one of tree or tree_file is required")
	case s.Tree != nil && s.TreeFile != "":
		return fmt.Errorf("tree and tree_file are mutually exclusive")
	}

	if s.TreeFile != "" {
		if _, err := os.Stat(s.TreeFile); os.IsNotExist(err) {
			return fmt.Errorf("tree file not found: %s", s.TreeFile)
		}
	}

	for i, e := range s.Exports {
		if e.Function == "" {
			return fmt.Errorf("exports[%d]: function is required", i)
		}
		if e.Side != ir.SideLocal && e.Side != ir.SideRemote {
			return fmt.Errorf("exports[%d]: side must be %q or %q", i, ir.SideLocal, ir.SideRemote)
		}
	}

	if s.Expect.Error != "" && !knownKinds[compiler.Kind(s.Expect.Error)] {
		return fmt.Errorf("expect.error: unknown error kind %q", s.Expect.Error)
	}

	if s.Expect.MaxLevel != nil && (*s.Expect.MaxLevel < 1 || *s.Expect.MaxLevel > 3) {
		return fmt.Errorf("expect.max_level must be between 1 and 3")
	}

	return nil
}
