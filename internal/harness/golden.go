package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/jamc/internal/ir"
)

// Snapshot is the golden view of a scenario's outcome: the compiled
// conditions and activities, not the generated text.
type Snapshot struct {
	ScenarioName string              `json:"scenario_name"`
	ErrorKind    string              `json:"error_kind,omitempty"`
	MaxLevel     int                 `json:"max_level,omitempty"`
	HasJData     bool                `json:"has_jdata,omitempty"`
	Conditions   []SnapshotCondition `json:"conditions,omitempty"`
	Activities   []SnapshotActivity  `json:"activities,omitempty"`
	Calls        []ir.CallEdge       `json:"calls,omitempty"`
	Flows        []string            `json:"flows,omitempty"`
}

type SnapshotCondition struct {
	Name       string `json:"name"`
	Code       int    `json:"code"`
	Expression string `json:"expression"`
}

type SnapshotActivity struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Code int    `json:"code"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{ScenarioName: name, ErrorKind: result.ErrorKind}
	out := result.Output
	if out == nil {
		return s
	}
	s.MaxLevel = out.MaxLevel
	s.HasJData = out.HasJData
	for _, c := range out.Conditions {
		s.Conditions = append(s.Conditions, SnapshotCondition{Name: c.Name, Code: c.Code, Expression: c.Expression})
	}
	for _, a := range out.Activities {
		s.Activities = append(s.Activities, SnapshotActivity{Name: a.Name, Kind: string(a.Kind), Code: a.JCond.Code})
	}
	s.Calls = out.Calls
	s.Flows = out.Flows
	return s
}

// Canonical renders the snapshot as canonical JSON.
func (s Snapshot) Canonical() ([]byte, error) {
	v, err := ir.ToCanonicalValue(s)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be run. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
