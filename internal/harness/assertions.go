package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/jamc/internal/compiler"
	"github.com/roach88/jamc/internal/ir"
)

// ExpectationError describes one failed expectation.
type ExpectationError struct {
	Field    string // Expectation name, e.g. "codes.fogSync"
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expectation failed: %s\n  Expected: %s\n  Actual: %s", e.Field, e.Expected, e.Actual)
}

// CheckExpectations compares a pass against expect. compileErr is the error
// the pass returned, if any. Returns one message per failed expectation, in
// a stable order.
func CheckExpectations(result *Result, expect Expect, compileErr error) []string {
	var errs []error

	if expect.Error != "" {
		if compileErr == nil {
			errs = append(errs, &ExpectationError{Field: "error", Expected: expect.Error, Actual: "compile succeeded"})
		} else if kind, _ := compiler.KindOf(compileErr); string(kind) != expect.Error {
			errs = append(errs, &ExpectationError{Field: "error", Expected: expect.Error, Actual: compileErr.Error()})
		}
		return messages(errs)
	}
	if compileErr != nil {
		errs = append(errs, &ExpectationError{Field: "error", Expected: "no error", Actual: compileErr.Error()})
		return messages(errs)
	}

	out := result.Output
	result.Validation = compiler.Validate(out)
	for _, v := range result.Validation {
		errs = append(errs, &ExpectationError{Field: "validation", Expected: "valid output", Actual: v.Error()})
	}

	if expect.MaxLevel != nil && out.MaxLevel != *expect.MaxLevel {
		errs = append(errs, &ExpectationError{
			Field:    "max_level",
			Expected: fmt.Sprint(*expect.MaxLevel),
			Actual:   fmt.Sprint(out.MaxLevel),
		})
	}
	if expect.HasJData != nil && out.HasJData != *expect.HasJData {
		errs = append(errs, &ExpectationError{
			Field:    "has_jdata",
			Expected: fmt.Sprint(*expect.HasJData),
			Actual:   fmt.Sprint(out.HasJData),
		})
	}

	errs = append(errs, checkCodes(out, expect.Codes)...)
	if err := checkActivities(out, expect.Activities); err != nil {
		errs = append(errs, err)
	}

	text := out.Text()
	for i, want := range expect.Contains {
		if !strings.Contains(text, want) {
			errs = append(errs, &ExpectationError{
				Field:    fmt.Sprintf("contains[%d]", i),
				Expected: fmt.Sprintf("output containing %q", want),
				Actual:   "not found in translated program",
			})
		}
	}
	return messages(errs)
}

// checkCodes compares condition codes, iterating names in sorted order so
// that failures are reported deterministically.
func checkCodes(out *ir.Output, codes map[string]int) []error {
	names := make([]string, 0, len(codes))
	for name := range codes {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		want := codes[name]
		c, ok := out.Condition(name)
		switch {
		case !ok:
			errs = append(errs, &ExpectationError{
				Field:    "codes." + name,
				Expected: fmt.Sprintf("condition %s with code %d", name, want),
				Actual:   "condition not compiled",
			})
		case c.Code != want:
			errs = append(errs, &ExpectationError{
				Field:    "codes." + name,
				Expected: fmt.Sprint(want),
				Actual:   fmt.Sprint(c.Code),
			})
		}
	}
	return errs
}

// checkActivities verifies that the named activities were registered in the
// given relative order. Other activities may be interleaved.
func checkActivities(out *ir.Output, names []string) error {
	if len(names) == 0 {
		return nil
	}
	registered := make([]string, len(out.Activities))
	for i, a := range out.Activities {
		registered[i] = a.Name
	}

	next := 0
	for _, name := range registered {
		if next < len(names) && name == names[next] {
			next++
		}
	}
	if next == len(names) {
		return nil
	}
	return &ExpectationError{
		Field:    "activities",
		Expected: fmt.Sprintf("%v in order", names),
		Actual:   fmt.Sprintf("%v", registered),
	}
}

func messages(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
