package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/jamc/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrCodeOutOfRange      = "E201" // condition code outside 0..31
	ErrEmptyExpression     = "E202" // condition expression is empty
	ErrActivityNoName      = "E203" // activity without a name
	ErrActivityKind        = "E204" // activity kind not sync/async
	ErrDuplicateActivity   = "E205" // activity registered twice
	ErrBroadcastDependency = "E206" // broadcast dependency is not a broadcaster
	ErrMaxLevelOutOfRange  = "E207" // max level outside 1..3
)

const (
	maxCode  = ir.TierDevice | ir.TierFog | ir.TierCloud | ir.SyncFlag | ir.DynamicFlag
	minLevel = 1
	topLevel = 3
)

// ValidationError represents a rule violation in a compiled output.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled output for internal consistency.
// Returns all errors found (does not fail-fast).
func Validate(out *ir.Output) []ValidationError {
	var errs []ValidationError

	// E207: max level
	if out.MaxLevel < minLevel || out.MaxLevel > topLevel {
		errs = append(errs, ValidationError{
			Field:   "max_level",
			Message: fmt.Sprintf("max level %d outside %d..%d", out.MaxLevel, minLevel, topLevel),
			Code:    ErrMaxLevelOutOfRange,
		})
	}

	isBcast := make(map[string]bool)
	for _, d := range out.JData {
		if d.Kind == ir.JDataBroadcaster {
			isBcast[d.Name] = true
		}
	}

	for i, c := range out.Conditions {
		errs = append(errs, validateJCond(fmt.Sprintf("conditions[%d]", i), c.Name, c.JCond, isBcast)...)
	}

	seen := make(map[string]bool)
	for i, a := range out.Activities {
		field := fmt.Sprintf("activities[%d]", i)

		// E203: activity name
		if strings.TrimSpace(a.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "activity name is required",
				Code:    ErrActivityNoName,
			})
		}

		// E204: activity kind
		if a.Kind != ir.ActivitySync && a.Kind != ir.ActivityAsync {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("invalid activity kind %q, must be \"sync\" or \"async\"", a.Kind),
				Code:    ErrActivityKind,
			})
		}

		// E205: duplicate activity
		if a.Name != "" && seen[a.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate activity %q", a.Name),
				Code:    ErrDuplicateActivity,
			})
		}
		seen[a.Name] = true

		errs = append(errs, validateJCond(field+".jcond", a.Name, a.JCond, isBcast)...)
	}

	return errs
}

func validateJCond(field, name string, c ir.JCond, isBcast map[string]bool) []ValidationError {
	var errs []ValidationError

	// E201: code range
	if c.Code < 0 || c.Code > maxCode {
		errs = append(errs, ValidationError{
			Field:   field + ".code",
			Message: fmt.Sprintf("condition %s: code %d outside 0..%d", name, c.Code, maxCode),
			Code:    ErrCodeOutOfRange,
		})
	}

	// E202: expression
	if strings.TrimSpace(c.Expression) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".expression",
			Message: fmt.Sprintf("condition %s has an empty expression", name),
			Code:    ErrEmptyExpression,
		})
	}

	// E206: broadcast dependencies
	for j, dep := range c.BroadcastDeps {
		if !isBcast[dep] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.broadcast_deps[%d]", field, j),
				Message: fmt.Sprintf("condition %s depends on %q, which is not a broadcaster", name, dep),
				Code:    ErrBroadcastDependency,
			})
		}
	}
	return errs
}
