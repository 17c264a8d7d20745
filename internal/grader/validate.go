package grader

import "fmt"

// Mode is a harness validation mode. It wraps a single grader invocation
// with an expectation about the resulting reward.
type Mode string

const (
	// ModeBaselineFail asserts the grader returns 0.0 against the unmodified
	// baseline, protecting against always-passing tests.
	ModeBaselineFail Mode = "baseline_fail"
	// ModeGoldenPass asserts the grader returns 1.0 once the golden diff has
	// been applied, protecting against a golden solution that does not
	// satisfy its own test.
	ModeGoldenPass Mode = "golden_pass"
)

// ParseMode recognizes exactly the two validation modes.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeBaselineFail, ModeGoldenPass:
		return Mode(value), nil
	}
	return "", fmt.Errorf("unknown validation mode %q (want baseline_fail or golden_pass)", value)
}

// ExpectationHolds reports whether the reward matches the mode's
// expectation. The harness prints PASS/FAIL for the expectation, not the
// raw grade.
func (m Mode) ExpectationHolds(reward float64) bool {
	switch m {
	case ModeBaselineFail:
		return reward == 0.0
	case ModeGoldenPass:
		return reward == 1.0
	}
	return false
}
