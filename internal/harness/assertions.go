package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an expectation fails.
// It includes the generated SQL to help debug the failure.
type AssertionError struct {
	Type     string // Expectation kind for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Query    string // Generated SQL, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Query != "" {
		fmt.Fprintf(&buf, "\nGenerated SQL:\n%s\n", e.Query)
	}

	return buf.String()
}

// EvaluateExpectations checks result against expect and returns one message
// per failed expectation.
func EvaluateExpectations(result *Result, expect ExpectClause) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if expect.WantsErrors() {
		add(assertErrorCodes(result, expect.Errors))
		return errs
	}

	if len(result.ErrorCodes) > 0 {
		add(&AssertionError{
			Type:     "compile",
			Expected: "request compiles",
			Actual:   fmt.Sprintf("rejected with %v", result.ErrorCodes),
		})
		return errs
	}

	if expect.Query != "" {
		add(assertQuery(result, expect.Query))
	}
	for _, frag := range expect.Contains {
		add(assertContains(result, frag))
	}
	for _, frag := range expect.NotContains {
		add(assertNotContains(result, frag))
	}
	if expect.Arms > 0 {
		add(assertArms(result, expect.Arms))
	}
	if expect.Warnings != nil {
		add(assertWarnings(result, *expect.Warnings))
	}
	return errs
}

func assertQuery(result *Result, want string) error {
	// YAML block scalars end with a newline; the compiler never does.
	want = strings.TrimRight(want, "\n")
	if result.Query == want {
		return nil
	}
	return &AssertionError{
		Type:     "query",
		Expected: fmt.Sprintf("%q", want),
		Actual:   fmt.Sprintf("%q", result.Query),
	}
}

func assertContains(result *Result, frag string) error {
	if strings.Contains(result.Query, frag) {
		return nil
	}
	return &AssertionError{
		Type:     "contains",
		Expected: fmt.Sprintf("SQL containing %q", frag),
		Actual:   "not found",
		Query:    result.Query,
	}
}

func assertNotContains(result *Result, frag string) error {
	if !strings.Contains(result.Query, frag) {
		return nil
	}
	return &AssertionError{
		Type:     "not_contains",
		Expected: fmt.Sprintf("SQL without %q", frag),
		Actual:   "found",
		Query:    result.Query,
	}
}

func assertArms(result *Result, want int) error {
	if result.Arms == want {
		return nil
	}
	return &AssertionError{
		Type:     "arms",
		Expected: fmt.Sprintf("%d UNION ALL arms", want),
		Actual:   fmt.Sprintf("%d arms", result.Arms),
		Query:    result.Query,
	}
}

func assertWarnings(result *Result, want int) error {
	if len(result.Warnings) == want {
		return nil
	}
	return &AssertionError{
		Type:     "warnings",
		Expected: fmt.Sprintf("%d warnings", want),
		Actual:   fmt.Sprintf("%d warnings: %v", len(result.Warnings), result.Warnings),
	}
}

// assertErrorCodes compares codes as sets.
func assertErrorCodes(result *Result, want []string) error {
	got := uniqueSorted(result.ErrorCodes)
	exp := uniqueSorted(want)
	if slices.Equal(got, exp) {
		return nil
	}
	actual := fmt.Sprintf("%v", got)
	if len(got) == 0 {
		actual = "request compiled"
	}
	return &AssertionError{
		Type:     "errors",
		Expected: fmt.Sprintf("rejection with %v", exp),
		Actual:   actual,
		Query:    result.Query,
	}
}

func uniqueSorted(codes []string) []string {
	out := slices.Clone(codes)
	slices.Sort(out)
	return slices.Compact(out)
}
