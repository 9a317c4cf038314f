package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/query"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Expectation that failed: error, sql, params, count, records
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "expectation failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkStep compares a step result against its expect clause.
func checkStep(sr StepResult, expect Expect) []error {
	if expect.Error != "" {
		if sr.Error != expect.Error {
			return []error{&AssertionError{Type: "error", Expected: expect.Error, Actual: describeOutcome(sr)}}
		}
		return nil
	}
	if sr.Error != "" {
		return []error{&AssertionError{Type: "error", Expected: "success", Actual: describeOutcome(sr)}}
	}

	var errs []error
	if expect.SQL != "" && expect.SQL != sr.SQL {
		errs = append(errs, &AssertionError{Type: "sql", Expected: expect.SQL, Actual: sr.SQL})
	}
	if expect.Params != nil {
		if err := checkParams(sr.Params, expect.Params); err != nil {
			errs = append(errs, err)
		}
	}
	if expect.Count != nil && *expect.Count != sr.Count {
		errs = append(errs, &AssertionError{Type: "count",
			Expected: fmt.Sprint(*expect.Count), Actual: fmt.Sprint(sr.Count)})
	}
	if expect.Records != nil {
		if err := checkRecords(sr.Records, expect.Records); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func describeOutcome(sr StepResult) string {
	if sr.Error == "" {
		return "success"
	}
	return sr.Message
}

// checkParams compares parameters by value, so YAML ints match int64.
func checkParams(actual, expected []any) error {
	want, err := ir.FromAny(expected)
	if err != nil {
		return fmt.Errorf("expect.params: %w", err)
	}
	got, err := ir.FromAny(actual)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if !reflect.DeepEqual(got, want) {
		return &AssertionError{Type: "params", Expected: fmt.Sprint(expected), Actual: fmt.Sprint(actual)}
	}
	return nil
}

// checkRecords requires the same number of records and a subset match of
// each expected record against the record at the same position.
func checkRecords(actual []query.Record, expected []map[string]any) error {
	if len(actual) != len(expected) {
		return &AssertionError{Type: "records",
			Expected: fmt.Sprintf("%d records", len(expected)),
			Actual:   fmt.Sprintf("%d records: %v", len(actual), actual)}
	}

	for i, want := range expected {
		if !matchRecord(actual[i], want) {
			return &AssertionError{Type: "records",
				Expected: fmt.Sprintf("record %d to contain %v", i, want),
				Actual:   fmt.Sprint(actual[i])}
		}
	}
	return nil
}

// matchRecord checks if actual contains all expected fields (subset match).
// A YAML null matches ir.Null and a missing field never matches.
func matchRecord(actual query.Record, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		want, err := ir.FromAny(expectedVal)
		if err != nil {
			return false
		}
		if !valuesEqual(actualVal, want) {
			return false
		}
	}
	// Extra keys in actual are OK (subset match)
	return true
}

// valuesEqual compares two values for equality.
func valuesEqual(actual, expected ir.Value) bool {
	if ir.IsNull(actual) || ir.IsNull(expected) {
		return ir.IsNull(actual) && ir.IsNull(expected)
	}
	return reflect.DeepEqual(actual, expected)
}
