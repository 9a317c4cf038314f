package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dqb/internal/ir"
)

// Snapshot renders a result as stable text: per step the request id,
// the statement and its parameters, the count and one JSON object per
// record with sorted keys. Failed steps show their error code only.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", scenarioName)

	for i, step := range result.Steps {
		fmt.Fprintf(&buf, "\nstep %d: %s\n", i+1, step.Name)
		fmt.Fprintf(&buf, "request_id: %s\n", step.RequestID)
		if step.Error != "" {
			fmt.Fprintf(&buf, "error: %s\n", step.Error)
			continue
		}

		params, err := json.Marshal(step.Params)
		if err != nil {
			return nil, fmt.Errorf("step %d params: %w", i+1, err)
		}
		fmt.Fprintf(&buf, "sql: %s\n", step.SQL)
		fmt.Fprintf(&buf, "params: %s\n", params)
		fmt.Fprintf(&buf, "count: %d\n", step.Count)
		fmt.Fprintf(&buf, "records:\n")
		for _, record := range step.Records {
			row := make(map[string]any, len(record))
			for k, v := range record {
				row[k] = ir.Native(v)
			}
			line, err := json.Marshal(row)
			if err != nil {
				return nil, fmt.Errorf("step %d record: %w", i+1, err)
			}
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
