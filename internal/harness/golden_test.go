package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/query"
)

// Golden files live in testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"users_by_country", "filtered_users"} {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Format(t *testing.T) {
	result := NewResult()
	result.Steps = []StepResult{
		{
			Name:      "ok",
			RequestID: "r-1",
			SQL:       "SELECT users.id FROM users LIMIT 25",
			Params:    []any{},
			Count:     1,
			Records:   []query.Record{{"name": ir.String("ann"), "id": ir.Int(1), "note": ir.Null{}}},
		},
		{Name: "bad", RequestID: "r-2", Error: "E401", Message: "the field 'x' does not exist"},
	}

	got, err := Snapshot("demo", result)
	require.NoError(t, err)
	assert.Equal(t, `scenario: demo

step 1: ok
request_id: r-1
sql: SELECT users.id FROM users LIMIT 25
params: []
count: 1
records:
  {"id":1,"name":"ann","note":null}

step 2: bad
request_id: r-2
error: E401
`, string(got))
}
