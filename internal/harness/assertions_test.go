package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/query"
)

func count(n int64) *int64 { return &n }

func TestCheckStep_ExpectedError(t *testing.T) {
	failed := StepResult{Error: "E402", Message: "the field 'secret' is disabled for reading"}

	assert.Empty(t, checkStep(failed, Expect{Error: "E402"}))

	errs := checkStep(failed, Expect{Error: "E403"})
	require.Len(t, errs, 1)
	var ae *AssertionError
	require.ErrorAs(t, errs[0], &ae)
	assert.Equal(t, "error", ae.Type)
	assert.Equal(t, "E403", ae.Expected)
	assert.Contains(t, ae.Actual, "disabled for reading")

	errs = checkStep(StepResult{}, Expect{Error: "E403"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Actual: success")
}

func TestCheckStep_UnexpectedError(t *testing.T) {
	errs := checkStep(StepResult{Error: "E701", Message: "items per page too large"}, Expect{Count: count(1)})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Expected: success")
	assert.Contains(t, errs[0].Error(), "items per page too large")
}

func TestCheckStep_AllExpectations(t *testing.T) {
	sr := StepResult{
		SQL:    "SELECT users.id FROM users WHERE users.id = ? LIMIT 25",
		Params: []any{int64(4)},
		Count:  1,
		Records: []query.Record{
			{"id": ir.Int(4), "name": ir.String("dee")},
		},
	}

	ok := Expect{
		SQL:     sr.SQL,
		Params:  []any{4},
		Count:   count(1),
		Records: []map[string]any{{"id": 4}},
	}
	assert.Empty(t, checkStep(sr, ok))

	bad := Expect{
		SQL:     "SELECT 1",
		Params:  []any{"4"},
		Count:   count(2),
		Records: []map[string]any{{"name": "ann"}},
	}
	errs := checkStep(sr, bad)
	require.Len(t, errs, 4)

	var types []string
	for _, err := range errs {
		var ae *AssertionError
		require.ErrorAs(t, err, &ae)
		types = append(types, ae.Type)
	}
	assert.Equal(t, []string{"sql", "params", "count", "records"}, types)
}

func TestCheckRecords(t *testing.T) {
	actual := []query.Record{
		{"name": ir.String("ann"), "rating": ir.Float(4.5), "badge": ir.String("gold")},
		{"name": ir.String("bob"), "rating": ir.Float(3), "badge": ir.Null{}},
	}

	tests := []struct {
		name     string
		expected []map[string]any
		wantErr  string
	}{
		{
			name:     "subset match",
			expected: []map[string]any{{"name": "ann"}, {"badge": nil}},
		},
		{
			name:     "float values",
			expected: []map[string]any{{"rating": 4.5}, {"rating": 3.0}},
		},
		{
			name:     "length mismatch",
			expected: []map[string]any{{"name": "ann"}},
			wantErr:  "1 records",
		},
		{
			name:     "missing field",
			expected: []map[string]any{{"name": "ann"}, {"email": nil}},
			wantErr:  "record 1 to contain",
		},
		{
			name:     "null against value",
			expected: []map[string]any{{"badge": nil}, {"name": "bob"}},
			wantErr:  "record 0 to contain",
		},
		{
			name:     "wrong order",
			expected: []map[string]any{{"name": "bob"}, {"name": "ann"}},
			wantErr:  "record 0 to contain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRecords(actual, tt.expected)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(ir.Null{}, ir.Null{}))
	assert.True(t, valuesEqual(ir.Int(1), ir.Int(1)))
	assert.False(t, valuesEqual(ir.Null{}, ir.Int(1)))
	assert.False(t, valuesEqual(ir.String("1"), ir.Int(1)))
}
