package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillerTables(t *testing.T) {
	tests := []struct {
		name    string
		touched []string
		want    map[string]bool
	}{
		{"nothing touched", nil, map[string]bool{"users": true}},
		{"primary only", []string{"users"}, map[string]bool{"users": true}},
		{"direct child", []string{"profiles"}, map[string]bool{"users": true, "profiles": true}},
		{"grandchild pulls parent", []string{"countries"}, map[string]bool{"users": true, "profiles": true, "countries": true}},
		{"duplicates", []string{"countries", "profiles", "countries"}, map[string]bool{"users": true, "profiles": true, "countries": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newUserSchema(t)

			got, err := s.FillerTables(tt.touched)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFillerTables_RejectsExtra(t *testing.T) {
	s := newUserSchema(t)

	_, err := s.FillerTables([]string{"profiles", "ratings"})
	require.Error(t, err)

	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeExtraJoin, re.Code)
	assert.Equal(t, "ratings", re.Key)
	assert.False(t, IsNotFound(err))
}

func TestFillerTables_UnknownTable(t *testing.T) {
	s := newUserSchema(t)

	_, err := s.FillerTables([]string{"ghosts"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsResolutionError(err))
}

func TestFillerTables_EmptySchema(t *testing.T) {
	_, err := New().FillerTables(nil)
	assert.True(t, IsResolutionError(err))
}

func TestJoinTables_RegistrationOrder(t *testing.T) {
	s := newUserSchema(t)

	// Touch order is reversed relative to registration order.
	joins, err := s.JoinTables([]string{"countries", "profiles", "users"})
	require.NoError(t, err)
	require.Len(t, joins, 2)
	assert.Equal(t, "profiles", joins[0].Key)
	assert.Equal(t, "countries", joins[1].Key)
}

func TestJoinTables_PrimaryOnly(t *testing.T) {
	s := newUserSchema(t)

	joins, err := s.JoinTables([]string{"users"})
	require.NoError(t, err)
	assert.Empty(t, joins)
}
