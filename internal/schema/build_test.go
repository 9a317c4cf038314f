package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		decl TableDecl
		code BuildErrorCode
	}{
		{"empty custom name", TableDecl{Name: Ptr("  "), Join: &JoinDecl{On: "x"}, Dependency: Dependency{"id"}}, ErrCodeInvalidName},
		{"missing join", TableDecl{Dependency: Dependency{"id"}}, ErrCodeMissingJoin},
		{"empty join condition", TableDecl{Join: &JoinDecl{On: " "}, Dependency: Dependency{"id"}}, ErrCodeInvalidJoin},
		{"bad join type", TableDecl{Join: &JoinDecl{On: "b.id = a.id", Type: "CROSS"}, Dependency: Dependency{"id"}}, ErrCodeInvalidJoin},
		{"missing dependency", TableDecl{Join: &JoinDecl{On: "b.id = a.id"}}, ErrCodeMissingDependency},
		{"empty dependency entry", TableDecl{Join: &JoinDecl{On: "b.id = a.id"}, Dependency: Dependency{""}}, ErrCodeUnknownDependency},
		{"unknown dependency", TableDecl{Join: &JoinDecl{On: "b.id = a.id"}, Dependency: Dependency{"nope"}}, ErrCodeUnknownDependency},
		{"extra without dependency", TableDecl{IsExtra: Ptr(true)}, ErrCodeMissingDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.RegisterTable("a", TableDecl{})
			s.RegisterField("id", FieldDecl{})
			s.RegisterTable("b", tt.decl)

			_, err := s.TableConfig("b")
			require.Error(t, err)
			assert.True(t, IsBuildError(err))

			var be *BuildError
			require.True(t, errors.As(err, &be))
			assert.Equal(t, tt.code, be.Code)
			assert.Equal(t, "table", be.Kind)
			assert.Equal(t, "b", be.Key)
		})
	}
}

func TestBuildField_Errors(t *testing.T) {
	t.Run("no primary table", func(t *testing.T) {
		s := New()
		s.RegisterField("id", FieldDecl{})

		_, err := s.FieldConfig("id")
		var be *BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, ErrCodeNoPrimaryTable, be.Code)
	})

	t.Run("unknown owner", func(t *testing.T) {
		s := New()
		s.RegisterTable("users", TableDecl{})
		s.RegisterField("id", FieldDecl{Table: Ptr("ghosts")})

		_, err := s.FieldConfig("id")
		var be *BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, ErrCodeUnknownOwner, be.Code)
		assert.Equal(t, "field", be.Kind)
	})

	t.Run("empty custom name", func(t *testing.T) {
		s := New()
		s.RegisterTable("users", TableDecl{})
		s.RegisterField("id", FieldDecl{Name: Ptr("")})

		_, err := s.FieldConfig("id")
		var be *BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, ErrCodeInvalidName, be.Code)
	})

	t.Run("broken owner", func(t *testing.T) {
		s := New()
		s.RegisterTable("users", TableDecl{})
		s.RegisterTable("orders", TableDecl{})
		s.RegisterField("total", FieldDecl{Table: Ptr("orders")})

		_, err := s.FieldConfig("total")
		var be *BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, ErrCodeMissingJoin, be.Code, "owner build errors pass through")
		assert.Equal(t, "orders", be.Key)
	})
}

func TestBuildError_Message(t *testing.T) {
	err := tableError(ErrCodeMissingJoin, "orders", "missing 'join' configuration")
	assert.Equal(t, `E203: table "orders": missing 'join' configuration`, err.Error())
}

func TestBuild_CollectsAllErrors(t *testing.T) {
	s := New()
	s.RegisterTable("users", TableDecl{})
	s.RegisterTable("orders", TableDecl{Dependency: Dependency{"id"}})
	s.RegisterField("id", FieldDecl{})
	s.RegisterField("total", FieldDecl{Table: Ptr("ghosts")})

	snap, err := s.Build()
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "E203")
	assert.Contains(t, err.Error(), "E207")
	assert.True(t, IsBuildError(err))
}

func TestBuild_Snapshot(t *testing.T) {
	s := newUserSchema(t)
	s.SetAccessLevel(0)

	snap, err := s.Build()
	require.NoError(t, err)

	assert.Equal(t, "users", snap.Primary)
	assert.Equal(t, s.Tables(), snap.TableOrder)
	assert.Equal(t, s.Fields(), snap.FieldOrder)
	assert.Len(t, snap.Tables, 4)
	assert.Len(t, snap.Fields, 7)
	assert.False(t, snap.Fields["email"].AccessDenied, "snapshots never carry access state")
	assert.NotEmpty(t, snap.Fingerprint)
}

func TestFingerprint(t *testing.T) {
	a := newUserSchema(t)
	b := newUserSchema(t)

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
	assert.Len(t, fpA, 64)

	b.SetAccessLevel(9)
	fpB, err = b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB, "access level is not part of the declarations")

	b.RegisterField("name", FieldDecl{OrderDisabled: Ptr(true)})
	fpB, err = b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}
