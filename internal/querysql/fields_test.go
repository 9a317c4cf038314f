package querysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/queryir"
	"github.com/roach88/dqb/internal/schema"
)

func TestCompileFields_All(t *testing.T) {
	cat := newCatalog(t)

	sel, err := CompileFields(cat, parseFields(t, "*"))
	require.NoError(t, err)

	assert.Equal(t, queryir.ModeAll, sel.Mode)
	assert.Equal(t,
		"users.id, users.name, users.status, users.created_at, users.updated_at, users.internal_note, "+
			"profiles.country_id, profiles.biography AS bio, countries.name AS country_name",
		sel.SQL)
	assert.False(t, sel.Has("email"), "access denied fields are skipped")
	assert.False(t, sel.Has("secret"), "read disabled fields are skipped")
	assert.True(t, sel.Has("badge"))
	assert.Equal(t, []string{"users", "profiles", "countries"}, sel.MainTableKeys())
	assert.Empty(t, sel.DependencyOnly())
}

func TestCompileFields_AllWithAccess(t *testing.T) {
	cat := newCatalog(t)
	cat.SetAccessLevel(5)

	sel, err := CompileFields(cat, parseFields(t, ""))
	require.NoError(t, err)
	assert.True(t, sel.Has("email"))
	assert.Contains(t, sel.SQL, "users.email")
}

func TestCompileFields_Specification(t *testing.T) {
	cat := newCatalog(t)

	sel, err := CompileFields(cat, parseFields(t, "name, bio, name"))
	require.NoError(t, err)

	assert.Equal(t, queryir.ModeSpecification, sel.Mode)
	assert.Equal(t, "users.name, profiles.biography AS bio", sel.SQL)
	require.Len(t, sel.Fields, 2)
	assert.Equal(t, []string{"users", "profiles"}, sel.MainTableKeys())
	assert.Empty(t, sel.ExtraTables)
}

func TestCompileFields_ExtraChain(t *testing.T) {
	cat := newCatalog(t)

	sel, err := CompileFields(cat, parseFields(t, "name,badge"))
	require.NoError(t, err)

	// badges depends on ratings.rating_id, and ratings on users.id.
	assert.Equal(t, "users.name, users.id", sel.SQL)
	assert.Equal(t, []string{"rating_id", "id"}, sel.DependencyOnly())

	require.Len(t, sel.ExtraTables, 2)
	assert.Equal(t, "badges", sel.ExtraTables[0].Key)
	assert.True(t, sel.ExtraTables[0].InRequest)
	assert.Equal(t, "ratings", sel.ExtraTables[1].Key)
	assert.False(t, sel.ExtraTables[1].InRequest)
	assert.Equal(t, []string{"rating_id"}, sel.ExtraTables[1].Fields)

	badge, ok := sel.Field("badge")
	require.True(t, ok)
	assert.True(t, badge.IsExtra)
	assert.True(t, badge.InRequest)

	id, ok := sel.Field("id")
	require.True(t, ok)
	assert.False(t, id.InRequest)
}

func TestCompileFields_DependencyAlreadyRequested(t *testing.T) {
	cat := newCatalog(t)

	sel, err := CompileFields(cat, parseFields(t, "id,rating"))
	require.NoError(t, err)

	assert.Equal(t, "users.id", sel.SQL)
	assert.Empty(t, sel.DependencyOnly())
}

func TestCompileFields_Shortener(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []string
	}{
		{"suffix", "*_at", []string{"created_at", "updated_at"}},
		{"prefix", "country*", []string{"country_id", "country_name"}},
		{"infix", "c*_id", []string{"country_id"}},
		{"mixed with exact", "name,*_at", []string{"name", "created_at", "updated_at"}},
		{"overlapping tokens", "*_at,created*", []string{"created_at", "updated_at"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := CompileFields(newCatalog(t), parseFields(t, tt.spec))
			require.NoError(t, err)
			assert.Equal(t, queryir.ModeShortener, sel.Mode)

			var keys []string
			for _, f := range sel.Fields {
				keys = append(keys, f.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestCompileFields_Errors(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantCode ErrorCode
	}{
		{"unknown field", "nope", ErrCodeUnknownField},
		{"unknown exact in shortener mode", "nope,*_at", ErrCodeUnknownField},
		{"shortener without matches", "zzz*", ErrCodeNoMatches},
		{"read disabled", "secret", ErrCodeReadDisabled},
		{"access denied", "email", ErrCodeFieldForbidden},
		{"shortener hits denied field", "e*", ErrCodeFieldForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileFields(newCatalog(t), parseFields(t, tt.spec))
			require.Error(t, err)

			var fe *FieldError
			require.True(t, errors.As(err, &fe), "got %T: %v", err, err)
			assert.Equal(t, tt.wantCode, fe.Code)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestCompileFields_EmptySelection(t *testing.T) {
	s := schema.New()
	s.RegisterTable("users", schema.TableDecl{})
	s.RegisterField("id", schema.FieldDecl{AccessLevel: schema.Ptr(9)})

	_, err := CompileFields(s, queryir.FieldSpec{Mode: queryir.ModeAll})

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ErrCodeEmptySelection, fe.Code)
}

func TestCompileFields_OnlyExtraSelected(t *testing.T) {
	// Asking for an extra field alone still selects its correlation key.
	sel, err := CompileFields(newCatalog(t), parseFields(t, "rating"))
	require.NoError(t, err)
	assert.Equal(t, "users.id", sel.SQL)
	assert.Equal(t, []string{"id"}, sel.DependencyOnly())
}

func TestCompileFields_SchemaErrorsPassThrough(t *testing.T) {
	s := schema.New()
	s.RegisterTable("users", schema.TableDecl{})
	s.RegisterField("ghost", schema.FieldDecl{Table: schema.Ptr("missing")})

	_, err := CompileFields(s, parseFields(t, "ghost"))
	require.Error(t, err)
	assert.True(t, schema.IsBuildError(err))
	assert.False(t, IsClientError(err))
}
