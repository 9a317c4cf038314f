package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUserSchema declares:
//
//	users (primary) <- profiles (LEFT, renamed) <- countries
//	users <- ratings (extra)
func newUserSchema(t *testing.T) *Schema {
	t.Helper()

	s := New()
	s.RegisterTable("users", TableDecl{})
	s.RegisterTable("profiles", TableDecl{
		Name:       Ptr("user_profiles"),
		Join:       &JoinDecl{On: "profiles.user_id = users.id", Type: "left"},
		Dependency: Dependency{"id"},
	})
	s.RegisterTable("countries", TableDecl{
		Join:       &JoinDecl{On: "countries.id = profiles.country_id"},
		Dependency: Dependency{"country_id"},
	})
	s.RegisterTable("ratings", TableDecl{
		IsExtra:    Ptr(true),
		Dependency: Dependency{"id"},
	})

	s.RegisterField("id", FieldDecl{})
	s.RegisterField("name", FieldDecl{})
	s.RegisterField("email", FieldDecl{AccessLevel: Ptr(5)})
	s.RegisterField("country_id", FieldDecl{Table: Ptr("profiles")})
	s.RegisterField("bio", FieldDecl{Table: Ptr("profiles"), Name: Ptr("biography")})
	s.RegisterField("country_name", FieldDecl{Table: Ptr("countries"), Name: Ptr("name")})
	s.RegisterField("rating", FieldDecl{Table: Ptr("ratings"), FilterDisabled: Ptr(false)})
	return s
}

func TestSchema_PrimaryTable(t *testing.T) {
	s := newUserSchema(t)

	assert.Equal(t, "users", s.PrimaryTable())
	assert.Equal(t, []string{"users", "profiles", "countries", "ratings"}, s.Tables())
	assert.Equal(t, []string{"id", "name", "email", "country_id", "bio", "country_name", "rating"}, s.Fields())

	users, err := s.TableConfig("users")
	require.NoError(t, err)
	assert.True(t, users.IsPrimary)
	assert.False(t, users.IsExtra)
	assert.Nil(t, users.Join)
	assert.Equal(t, "users", users.SQL)
	assert.Equal(t, "users", users.Ref)
}

func TestSchema_EmptySchema(t *testing.T) {
	s := New()
	assert.Equal(t, "", s.PrimaryTable())
	assert.Empty(t, s.Tables())

	_, err := s.TableConfig("users")
	assert.True(t, IsNotFound(err))
}

func TestSchema_PrimaryIgnoresExtraFlag(t *testing.T) {
	s := New()
	s.RegisterTable("users", TableDecl{IsExtra: Ptr(true)})

	users, err := s.TableConfig("users")
	require.NoError(t, err)
	assert.False(t, users.IsExtra)
}

func TestSchema_RenamedJoinedTable(t *testing.T) {
	s := newUserSchema(t)

	profiles, err := s.TableConfig("profiles")
	require.NoError(t, err)
	assert.Equal(t, "user_profiles", profiles.Name)
	assert.Equal(t, "profiles", profiles.Alias)
	assert.Equal(t, "user_profiles AS profiles", profiles.SQL)
	assert.Equal(t, "profiles", profiles.Ref)
	require.NotNil(t, profiles.Join)
	assert.Equal(t, JoinLeft, profiles.Join.Type)
	assert.Equal(t, "LEFT JOIN user_profiles AS profiles ON profiles.user_id = users.id", profiles.JoinSQL())
	assert.Equal(t, "id", profiles.ParentField())
}

func TestSchema_DefaultJoinType(t *testing.T) {
	s := newUserSchema(t)

	countries, err := s.TableConfig("countries")
	require.NoError(t, err)
	assert.Equal(t, JoinInner, countries.Join.Type)
	assert.Equal(t, "INNER JOIN countries ON countries.id = profiles.country_id", countries.JoinSQL())
}

func TestSchema_JoinTypeNormalization(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"inner", JoinInner},
		{"Left", JoinLeft},
		{"right", JoinRight},
		{"outer", JoinOuter},
		{"left   outer", JoinLeftOuter},
		{" RIGHT OUTER ", JoinRightOuter},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := New()
			s.RegisterTable("a", TableDecl{})
			s.RegisterField("a_id", FieldDecl{})
			s.RegisterTable("b", TableDecl{Join: &JoinDecl{On: "b.a_id = a.a_id", Type: tt.input}, Dependency: Dependency{"a_id"}})

			b, err := s.TableConfig("b")
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Join.Type)
		})
	}
}

func TestSchema_ExtraTable(t *testing.T) {
	s := newUserSchema(t)

	ratings, err := s.TableConfig("ratings")
	require.NoError(t, err)
	assert.True(t, ratings.IsExtra)
	assert.Nil(t, ratings.Join)
	assert.True(t, ratings.FilterDisabled)
	assert.True(t, ratings.OrderDisabled)
	assert.Equal(t, []string{"id"}, ratings.Dependency)

	rating, err := s.FieldConfig("rating")
	require.NoError(t, err)
	assert.True(t, rating.IsExtra)
	assert.True(t, rating.FilterDisabled, "extra fields are never filterable, even when overridden")
	assert.True(t, rating.OrderDisabled)
	assert.False(t, rating.ReadDisabled)
}

func TestSchema_ExtraTableKeepsPhysicalName(t *testing.T) {
	s := New()
	s.RegisterTable("users", TableDecl{})
	s.RegisterField("id", FieldDecl{})
	s.RegisterTable("stats", TableDecl{Name: Ptr("user_stats"), IsExtra: Ptr(true), Dependency: Dependency{"id"}})
	s.RegisterField("visits", FieldDecl{Table: Ptr("stats")})

	stats, err := s.TableConfig("stats")
	require.NoError(t, err)
	assert.Equal(t, "user_stats", stats.Ref)

	visits, err := s.FieldConfig("visits")
	require.NoError(t, err)
	assert.Equal(t, "user_stats.visits", visits.SQL)
}

func TestSchema_FieldSQL(t *testing.T) {
	s := newUserSchema(t)

	tests := []struct {
		key       string
		table     string
		sql       string
		selectSQL string
	}{
		{"id", "users", "users.id", "users.id"},
		{"country_id", "profiles", "profiles.country_id", "profiles.country_id"},
		{"bio", "profiles", "profiles.biography", "profiles.biography AS bio"},
		{"country_name", "countries", "countries.name", "countries.name AS country_name"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg, err := s.FieldConfig(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.table, cfg.Table)
			assert.Equal(t, tt.sql, cfg.SQL)
			assert.Equal(t, tt.selectSQL, cfg.SelectSQL)
		})
	}
}

func TestSchema_FieldInheritsTableFlags(t *testing.T) {
	s := New()
	s.RegisterTable("users", TableDecl{AccessLevel: Ptr(2), OrderDisabled: Ptr(true)})
	s.RegisterField("id", FieldDecl{})
	s.RegisterField("name", FieldDecl{AccessLevel: Ptr(0), OrderDisabled: Ptr(false)})

	id, err := s.FieldConfig("id")
	require.NoError(t, err)
	assert.Equal(t, 2, id.AccessLevel)
	assert.True(t, id.OrderDisabled)

	name, err := s.FieldConfig("name")
	require.NoError(t, err)
	assert.Equal(t, 0, name.AccessLevel)
	assert.False(t, name.OrderDisabled)
}

func TestSchema_AccessDeniedTracksLevel(t *testing.T) {
	s := newUserSchema(t)

	email, err := s.FieldConfig("email")
	require.NoError(t, err)
	assert.True(t, email.AccessDenied)

	s.SetAccessLevel(5)
	email, err = s.FieldConfig("email")
	require.NoError(t, err)
	assert.False(t, email.AccessDenied, "level change must apply without rebuild")

	s.SetAccessLevel(4)
	email, err = s.FieldConfig("email")
	require.NoError(t, err)
	assert.True(t, email.AccessDenied)
}

func TestSchema_RegisterMergesAndInvalidates(t *testing.T) {
	s := newUserSchema(t)

	name, err := s.FieldConfig("name")
	require.NoError(t, err)
	assert.Equal(t, "users.name", name.SQL)

	s.RegisterField("name", FieldDecl{Name: Ptr("full_name")})
	name, err = s.FieldConfig("name")
	require.NoError(t, err)
	assert.Equal(t, "users.full_name AS name", name.SelectSQL)

	s.RegisterField("name", FieldDecl{ReadDisabled: Ptr(true)})
	name, err = s.FieldConfig("name")
	require.NoError(t, err)
	assert.Equal(t, "users.full_name AS name", name.SelectSQL, "earlier pieces survive a merge")
	assert.True(t, name.ReadDisabled)

	assert.Len(t, s.Fields(), 7, "re-registration keeps the key's position")
}

func TestSchema_TableReregistrationRebuildsOwnedFields(t *testing.T) {
	s := newUserSchema(t)

	bio, err := s.FieldConfig("bio")
	require.NoError(t, err)
	assert.Equal(t, "profiles.biography", bio.SQL)

	s.RegisterTable("profiles", TableDecl{ReadDisabled: Ptr(true)})
	bio, err = s.FieldConfig("bio")
	require.NoError(t, err)
	assert.True(t, bio.ReadDisabled)
}

func TestSchema_KeysAreNormalized(t *testing.T) {
	s := New()
	s.RegisterTable("café", TableDecl{})
	s.RegisterField(" id ", FieldDecl{Table: Ptr("café")})

	assert.True(t, s.HasTable("café"))
	assert.True(t, s.HasField("id"))

	id, err := s.FieldConfig("id")
	require.NoError(t, err)
	assert.Equal(t, "café", id.Table)
}

func TestSchema_Reset(t *testing.T) {
	s := newUserSchema(t)
	s.SetAccessLevel(3)

	s.Reset()

	assert.Empty(t, s.Tables())
	assert.Empty(t, s.Fields())
	assert.Equal(t, 3, s.AccessLevel())
	_, err := s.FieldConfig("id")
	assert.True(t, IsNotFound(err))
}
