package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/schema"
)

// UserSchema declares the fixture used across package tests:
//
//	users (primary) <- profiles (LEFT, renamed user_profiles) <- countries
//	users <- ratings (extra, on id) <- badges (extra, on rating_id)
//
// email needs access level 5, secret is read-disabled and internal_note is
// neither filterable nor sortable. The schema is built before it is returned.
func UserSchema(t testing.TB) *schema.Schema {
	t.Helper()

	s := schema.New(schema.WithLogger(DiscardLogger()))
	s.RegisterTable("users", schema.TableDecl{})
	s.RegisterTable("profiles", schema.TableDecl{
		Name:       schema.Ptr("user_profiles"),
		Join:       &schema.JoinDecl{On: "profiles.user_id = users.id", Type: "LEFT"},
		Dependency: schema.Dependency{"id"},
	})
	s.RegisterTable("countries", schema.TableDecl{
		Join:       &schema.JoinDecl{On: "countries.id = profiles.country_id"},
		Dependency: schema.Dependency{"country_id"},
	})
	s.RegisterTable("ratings", schema.TableDecl{IsExtra: schema.Ptr(true), Dependency: schema.Dependency{"id"}})
	s.RegisterTable("badges", schema.TableDecl{IsExtra: schema.Ptr(true), Dependency: schema.Dependency{"rating_id"}})

	s.RegisterField("id", schema.FieldDecl{})
	s.RegisterField("name", schema.FieldDecl{})
	s.RegisterField("email", schema.FieldDecl{AccessLevel: schema.Ptr(5)})
	s.RegisterField("status", schema.FieldDecl{})
	s.RegisterField("secret", schema.FieldDecl{ReadDisabled: schema.Ptr(true)})
	s.RegisterField("created_at", schema.FieldDecl{})
	s.RegisterField("updated_at", schema.FieldDecl{})
	s.RegisterField("internal_note", schema.FieldDecl{FilterDisabled: schema.Ptr(true), OrderDisabled: schema.Ptr(true)})
	s.RegisterField("country_id", schema.FieldDecl{Table: schema.Ptr("profiles")})
	s.RegisterField("bio", schema.FieldDecl{Table: schema.Ptr("profiles"), Name: schema.Ptr("biography")})
	s.RegisterField("country_name", schema.FieldDecl{Table: schema.Ptr("countries"), Name: schema.Ptr("name")})
	s.RegisterField("rating", schema.FieldDecl{Table: schema.Ptr("ratings")})
	s.RegisterField("rating_id", schema.FieldDecl{Table: schema.Ptr("ratings")})
	s.RegisterField("badge", schema.FieldDecl{Table: schema.Ptr("badges")})

	_, err := s.Build()
	require.NoError(t, err)
	return s
}
