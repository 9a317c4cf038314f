package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/schema"
	"github.com/roach88/dqb/internal/testutil"
)

func declare(c schema.Cache) *schema.Schema {
	s := schema.New(schema.WithLogger(testutil.DiscardLogger()), schema.WithCache(c, "users", time.Hour))
	s.RegisterTable("users", schema.TableDecl{})
	s.RegisterTable("profiles", schema.TableDecl{
		Join:       &schema.JoinDecl{On: "profiles.user_id = users.id"},
		Dependency: schema.Dependency{"id"},
	})
	s.RegisterField("id", schema.FieldDecl{})
	s.RegisterField("bio", schema.FieldDecl{Table: schema.Ptr("profiles")})
	return s
}

func TestWarm_RoundTripsThroughCaches(t *testing.T) {
	ctx := context.Background()
	sqlCache, _ := newSQLCache(t)

	caches := map[string]schema.Cache{
		"memory": newMemory(t, 0),
		"sql":    sqlCache,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			first := declare(c)
			require.NoError(t, first.Warm(ctx))

			fp, err := first.Fingerprint()
			require.NoError(t, err)
			_, ok, err := c.Get(ctx, "users:"+fp[:16])
			require.NoError(t, err)
			require.True(t, ok, "warm-up saves the snapshot")

			second := declare(c)
			require.NoError(t, second.Warm(ctx))

			bio, err := second.FieldConfig("bio")
			require.NoError(t, err)
			assert.Equal(t, "profiles.bio", bio.SQL)
		})
	}
}
