package querysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/queryir"
	"github.com/roach88/dqb/internal/schema"
	"github.com/roach88/dqb/internal/testutil"
)

func newCatalog(t *testing.T) *schema.Schema {
	t.Helper()
	return testutil.UserSchema(t)
}

func parseFilter(t *testing.T, src string) queryir.FilterNode {
	t.Helper()
	data, err := queryir.DecodeJSON([]byte(src))
	require.NoError(t, err)
	node, err := queryir.ParseFilter(data)
	require.NoError(t, err)
	return node
}

func parseFields(t *testing.T, spec string) queryir.FieldSpec {
	t.Helper()
	fs, err := queryir.ParseFieldSpec(spec)
	require.NoError(t, err)
	return fs
}
