package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/schema"
	"github.com/roach88/dqb/internal/testutil"
)

// staticSource returns fixed rows and records what it was asked for.
type staticSource struct {
	rows   []Record
	err    error
	calls  int
	fields []string
	table  schema.TableConfig
	seen   []Record
}

func (s *staticSource) Fetch(_ context.Context, records []Record, fields []string, table schema.TableConfig) ([]Record, error) {
	s.calls++
	s.fields = fields
	s.table = table
	s.seen = records
	return s.rows, s.err
}

func orderSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New()
	s.RegisterTable("orders", schema.TableDecl{})
	s.RegisterTable("accounts", schema.TableDecl{IsExtra: schema.Ptr(true), Dependency: schema.Dependency{"user_id"}})
	s.RegisterField("id", schema.FieldDecl{})
	s.RegisterField("user_id", schema.FieldDecl{})
	s.RegisterField("username", schema.FieldDecl{Table: schema.Ptr("accounts")})
	_, err := s.Build()
	require.NoError(t, err)
	return s
}

func TestMergeExtraFields_CorrelatesByKey(t *testing.T) {
	src := &staticSource{rows: []Record{{"user_id": ir.Int(10), "username": ir.String("ann")}}}
	b := New(orderSchema(t), WithLogger(testutil.DiscardLogger()), WithExtraSource("accounts", src))
	require.NoError(t, b.Prepare(Request{Fields: "id,user_id,username"}))

	records := []Record{
		{"id": ir.Int(1), "user_id": ir.Int(10)},
		{"id": ir.Int(2), "user_id": ir.Int(20)},
	}
	out, err := b.MergeExtraFields(context.Background(), records, false)
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{"id": ir.Int(1), "user_id": ir.Int(10), "username": ir.String("ann")},
		{"id": ir.Int(2), "user_id": ir.Int(20), "username": ir.Null{}},
	}, out)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []string{"username"}, src.fields)
	assert.Equal(t, "accounts", src.table.Key)
	assert.Len(t, src.seen, 2)

	_, touched := records[0]["username"]
	assert.False(t, touched, "input records are left alone")
}

func TestMergeExtraFields_StripsDependencies(t *testing.T) {
	src := &staticSource{rows: []Record{{"user_id": ir.String("10"), "username": ir.String("ann")}}}
	b := New(orderSchema(t), WithLogger(testutil.DiscardLogger()), WithExtraSource("accounts", src))
	require.NoError(t, b.Prepare(Request{Fields: "id,username"}))

	// user_id was only selected to correlate accounts.
	assert.Equal(t, "orders.id, orders.user_id", b.Selection().SQL)

	out, err := b.MergeExtraFields(context.Background(), []Record{{"id": ir.Int(1), "user_id": ir.Int(10)}}, true)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"id": ir.Int(1), "username": ir.String("ann")}}, out)
}

func TestMergeExtraFields_ChainedExtras(t *testing.T) {
	var order []string
	ratings := ExtraSourceFunc(func(_ context.Context, records []Record, fields []string, table schema.TableConfig) ([]Record, error) {
		order = append(order, table.Key)
		assert.Equal(t, []string{"rating_id"}, fields)
		return []Record{
			{"id": ir.Int(1), "rating_id": ir.Int(100)},
			{"id": ir.String("2"), "rating_id": ir.Int(200)},
		}, nil
	})
	badges := ExtraSourceFunc(func(_ context.Context, records []Record, fields []string, table schema.TableConfig) ([]Record, error) {
		order = append(order, table.Key)
		assert.Equal(t, []string{"badge"}, fields)
		for _, r := range records {
			assert.Contains(t, r, "rating_id", "badges runs after ratings")
		}
		return []Record{{"rating_id": ir.Int(100), "badge": ir.String("gold")}}, nil
	})

	b := newBuilder(t, WithExtraSource("ratings", ratings), WithExtraSource("badges", badges))
	require.NoError(t, b.Prepare(Request{Fields: "name,badge"}))

	records := []Record{
		{"name": ir.String("a"), "id": ir.Int(1)},
		{"name": ir.String("b"), "id": ir.Int(2)},
		{"name": ir.String("c"), "id": ir.Int(3)},
	}

	full, err := b.MergeExtraFields(context.Background(), records, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ratings", "badges"}, order)
	assert.Equal(t, ir.Int(200), full[1]["rating_id"])
	assert.Equal(t, ir.Null{}, full[2]["rating_id"])

	stripped, err := b.StripFields(full)
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{"name": ir.String("a"), "badge": ir.String("gold")},
		{"name": ir.String("b"), "badge": ir.Null{}},
		{"name": ir.String("c"), "badge": ir.Null{}},
	}, stripped)
}

func TestMergeExtraFields_MissingSource(t *testing.T) {
	ratings := &staticSource{}
	b := newBuilder(t, WithExtraSource("ratings", ratings))
	require.NoError(t, b.Prepare(Request{Fields: "id,badge"}))

	_, err := b.MergeExtraFields(context.Background(), []Record{{"id": ir.Int(1)}}, false)

	var ue *UsageError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ErrCodeMissingSource, ue.Code)
	assert.Equal(t, "badges", ue.Table)
	assert.Zero(t, ratings.calls, "nothing is fetched when a source is missing")
}

func TestMergeExtraFields_FetchError(t *testing.T) {
	boom := errors.New("backend down")
	b := newBuilder(t, WithExtraSource("ratings", &staticSource{err: boom}))
	require.NoError(t, b.Prepare(Request{Fields: "rating"}))

	_, err := b.MergeExtraFields(context.Background(), []Record{{"id": ir.Int(1)}}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ratings")
}

func TestMergeExtraFields_NoRecords(t *testing.T) {
	src := &staticSource{}
	b := newBuilder(t, WithExtraSource("ratings", src))
	require.NoError(t, b.Prepare(Request{Fields: "rating"}))

	out, err := b.MergeExtraFields(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, src.calls)
}

func TestMergeExtraFields_NoExtraTables(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Prepare(Request{Fields: "id,name"}))

	records := []Record{{"id": ir.Int(1), "name": ir.String("a")}}
	out, err := b.MergeExtraFields(context.Background(), records, true)
	require.NoError(t, err)
	assert.Equal(t, records, out)
}

func TestMergeExtraFields_Cycle(t *testing.T) {
	s := schema.New()
	s.RegisterTable("users", schema.TableDecl{})
	s.RegisterTable("left", schema.TableDecl{IsExtra: schema.Ptr(true), Dependency: schema.Dependency{"right_key"}})
	s.RegisterTable("right", schema.TableDecl{IsExtra: schema.Ptr(true), Dependency: schema.Dependency{"left_key"}})
	s.RegisterField("id", schema.FieldDecl{})
	s.RegisterField("left_key", schema.FieldDecl{Table: schema.Ptr("left")})
	s.RegisterField("right_key", schema.FieldDecl{Table: schema.Ptr("right")})

	src := &staticSource{}
	b := New(s, WithLogger(testutil.DiscardLogger()), WithExtraSource("left", src), WithExtraSource("right", src))
	require.NoError(t, b.Prepare(Request{Fields: "id,left_key"}))

	_, err := b.MergeExtraFields(context.Background(), []Record{{"id": ir.Int(1)}}, false)

	var ue *UsageError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ErrCodeExtraCycle, ue.Code)
	assert.Zero(t, src.calls)
}

func TestStripFields(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Prepare(Request{Fields: "rating"}))

	in := []Record{{"id": ir.Int(1), "rating": ir.Float(4.5)}}
	out, err := b.StripFields(in)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"rating": ir.Float(4.5)}}, out)
	assert.Contains(t, in[0], "id")
}

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "1\x1fx", CompositeKey(Record{"a": ir.Int(1), "b": ir.String("x")}, []string{"a", "b"}))
	assert.Equal(t, CompositeKey(Record{"a": ir.Int(7)}, []string{"a"}), CompositeKey(Record{"a": ir.String("7")}, []string{"a"}))
	assert.Equal(t, "\x1f", CompositeKey(Record{}, []string{"a", "b"}))
}

func TestSetExtraSource(t *testing.T) {
	b := newBuilder(t)
	src := &staticSource{rows: []Record{{"id": ir.Int(1), "rating": ir.Int(5)}}}
	b.SetExtraSource("ratings", src)
	require.NoError(t, b.Prepare(Request{Fields: "id,rating"}))

	out, err := b.MergeExtraFields(context.Background(), []Record{{"id": ir.Int(1)}}, false)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(5), out[0]["rating"])
}
