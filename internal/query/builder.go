package query

import (
	"io"
	"log/slog"

	"github.com/roach88/dqb/internal/queryir"
	"github.com/roach88/dqb/internal/querysql"
	"github.com/roach88/dqb/internal/schema"
)

// Schema is the schema view a Builder needs. *schema.Schema implements it.
type Schema interface {
	querysql.Catalog
	PrimaryTable() string
	JoinTables(touched []string) ([]schema.TableConfig, error)
}

var _ Schema = (*schema.Schema)(nil)

// Request is one client request.
//
// Filter and DefaultFilter accept loosely typed data (queryir.Map, decoded
// JSON or YAML) or a prebuilt queryir.FilterNode. Order accepts a
// "field:DIR,..." string, loosely typed data or []queryir.OrderEntry.
// A nil Filter, DefaultFilter or Order is omitted from the statement.
type Request struct {
	Fields        string
	Filter        any
	DefaultFilter any
	Order         any
	Page          int
	ItemsPerPage  int
}

// Builder compiles and renders one request at a time.
type Builder struct {
	schema  Schema
	limits  querysql.Limits
	logger  *slog.Logger
	ids     IDGenerator
	sources map[string]ExtraSource

	state *prepared
}

// prepared is the compiled output of one successful Prepare.
type prepared struct {
	id     string
	fields *querysql.FieldSelection
	filter *querysql.FilterResult
	order  *querysql.OrderResult
	page   querysql.Page
}

// Option configures a Builder.
type Option func(*Builder)

// WithLimits sets the compiler limits. Zero fields take their defaults.
func WithLimits(limits querysql.Limits) Option {
	return func(b *Builder) {
		b.limits = limits.WithDefaults()
	}
}

// WithLogger sets the logger used for prepare and merge events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithIDGenerator replaces the UUIDv7 request id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(b *Builder) {
		b.ids = gen
	}
}

// WithExtraSource binds the data source of an extra table.
func WithExtraSource(table string, src ExtraSource) Option {
	return func(b *Builder) {
		b.sources[table] = src
	}
}

// New creates a Builder over s.
func New(s Schema, opts ...Option) *Builder {
	b := &Builder{
		schema:  s,
		limits:  querysql.DefaultLimits(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:     UUIDv7Generator{},
		sources: make(map[string]ExtraSource),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetExtraSource binds or replaces the data source of an extra table.
func (b *Builder) SetExtraSource(table string, src ExtraSource) {
	b.sources[table] = src
}

// Prepare compiles req. On success it replaces all previously held state;
// on failure the previous state is kept unchanged.
//
// Malformed request data is reported with the compile error types of
// package querysql, so callers classify every request fault with
// querysql.IsClientError.
func (b *Builder) Prepare(req Request) error {
	next := &prepared{id: b.ids.Generate()}
	log := b.logger.With("request_id", next.id)

	spec, err := queryir.ParseFieldSpec(req.Fields)
	if err != nil {
		return querysql.FromParseError(err)
	}
	if next.fields, err = querysql.CompileFields(b.schema, spec); err != nil {
		return err
	}

	client, err := filterNode(req.Filter)
	if err != nil {
		return querysql.FromParseError(err)
	}
	defaults, err := filterNode(req.DefaultFilter)
	if err != nil {
		return querysql.FromParseError(err)
	}
	if next.filter, err = querysql.CompileFilters(b.schema, defaults, client, b.limits); err != nil {
		return err
	}

	if req.Order != nil {
		entries, err := orderEntries(req.Order)
		if err != nil {
			return querysql.FromParseError(err)
		}
		if next.order, err = querysql.CompileOrder(b.schema, entries, b.limits); err != nil {
			return err
		}
	}

	if next.page, err = querysql.Paginate(req.Page, req.ItemsPerPage, b.limits); err != nil {
		return err
	}

	b.state = next

	attrs := []any{
		"mode", string(next.fields.Mode),
		"fields", len(next.fields.Fields),
		"extra_tables", len(next.fields.ExtraTables),
		"page", next.page.Page,
	}
	if next.filter != nil {
		attrs = append(attrs, "predicates", next.filter.Predicates, "params", len(next.filter.Params))
	}
	log.Debug("prepared request", attrs...)
	return nil
}

func filterNode(data any) (queryir.FilterNode, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case queryir.FilterNode:
		return v, nil
	default:
		return queryir.ParseFilter(v)
	}
}

func orderEntries(data any) ([]queryir.OrderEntry, error) {
	if entries, ok := data.([]queryir.OrderEntry); ok {
		return entries, nil
	}
	return queryir.ParseOrder(data)
}

// Prepared reports whether Prepare has succeeded at least once.
func (b *Builder) Prepared() bool {
	return b.state != nil
}

// RequestID returns the id of the prepared request, or "" before Prepare.
func (b *Builder) RequestID() string {
	if b.state == nil {
		return ""
	}
	return b.state.id
}

// Selection returns the compiled field selection, or nil before Prepare.
func (b *Builder) Selection() *querysql.FieldSelection {
	if b.state == nil {
		return nil
	}
	return b.state.fields
}

// Page returns the compiled pagination and whether the Builder is prepared.
func (b *Builder) Page() (querysql.Page, bool) {
	if b.state == nil {
		return querysql.Page{}, false
	}
	return b.state.page, true
}
