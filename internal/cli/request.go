package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/roach88/dqb/internal/query"
	"github.com/roach88/dqb/internal/queryir"
)

// requestFlags is the command-line form of query.Request. Filters are JSON;
// the order is either JSON or a "field:DIR,..." string.
type requestFlags struct {
	Fields        string
	Filter        string
	DefaultFilter string
	Order         string
	Page          int
	ItemsPerPage  int
}

func (r *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&r.Fields, "fields", "", `fields to select: "*", "a,b" or shorteners like "user_*"`)
	fs.StringVar(&r.Filter, "filter", "", `client filter as JSON, e.g. '["status", "active"]'`)
	fs.StringVar(&r.DefaultFilter, "default-filter", "", "server-side filter as JSON, ANDed in front of --filter")
	fs.StringVar(&r.Order, "order", "", `order as "field:DIR,..." or JSON`)
	fs.IntVar(&r.Page, "page", 0, "page number (1-based)")
	fs.IntVar(&r.ItemsPerPage, "items-per-page", 0, "page size (0 uses the configured default)")
}

// Request decodes the flags. JSON objects keep their key order.
func (r *requestFlags) Request() (query.Request, error) {
	req := query.Request{
		Fields:       r.Fields,
		Page:         r.Page,
		ItemsPerPage: r.ItemsPerPage,
	}

	var err error
	if req.Filter, err = decodeFlag("filter", r.Filter); err != nil {
		return query.Request{}, err
	}
	if req.DefaultFilter, err = decodeFlag("default-filter", r.DefaultFilter); err != nil {
		return query.Request{}, err
	}

	order := strings.TrimSpace(r.Order)
	switch {
	case order == "":
	case strings.HasPrefix(order, "[") || strings.HasPrefix(order, "{"):
		if req.Order, err = decodeFlag("order", order); err != nil {
			return query.Request{}, err
		}
	default:
		req.Order = order
	}
	return req, nil
}

func decodeFlag(name, value string) (any, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	v, err := queryir.DecodeJSON([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("--%s is not valid JSON: %w", name, err)
	}
	return v, nil
}
