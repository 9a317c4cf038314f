package querysql

import (
	"fmt"
	"math"
	"strconv"
)

// Page is a compiled LIMIT clause.
type Page struct {
	Page         int
	ItemsPerPage int
	Offset       int
	Limit        int

	// SQL is "limit" on the first page and "offset, limit" after it.
	SQL string
}

// Paginate computes offset and limit. A non-positive page means 1 and a
// non-positive itemsPerPage means the default; an itemsPerPage above the
// ceiling is an error, never clamped. So is a page whose offset overflows int.
func Paginate(page, itemsPerPage int, limits Limits) (Page, error) {
	limits = limits.WithDefaults()
	if page <= 0 {
		page = 1
	}
	if itemsPerPage <= 0 {
		itemsPerPage = limits.DefaultItemsPerPage
	}
	if itemsPerPage > limits.MaxItemsPerPage {
		return Page{}, &PaginationError{Code: ErrCodeItemsPerPage,
			Message: fmt.Sprintf("the number of items per page cannot be greater than %d", limits.MaxItemsPerPage)}
	}

	if itemsPerPage > 0 && page-1 > math.MaxInt/itemsPerPage {
		return Page{}, &PaginationError{Code: ErrCodePageRange,
			Message: fmt.Sprintf("page %d is out of range for %d items per page", page, itemsPerPage)}
	}

	p := Page{
		Page:         page,
		ItemsPerPage: itemsPerPage,
		Offset:       (page - 1) * itemsPerPage,
		Limit:        itemsPerPage,
	}
	if p.Offset == 0 {
		p.SQL = strconv.Itoa(p.Limit)
	} else {
		p.SQL = strconv.Itoa(p.Offset) + ", " + strconv.Itoa(p.Limit)
	}
	return p, nil
}
