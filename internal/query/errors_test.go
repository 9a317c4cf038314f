package query

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/dqb/internal/querysql"
	"github.com/roach88/dqb/internal/schema"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&querysql.FieldError{Code: querysql.ErrCodeUnknownField}, "E401"},
		{fmt.Errorf("prepare: %w", &querysql.PaginationError{Code: querysql.ErrCodeItemsPerPage}), "E701"},
		{errNotPrepared, "E801"},
		{&UsageError{Code: ErrCodeMissingSource, Table: "ratings"}, "E802"},
		{&schema.BuildError{Code: schema.ErrCodeMissingJoin}, "E203"},
		{&schema.ResolutionError{Code: schema.ErrCodeUnknownTable}, "E301"},
		{errors.New("db down"), ""},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}

func TestUsageError_Message(t *testing.T) {
	err := &UsageError{Code: ErrCodeMissingSource, Table: "ratings", Message: "no extra source registered"}
	assert.Equal(t, "E802: no extra source registered (table=ratings)", err.Error())
	assert.Equal(t, "E801: the request must be prepared before building SQL", errNotPrepared.Error())
}
