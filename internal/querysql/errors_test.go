package querysql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dqb/internal/queryir"
)

func TestFromParseError(t *testing.T) {
	_, err := queryir.ParseFilter([]any{"id", 1, "~"})
	require.Error(t, err)

	converted := FromParseError(fmt.Errorf("filter: %w", err))
	var fe *FilterError
	require.True(t, errors.As(converted, &fe))
	assert.Equal(t, ErrCodeMalformedFilter, fe.Code)
	assert.Equal(t, "root", fe.Path)

	_, err = queryir.ParseOrderString("id:up")
	var oe *OrderError
	require.True(t, errors.As(FromParseError(err), &oe))
	assert.Equal(t, ErrCodeMalformedOrder, oe.Code)

	_, err = queryir.ParseFieldSpec("a**")
	var fieldErr *FieldError
	require.True(t, errors.As(FromParseError(err), &fieldErr))
	assert.Equal(t, ErrCodeMalformedFields, fieldErr.Code)

	plain := errors.New("boom")
	assert.Same(t, plain, FromParseError(plain))
}

func TestIsClientError(t *testing.T) {
	_, parseErr := queryir.ParseOrderString("id:up")

	assert.True(t, IsClientError(parseErr))
	assert.True(t, IsClientError(&PaginationError{Code: ErrCodeItemsPerPage}))
	assert.True(t, IsClientError(fmt.Errorf("wrapped: %w", &FieldError{Code: ErrCodeUnknownField})))
	assert.False(t, IsClientError(errors.New("db down")))
	assert.False(t, IsClientError(nil))
}

func TestIsFilterLimit(t *testing.T) {
	err := fmt.Errorf("compile: %w", &FilterError{Code: ErrCodeFilterLimit, Limit: LimitRecursion})
	assert.True(t, IsFilterLimit(err, LimitRecursion))
	assert.False(t, IsFilterLimit(err, LimitPredicates))
	assert.False(t, IsFilterLimit(&FilterError{Code: ErrCodeUnknownFilter}, LimitRecursion))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		code ErrorCode
	}{
		{&FieldError{Code: ErrCodeReadDisabled}, ErrCodeReadDisabled},
		{fmt.Errorf("prepare: %w", &FilterError{Code: ErrCodeUnknownFilter}), ErrCodeUnknownFilter},
		{&OrderError{Code: ErrCodeOrderLimit}, ErrCodeOrderLimit},
		{&PaginationError{Code: ErrCodeItemsPerPage}, ErrCodeItemsPerPage},
	}
	for _, tt := range tests {
		code, ok := CodeOf(tt.err)
		assert.True(t, ok, tt.err)
		assert.Equal(t, tt.code, code)
	}

	_, ok := CodeOf(errors.New("db down"))
	assert.False(t, ok)
}
