package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWagerError_Error(t *testing.T) {
	err := NewWagerError(ErrInsufficientFunds, "balance too low")
	assert.Equal(t, "INSUFFICIENT_FUNDS: balance too low", err.Error())

	wrapped := WrapError(ErrDatabaseError, "query failed", errors.New("disk I/O error"))
	assert.Equal(t, "DATABASE_ERROR: query failed (disk I/O error)", wrapped.Error())
}

func TestWagerError_Unwrap(t *testing.T) {
	cause := errors.New("disk I/O error")
	wrapped := WrapError(ErrDatabaseError, "query failed", cause)

	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, cause))
}

func TestIsWagerError(t *testing.T) {
	err := NewWagerError(ErrRateLimited, "too many wagers")

	assert.True(t, IsWagerError(err, ErrRateLimited))
	assert.False(t, IsWagerError(err, ErrInsufficientFunds))
	assert.False(t, IsWagerError(nil, ErrRateLimited))
	assert.False(t, IsWagerError(errors.New("plain error"), ErrRateLimited))
}

func TestAs(t *testing.T) {
	var target *WagerError

	assert.False(t, As(errors.New("plain error"), &target))
	assert.True(t, As(NewWagerError(ErrNoActiveConfig, "none active"), &target))
	assert.Equal(t, ErrNoActiveConfig, target.Code)
	assert.False(t, As(nil, nil))
}
