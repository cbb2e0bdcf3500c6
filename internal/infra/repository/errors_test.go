package repository

import (
	"errors"
	"fmt"
	"testing"

	repo "stockledger/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), repo.ErrNotFound)
	assert.ErrorIs(t, translateError(fmt.Errorf("wrap: %w", gorm.ErrRecordNotFound)), repo.ErrNotFound)

	for _, code := range []string{pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgUniqueViolation} {
		err := translateError(&pgconn.PgError{Code: code, Message: "x"})
		assert.ErrorIs(t, err, repo.ErrConflict, code)
	}

	//CHECK制約違反などはそのまま
	check := &pgconn.PgError{Code: "23514", Message: "check"}
	assert.Same(t, check, translateError(check))

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 50},
		{3, 20, 3, 20},
		{-1, 500, 1, 50},
		{2, 200, 2, 200},
	}
	for _, tc := range cases {
		p, l := normalizePage(tc.page, tc.limit)
		assert.Equal(t, tc.wantPage, p)
		assert.Equal(t, tc.wantLimit, l)
	}
}
