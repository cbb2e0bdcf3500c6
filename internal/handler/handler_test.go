package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockledger/internal/domain/model"
	"stockledger/internal/middleware"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// =====================
// writeError
// =====================

func TestWriteError_HTTPErrorShape(t *testing.T) {
	c, rec := newContext("/")
	available := int64(3)
	err := &usecase.HTTPError{
		Status:    http.StatusBadRequest,
		Kind:      usecase.KindStock,
		Message:   "insufficient stock",
		Available: &available,
	}

	require.NoError(t, writeError(c, zap.NewNop(), err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"insufficient stock","errorType":"StockError","available":3}`, rec.Body.String())
}

func TestWriteError_ItemizedErrors(t *testing.T) {
	c, rec := newContext("/")
	err := &usecase.HTTPError{
		Status:  http.StatusBadRequest,
		Kind:    usecase.KindBadRequest,
		Message: "invalid items",
		Errors: []usecase.ErrorDetail{
			{ID: 10, ErrorType: usecase.KindStock, Detail: "not enough stock"},
		},
	}

	require.NoError(t, writeError(c, zap.NewNop(), err))
	body := decodeError(t, rec)
	assert.JSONEq(t, `[{"id":10,"errorType":"StockError","detail":"not enough stock"}]`, string(body["errors"]))
	assert.NotContains(t, body, "available")
}

func TestWriteError_UnknownIs500(t *testing.T) {
	c, rec := newContext("/")

	require.NoError(t, writeError(c, zap.NewNop(), errors.New("connection reset")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

// =====================
// withRetry
// =====================

func TestWithRetry_RetriesConflictUpToMax(t *testing.T) {
	var retried []string
	p := RetryPolicy{MaxAttempts: 3, BaseInterval: time.Millisecond, OnRetry: func(path string) { retried = append(retried, path) }}

	calls := 0
	_, err := withRetry(context.Background(), p, "/sale-orders/:id/items", func() (int, error) {
		calls++
		return 0, usecase.NewHTTPError(http.StatusConflict, "concurrent update, please retry")
	})

	require.Error(t, err)
	assert.Equal(t, usecase.KindConflict, usecase.KindOf(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"/sale-orders/:id/items", "/sale-orders/:id/items"}, retried)
}

func TestWithRetry_SucceedsAfterConflict(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseInterval: time.Millisecond}

	calls := 0
	out, err := withRetry(context.Background(), p, "/x", func() (string, error) {
		calls++
		if calls == 1 {
			return "", usecase.NewHTTPError(http.StatusConflict, "retry")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseInterval: time.Millisecond}

	for _, want := range []error{
		usecase.NewHTTPError(http.StatusBadRequest, "bad"),
		errors.New("boom"),
	} {
		calls := 0
		_, err := withRetry(context.Background(), p, "/x", func() (int, error) {
			calls++
			return 0, want
		})
		assert.ErrorIs(t, err, want)
		assert.Equal(t, 1, calls)
	}
}

// =====================
// request helpers
// =====================

func TestPageQuery(t *testing.T) {
	c, _ := newContext("/?page=2&limit=50")
	page, limit, msg := pageQuery(c, 20)
	assert.Equal(t, 2, page)
	assert.Equal(t, 50, limit)
	assert.Empty(t, msg)

	c, _ = newContext("/")
	page, limit, _ = pageQuery(c, 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	c, _ = newContext("/?limit=abc")
	_, _, msg = pageQuery(c, 20)
	assert.Equal(t, "invalid limit", msg)
}

func TestPathID(t *testing.T) {
	c, _ := newContext("/")
	c.SetParamNames("id")

	c.SetParamValues("12")
	id, ok := pathID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	for _, v := range []string{"0", "-1", "abc"} {
		c.SetParamValues(v)
		_, ok = pathID(c, "id")
		assert.False(t, ok, v)
	}
}

func TestActorFromContext(t *testing.T) {
	c, _ := newContext("/")
	_, ok := actorFromContext(c)
	assert.False(t, ok)

	c.Set(middleware.CtxUserIDKey, int64(4))
	c.Set(middleware.CtxUserRoleKey, model.RoleAdmin)
	actor, ok := actorFromContext(c)
	require.True(t, ok)
	assert.Equal(t, usecase.Actor{ID: 4, Role: model.RoleAdmin}, actor)
}
