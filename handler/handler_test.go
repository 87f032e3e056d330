package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coldcall/handler"
	"github.com/dmitrymomot/coldcall/pkg/binder"
	"github.com/dmitrymomot/coldcall/pkg/validator"
)

type createRequest struct {
	Name string `json:"name"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var out handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWrap(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(ctx handler.Context, req createRequest) handler.Response {
		if req.Name == "" {
			return handler.JSONError(validator.Apply(validator.RequiredString("name", req.Name)))
		}
		if req.Name == "taken" {
			return handler.JSONError(handler.ErrConflict)
		}
		if req.Name == "boom" {
			return handler.JSON(errors.New("db password leaked"))
		}
		return handler.JSON(map[string]string{"name": req.Name}, handler.WithJSONStatus(http.StatusCreated))
	}, handler.WithBinders[handler.Context, createRequest](binder.JSON()))

	do := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h(rec, r)
		return rec
	}

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		rec := do(`{"name":"Ada"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, map[string]any{"name": "Ada"}, decode(t, rec).Data)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		rec := do(`{"name":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		out := decode(t, rec)
		require.NotNil(t, out.Error)
		assert.Equal(t, "validation_error", out.Error.Code)
		assert.Contains(t, out.Error.Details, "name")
	})

	t.Run("http error", func(t *testing.T) {
		t.Parallel()
		rec := do(`{"name":"taken"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", decode(t, rec).Error.Code)
	})

	t.Run("internal error hides message", func(t *testing.T) {
		t.Parallel()
		rec := do(`{"name":"boom"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("bind error", func(t *testing.T) {
		t.Parallel()
		rec := do(`{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", decode(t, rec).Error.Code)
	})
}

func TestWrap_Decorators(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) handler.Decorator[handler.Context, createRequest] {
		return func(next handler.HandlerFunc[handler.Context, createRequest]) handler.HandlerFunc[handler.Context, createRequest] {
			return func(ctx handler.Context, req createRequest) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := handler.Wrap(func(ctx handler.Context, req createRequest) handler.Response {
		order = append(order, "handler")
		return handler.Empty()
	}, handler.WithDecorators(mark("outer"), mark("inner")))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestWrap_NilResponse(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := handler.Wrap(func(ctx handler.Context, req createRequest) handler.Response { return nil },
		handler.WithErrorHandler[handler.Context, createRequest](handler.NewErrorHandler(log)))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "request error")
	assert.Contains(t, buf.String(), "status_code=500")
}

func TestJSON_Meta(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := handler.JSON([]int{1, 2}, handler.WithJSONMeta(map[string]any{"total": 2})).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	out := decode(t, rec)
	assert.Equal(t, []any{float64(1), float64(2)}, out.Data)
	assert.Equal(t, float64(2), out.Meta["total"])
}
