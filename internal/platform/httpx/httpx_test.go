package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := map[error]int{
		shared.ErrNotFound: http.StatusNotFound,
		fmt.Errorf("place order: %w", shared.ErrConflict):              http.StatusConflict,
		shared.ErrIdempotencyConflict:                                  http.StatusConflict,
		fmt.Errorf("%w: quantity below minimum", shared.ErrValidation): http.StatusBadRequest,
		shared.ErrInvalidStatus:                                        http.StatusUnprocessableEntity,
		shared.ErrForbidden:                                            http.StatusForbidden,
		shared.ErrInvalidCredentials:                                   http.StatusUnauthorized,
		errors.New("boom"):                                             http.StatusInternalServerError,
	}
	for err, status := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, err)
		assert.Equal(t, status, rec.Code, err.Error())

		var body ProblemDetail
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, status, body.Status)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: password authentication failed"))
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"W320","extra":1}`))
	err := DecodeJSON(req, &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorIs(t, DecodeJSON(req, &target), shared.ErrValidation)
}

func TestPageBounds(t *testing.T) {
	q := NewQueryReader(httptest.NewRequest(http.MethodGet, "/?page=-2&limit=5000", nil))
	page, limit := q.Page()
	assert.Equal(t, 1, page)
	assert.Equal(t, maxLimit, limit)
	assert.NoError(t, q.Err())

	q = NewQueryReader(httptest.NewRequest(http.MethodGet, "/", nil))
	page, limit = q.Page()
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultLimit, limit)
}

func TestPageRejectsOverflowingPage(t *testing.T) {
	q := NewQueryReader(httptest.NewRequest(http.MethodGet, "/?page=9223372036854775807&limit=200", nil))
	page, _ := q.Page()
	assert.Equal(t, 1, page)

	var qerr *QueryError
	require.ErrorAs(t, q.Err(), &qerr)
	assert.Equal(t, map[string]string{"page": "max"}, qerr.Fields)

	q = NewQueryReader(httptest.NewRequest(http.MethodGet, "/?page=1000000", nil))
	page, _ = q.Page()
	assert.Equal(t, maxPage, page)
	assert.NoError(t, q.Err())
}

func TestQueryReader(t *testing.T) {
	q := NewQueryReader(httptest.NewRequest(http.MethodGet, "/?seller_id=12&min_price=8.5&in_stock=true&date_from=2025-03-01&search=+w320+", nil))
	require.NotNil(t, q.Int64("seller_id"))
	assert.Equal(t, int64(12), *q.Int64("seller_id"))
	assert.Equal(t, 8.5, *q.Float("min_price"))
	assert.True(t, *q.Bool("in_stock"))
	assert.Equal(t, 2025, q.Date("date_from").Year())
	assert.Equal(t, "w320", q.String("search"))
	assert.Nil(t, q.Int64("missing"))
	assert.NoError(t, q.Err())
}

func TestQueryReaderCollectsMalformedValues(t *testing.T) {
	q := NewQueryReader(httptest.NewRequest(http.MethodGet, "/?seller_id=x&min_price=cheap&in_stock=maybe&date_from=2026-13-01", nil))
	assert.Nil(t, q.Int64("seller_id"))
	assert.Nil(t, q.Float("min_price"))
	assert.Nil(t, q.Bool("in_stock"))
	assert.Nil(t, q.Date("date_from"))

	err := q.Err()
	assert.ErrorIs(t, err, shared.ErrValidation)

	rec := httptest.NewRecorder()
	RespondError(rec, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"seller_id":"integer","min_price":"number","in_stock":"boolean","date_from":"date"}`, errorsField(t, rec))
}

func errorsField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Errors json.RawMessage `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return string(body.Errors)
}

func TestListNormalisesNil(t *testing.T) {
	rec := httptest.NewRecorder()
	List[int](rec, nil, shared.NewPagination(1, 20, 0))
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}
