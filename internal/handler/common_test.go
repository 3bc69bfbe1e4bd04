package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: nome is required", service.ErrValidation), http.StatusBadRequest},
		{service.ErrSeatRequired, http.StatusBadRequest},
		{repository.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("get event: %w", repository.ErrNotFound), http.StatusNotFound},
		{service.ErrTicketNotFound, http.StatusNotFound},
		{&service.AlreadyUsedError{Code: "X"}, http.StatusConflict},
		{service.ErrAlreadyPaid, http.StatusConflict},
		{service.ErrSeatTaken, http.StatusConflict},
		{service.ErrOriginalSession, http.StatusConflict},
		{service.ErrDuplicateCoupon, http.StatusConflict},
		{service.ErrInsufficientCapacity, http.StatusUnprocessableEntity},
		{service.ErrNotOnSale, http.StatusUnprocessableEntity},
		{service.ErrCouponInvalid, http.StatusUnprocessableEntity},
		{service.ErrNothingToClone, http.StatusUnprocessableEntity},
		{service.ErrSeatHoldsDisabled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestFailAlreadyUsedBody(t *testing.T) {
	at := time.Date(2026, 5, 10, 21, 30, 0, 0, time.UTC)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	require.NoError(t, fail(c, &service.AlreadyUsedError{Code: "ABC", UsedAt: at}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2026-05-10T21:30:00Z", body["utilizado_em"])
	assert.Equal(t, "ABC", body["codigo"])
}

func TestFailHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, fail(c, errors.New("dial tcp 10.0.0.1:3306: refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestParseID(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	for raw, want := range map[string]bool{"7": true, "0": false, "-1": false, "x": false} {
		c.SetParamValues(raw)
		_, ok := parseID(c, "id")
		assert.Equal(t, want, ok, raw)
	}
}
