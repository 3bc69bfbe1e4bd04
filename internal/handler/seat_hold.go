package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ingressos/internal/service"
)

// SeatHoldHandler leases seats during checkout.  Locker is nil when Redis
// is not configured and every call answers 503.
type SeatHoldHandler struct {
	Locker *service.SeatLocker
}

type seatHoldBody struct {
	Seats     []string `json:"assentos"`
	HoldToken string   `json:"hold_token"`
}

// Hold handles POST /v1/sessions/:id/holds.
func (h *SeatHoldHandler) Hold(c echo.Context) error {
	if h.Locker == nil {
		return fail(c, service.ErrSeatHoldsDisabled)
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return badID(c, "session id")
	}
	var body seatHoldBody
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	hold, err := h.Locker.Hold(c.Request().Context(), sessionID, body.Seats)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, hold)
}

// Release handles DELETE /v1/sessions/:id/holds.  Only seats still held
// with the given token are released.
func (h *SeatHoldHandler) Release(c echo.Context) error {
	if h.Locker == nil {
		return fail(c, service.ErrSeatHoldsDisabled)
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return badID(c, "session id")
	}
	var body seatHoldBody
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if body.HoldToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold_token is required"})
	}
	n, err := h.Locker.Release(c.Request().Context(), sessionID, body.Seats, body.HoldToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liberados": n})
}
