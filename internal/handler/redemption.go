package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ingressos/internal/service"
)

// RedemptionHandler serves ticket validation at the door.
type RedemptionHandler struct {
	Validator *service.RedemptionValidator
}

// NewRedemptionHandler panics when v is nil.
func NewRedemptionHandler(v *service.RedemptionValidator) *RedemptionHandler {
	if v == nil {
		panic("nil dependency passed to NewRedemptionHandler")
	}
	return &RedemptionHandler{Validator: v}
}

// Redeem handles POST /v1/events/:id/redeem with {"codigo": "..."}.  A
// ticket used before answers 409 with utilizado_em set to the first
// redemption time.
func (h *RedemptionHandler) Redeem(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	var body struct {
		Code string `json:"codigo"`
	}
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	out, err := h.Validator.Validate(c.Request().Context(), eventID, body.Code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
