package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ingressos/internal/service"
)

// SessionHandler serves session cloning, deletion and availability.
type SessionHandler struct {
	Cloner *service.SessionCloner
	Sales  *service.Sales
}

// NewSessionHandler panics when a dependency is missing.
func NewSessionHandler(cloner *service.SessionCloner, sales *service.Sales) *SessionHandler {
	if cloner == nil || sales == nil {
		panic("nil dependency passed to NewSessionHandler")
	}
	return &SessionHandler{Cloner: cloner, Sales: sales}
}

// CloneSession handles POST /v1/events/:id/sessions with {"data_hora": RFC3339}.
func (h *SessionHandler) CloneSession(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	var body struct {
		StartsAt string `json:"data_hora"`
	}
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid data_hora format"})
	}
	out, err := h.Cloner.CloneSession(c.Request().Context(), eventID, startsAt)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// DeleteSession handles DELETE /v1/sessions/:id.
func (h *SessionHandler) DeleteSession(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "session id")
	}
	if err := h.Cloner.DeleteSession(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Availability handles GET /v1/sessions/:id/availability.
func (h *SessionHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "session id")
	}
	types, err := h.Sales.Availability(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessao_id": id, "ingressos": types})
}
