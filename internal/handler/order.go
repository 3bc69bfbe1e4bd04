package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ingressos/internal/middleware"
	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/service"
)

// SalesHandler serves checkout, payment confirmation and courtesies.
type SalesHandler struct {
	Sales *service.Sales
	Store *repository.Store
}

// NewSalesHandler panics when a dependency is missing.
func NewSalesHandler(sales *service.Sales, store *repository.Store) *SalesHandler {
	if sales == nil || store == nil {
		panic("nil dependency passed to NewSalesHandler")
	}
	return &SalesHandler{Sales: sales, Store: store}
}

// CreateOrder handles POST /v1/orders.  The order is PENDENTE until the
// gateway confirms it.
func (h *SalesHandler) CreateOrder(c echo.Context) error {
	var req service.OrderRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	req.CustomerID = middleware.UserID(c)
	order, err := h.Sales.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /v1/orders/:id and includes the issued tickets.
// Only the customer that placed the order may read it.
func (h *SalesHandler) GetOrder(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "order id")
	}
	ctx := c.Request().Context()
	order, err := h.Store.Orders.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if order.CustomerID != middleware.UserID(c) {
		return fail(c, repository.ErrForbidden)
	}
	tickets, err := h.Store.SoldTickets.ListByOrder(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pedido": order, "ingressos": tickets})
}

// ConfirmPayment handles POST /v1/orders/:id/confirm, called by the
// payment gateway once the order is paid.
func (h *SalesHandler) ConfirmPayment(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "order id")
	}
	var pc service.PaymentConfirmation
	if err := c.Bind(&pc); err != nil {
		return invalidBody(c)
	}
	receipt, err := h.Sales.ConfirmPayment(c.Request().Context(), id, pc)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, receipt)
}

// IssueCourtesy handles POST /v1/courtesies.
func (h *SalesHandler) IssueCourtesy(c echo.Context) error {
	var req service.CourtesyRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ticket, err := h.Sales.IssueCourtesy(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, ticket)
}
