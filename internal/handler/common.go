package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/service"
)

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}

// statusFor maps service and repository errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrSeatRequired):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyUsed),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrOrderNotConfirmable),
		errors.Is(err, service.ErrSeatTaken),
		errors.Is(err, service.ErrSeatNotHeld),
		errors.Is(err, service.ErrDuplicateCoupon),
		errors.Is(err, service.ErrOriginalSession),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientCapacity),
		errors.Is(err, service.ErrNotOnSale),
		errors.Is(err, service.ErrCouponInvalid),
		errors.Is(err, service.ErrNothingToClone):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSeatHoldsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error.  Internal errors are logged and their
// text is not sent to the client.
func fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"route":  c.Path(),
		}).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}

	body := echo.Map{"error": err.Error()}
	var used *service.AlreadyUsedError
	if errors.As(err, &used) {
		body["codigo"] = used.Code
		body["utilizado_em"] = used.UsedAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(status, body)
}
