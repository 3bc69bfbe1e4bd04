package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ingressos/internal/monitoring"
)

// RequestLogger logs one line per request and counts it in the
// HTTPRequests metric.  Errors returned by handlers are passed to Echo's
// error handler first so the logged status is the one the client saw.
func RequestLogger(log *logrus.Entry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			monitoring.HTTPRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()

			entry := log.WithFields(logrus.Fields{
				"method":  c.Request().Method,
				"route":   route,
				"uri":     c.Request().RequestURI,
				"status":  status,
				"latency": time.Since(start).String(),
				"ip":      c.RealIP(),
				"user":    UserID(c),
			})
			switch {
			case status >= 500:
				entry.WithError(err).Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
