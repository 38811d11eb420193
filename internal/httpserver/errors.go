package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/service"
)

// detail strips the sentinel prefix from err so "restricted: product is
// referenced" becomes "product is referenced". Errors without a message of
// their own fall back to def.
func detail(err, sentinel error, def string) string {
	prefix := sentinel.Error() + ": "
	if msg := err.Error(); strings.HasPrefix(msg, prefix) {
		return msg[len(prefix):]
	}
	return def
}

// fail maps a service error onto an HTTP error and logs it under event.
func fail(l *slog.Logger, event string, err error) error {
	var fe *service.FieldErrors
	switch {
	case errors.As(err, &fe):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid input", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"errors": fe.Fields})
	case errors.Is(err, service.ErrUnauthenticated):
		l.Warn(event, "status", http.StatusUnauthorized, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"detail": detail(err, service.ErrUnauthenticated, "Authentication credentials were not provided or are invalid."),
		})
	case errors.Is(err, service.ErrForbidden):
		l.Warn(event, "status", http.StatusForbidden, "error", err)
		return echo.NewHTTPError(http.StatusForbidden, echo.Map{"detail": "You do not have permission to perform this action."})
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", http.StatusNotFound, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, echo.Map{"detail": "Not found."})
	case errors.Is(err, service.ErrRestricted):
		l.Warn(event, "status", http.StatusConflict, "error", err)
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"detail": detail(err, service.ErrRestricted, "Resource is still referenced.")})
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"detail": detail(err, service.ErrValidation, "Invalid input.")})
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"detail": detail(err, service.ErrConflict, "Already exists.")})
	default:
		l.Error(event, "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"detail": "internal error"})
	}
}

func badBody(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid body", "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"detail": "invalid body"})
}

// pathID parses the :id route parameter. Non numeric ids cannot match any
// record, so they are reported as 404.
func pathID(c echo.Context, l *slog.Logger, event string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		l.Warn(event, "status", http.StatusNotFound, "reason", "id is not a positive integer", "id", c.Param("id"))
		return 0, echo.NewHTTPError(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	return uint(id), nil
}
