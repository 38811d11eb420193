package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/models"
)

// RequireRole lets the request through only for the listed roles. It must be
// chained after RequireLogin.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := CallerFrom(c)
			if caller.UserID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided or are invalid."})
			}
			for _, r := range roles {
				if caller.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, echo.Map{"detail": "You do not have permission to perform this action."})
		}
	}
}

func AdminOnly() echo.MiddlewareFunc { return RequireRole(models.RoleAdmin) }

func CustomerOnly() echo.MiddlewareFunc { return RequireRole(models.RoleCustomer) }
