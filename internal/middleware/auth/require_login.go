package auth

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/tokens"
)

const claimsKey = "access_claims"

// RequireLogin rejects requests without a valid "Authorization: Bearer" access
// token and stores the resolved service.Caller in the echo context.
func RequireLogin(accessSecret []byte) echo.MiddlewareFunc {
	bearer := echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(_ echo.Context, auth string) (interface{}, error) {
			return tokens.AccessClaimsFromToken(auth, accessSecret)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context()).
				Warn("auth_failed", "status", 401, "reason", "missing or invalid bearer token", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided or are invalid."})
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return bearer(func(c echo.Context) error {
			claims, ok := c.Get(claimsKey).(*tokens.AccessClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided or are invalid."})
			}
			id, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided or are invalid."})
			}
			SetCaller(c, service.Caller{UserID: id, Role: claims.Role})
			return next(c)
		})
	}
}
