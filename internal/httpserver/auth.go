package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "register_error", err)
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		var fe *service.FieldErrors
		if errors.As(err, &fe) {
			return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"message": "Registration failed.", "errors": fe.Fields})
		}
		return fail(l, "register_error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Registration successful!",
		"user":    transport.NewUserView(user),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "login_error", err)
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
				"message": "Login failed.",
				"errors":  echo.Map{"detail": detail(err, service.ErrUnauthenticated, "Invalid credentials.")},
			})
		}
		return fail(l, "login_error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful!",
		"access":  res.AccessToken,
		"refresh": res.RefreshToken,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "refresh_error", err)
	}

	access, _, err := h.Svc.Refresh(ctx, req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
				"detail": detail(err, service.ErrUnauthenticated, "Token is invalid or expired"),
				"code":   "token_not_valid",
			})
		}
		return fail(l, "refresh_error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"access": access})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "logout_error", err)
	}

	if err := h.Svc.Logout(ctx, req.Refresh); err != nil {
		return fail(l, "logout_error", err)
	}

	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out."})
}
