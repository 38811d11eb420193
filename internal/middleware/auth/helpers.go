package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/service"
)

const callerKey = "caller"

func SetCaller(c echo.Context, caller service.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the zero Caller when RequireLogin did not run, which the
// services reject as unauthenticated.
func CallerFrom(c echo.Context) service.Caller {
	caller, _ := c.Get(callerKey).(service.Caller)
	return caller
}
