package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	AccessSecret   []byte
	AuthHandler    *AuthHTTP
	CatalogHandler *CatalogHTTP
	OrderHandler   *OrderHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, d.DB); err != nil {
			logging.FromContext(ctx).Error("readiness_failed", "status", 503, "error", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/token/refresh", d.AuthHandler.Refresh)
	v1.POST("/logout", d.AuthHandler.Logout)

	login := auth.RequireLogin(d.AccessSecret)
	adminOnly := auth.AdminOnly()

	categories := v1.Group("/categories", login)

	categories.GET("", d.CatalogHandler.ListCategories)
	categories.GET("/:id", d.CatalogHandler.GetCategory)
	categories.POST("", d.CatalogHandler.CreateCategory, adminOnly)
	categories.PUT("/:id", d.CatalogHandler.UpdateCategory, adminOnly)
	categories.PATCH("/:id", d.CatalogHandler.PatchCategory, adminOnly)
	categories.DELETE("/:id", d.CatalogHandler.DeleteCategory, adminOnly)

	products := v1.Group("/products", login)

	products.GET("", d.CatalogHandler.ListProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.POST("", d.CatalogHandler.CreateProduct, adminOnly)
	products.PUT("/:id", d.CatalogHandler.UpdateProduct, adminOnly)
	products.PATCH("/:id", d.CatalogHandler.PatchProduct, adminOnly)
	products.DELETE("/:id", d.CatalogHandler.DeleteProduct, adminOnly)

	orders := v1.Group("/orders", login)

	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("", d.OrderHandler.CreateOrder, auth.CustomerOnly())
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder, auth.CustomerOnly())
	orders.POST("/:id/change_status", d.OrderHandler.ChangeStatus, adminOnly)
}
