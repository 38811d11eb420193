package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	items, err := h.Svc.ListProducts(ctx, auth.CallerFrom(c))
	if err != nil {
		return fail(l, "list_products_error", err)
	}

	out := make([]transport.ProductView, 0, len(items))
	for i := range items {
		out = append(out, transport.NewProductView(&items[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := pathID(c, l, "get_product_error")
	if err != nil {
		return err
	}

	p, err := h.Svc.GetProduct(ctx, auth.CallerFrom(c), id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewProductView(p))
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_product_error", err)
	}

	p, err := h.Svc.CreateProduct(ctx, auth.CallerFrom(c), req)
	if err != nil {
		return fail(l, "create_product_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, transport.NewProductView(p))
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	return h.updateProduct(c, false)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	return h.updateProduct(c, true)
}

func (h *CatalogHTTP) updateProduct(c echo.Context, partial bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update", "partial", partial)

	id, err := pathID(c, l, "update_product_error")
	if err != nil {
		return err
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_product_error", err)
	}

	p, err := h.Svc.UpdateProduct(ctx, auth.CallerFrom(c), id, req, partial)
	if err != nil {
		return fail(l, "update_product_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewProductView(p))
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := pathID(c, l, "delete_product_error")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteProduct(ctx, auth.CallerFrom(c), id); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
