package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.list")

	items, err := h.Svc.ListCategories(ctx, auth.CallerFrom(c))
	if err != nil {
		return fail(l, "list_categories_error", err)
	}

	out := make([]transport.CategoryView, 0, len(items))
	for i := range items {
		out = append(out, transport.NewCategoryView(&items[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get")

	id, err := pathID(c, l, "get_category_error")
	if err != nil {
		return err
	}

	cat, err := h.Svc.GetCategory(ctx, auth.CallerFrom(c), id)
	if err != nil {
		return fail(l, "get_category_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCategoryView(cat))
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_category_error", err)
	}

	cat, err := h.Svc.CreateCategory(ctx, auth.CallerFrom(c), req)
	if err != nil {
		return fail(l, "create_category_error", err)
	}

	l.Info("create_category_success", "category_id", cat.ID)
	return c.JSON(http.StatusCreated, transport.NewCategoryView(cat))
}

func (h *CatalogHTTP) UpdateCategory(c echo.Context) error {
	return h.updateCategory(c, false)
}

func (h *CatalogHTTP) PatchCategory(c echo.Context) error {
	return h.updateCategory(c, true)
}

func (h *CatalogHTTP) updateCategory(c echo.Context, partial bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.update", "partial", partial)

	id, err := pathID(c, l, "update_category_error")
	if err != nil {
		return err
	}

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_category_error", err)
	}

	cat, err := h.Svc.UpdateCategory(ctx, auth.CallerFrom(c), id, req, partial)
	if err != nil {
		return fail(l, "update_category_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCategoryView(cat))
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := pathID(c, l, "delete_category_error")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteCategory(ctx, auth.CallerFrom(c), id); err != nil {
		return fail(l, "delete_category_error", err)
	}

	l.Info("delete_category_success", "category_id", id)
	return c.NoContent(http.StatusNoContent)
}
