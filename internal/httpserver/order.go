package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_order_error", err)
	}

	o, err := h.Svc.CreateOrder(ctx, auth.CallerFrom(c), req)
	if err != nil {
		return fail(l, "create_order_error", err)
	}
	return c.JSON(http.StatusCreated, transport.NewOrderView(o))
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	items, err := h.Svc.ListOrders(ctx, auth.CallerFrom(c))
	if err != nil {
		return fail(l, "list_orders_error", err)
	}

	out := make([]transport.OrderView, 0, len(items))
	for i := range items {
		out = append(out, transport.NewOrderView(&items[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	id, err := pathID(c, l, "get_order_error")
	if err != nil {
		return err
	}

	o, err := h.Svc.GetOrder(ctx, auth.CallerFrom(c), id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewOrderView(o))
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	id, err := pathID(c, l, "cancel_order_error")
	if err != nil {
		return err
	}

	o, err := h.Svc.CancelOrder(ctx, auth.CallerFrom(c), id)
	if err != nil {
		return fail(l, "cancel_order_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": o.Status})
}

func (h *OrderHTTP) ChangeStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.change_status")

	id, err := pathID(c, l, "change_status_error")
	if err != nil {
		return err
	}

	var req transport.ChangeStatusRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "change_status_error", err)
	}

	o, err := h.Svc.ChangeStatus(ctx, auth.CallerFrom(c), id, req.Status)
	if err != nil {
		return fail(l, "change_status_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": o.Status})
}
