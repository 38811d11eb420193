package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  ProductIndexer
}

// CreateOrder places a pending order for the calling customer and takes the
// ordered quantity out of stock.
func (s *OrderService) CreateOrder(ctx context.Context, caller Caller, req transport.CreateOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create", "customer_id", caller.UserID)

	if err := requireCustomer(caller); err != nil {
		return nil, err
	}

	fe := &FieldErrors{Kind: ErrValidation}
	if req.ProductID == nil {
		fe.Add("product_id", msgRequired)
	}
	switch {
	case req.Quantity == nil:
		fe.Add("quantity", msgRequired)
	case *req.Quantity <= 0:
		fe.Add("quantity", "Quantity must be at least 1.")
	}
	if err := fe.orNil(); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return nil, err
	}

	order, err := s.Repo.CreateOrder(ctx, caller.UserID, *req.ProductID, *req.Quantity)
	if err != nil {
		var stockErr *repo.StockError
		switch {
		case errors.Is(err, repo.ErrProductNotFound):
			err = invalid("product_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *req.ProductID))
		case errors.Is(err, repo.ErrProductInactive):
			err = invalid(NonField, "Cannot order an inactive product.")
		case errors.As(err, &stockErr):
			err = invalid(NonField, fmt.Sprintf("Only %d item(s) left in stock, you requested %d.", stockErr.Available, stockErr.Requested))
		default:
			l.Error("create_order_error", "status", 500, "reason", "cannot create order", "error", err)
			return nil, fmt.Errorf("create order: %w", err)
		}
		l.Warn("create_order_error", "status", 400, "reason", "product cannot be ordered", "error", err)
		return nil, err
	}

	reindex(ctx, l, s.Index, &order.Product)
	publish(ctx, l, s.Events, events.TopicOrder, key(order.ID),
		events.New("order_created", orderPayload(order)))

	l.Info("create_order_success", "order_id", order.ID)
	return order, nil
}

// ListOrders returns every order to admins and only their own to customers.
func (s *OrderService) ListOrders(ctx context.Context, caller Caller) ([]models.Order, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	if seesEverything(caller) {
		return s.Repo.ListOrders(ctx, nil)
	}
	return s.Repo.ListOrders(ctx, &caller.UserID)
}

// GetOrder hides orders of other customers behind ErrNotFound.
func (s *OrderService) GetOrder(ctx context.Context, caller Caller, id uint) (*models.Order, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !seesEverything(caller) && o.CustomerID != caller.UserID {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return o, nil
}

func (s *OrderService) loadOrder(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return o, nil
}

// CancelOrder lets the owning customer cancel a pending order. The ordered
// quantity goes back to stock.
func (s *OrderService) CancelOrder(ctx context.Context, caller Caller, id uint) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.cancel", "order_id", id)

	if err := requireCustomer(caller); err != nil {
		return nil, err
	}

	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != caller.UserID {
		l.Warn("cancel_order_error", "status", 403, "reason", "not the owner")
		return nil, fmt.Errorf("%w: You do not have permission to perform this action.", ErrForbidden)
	}

	const notPending = "Only pending orders can be cancelled."
	if o.Status != models.StatusPending {
		return nil, invalid(NonField, notPending)
	}

	if err := s.Repo.TransitionOrder(ctx, o, models.StatusCancelled, true); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			l.Warn("cancel_order_error", "status", 400, "reason", "status changed concurrently")
			return nil, invalid(NonField, notPending)
		}
		l.Error("cancel_order_error", "status", 500, "error", err)
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	o = s.reload(ctx, l, o)

	reindex(ctx, l, s.Index, &o.Product)
	publish(ctx, l, s.Events, events.TopicOrder, key(o.ID),
		events.New("order_cancelled", orderPayload(o)))

	l.Info("cancel_order_success")
	return o, nil
}

// ChangeStatus moves an order along the status graph. Re-applying the current
// status is a no-op; moving to cancelled restocks the product.
func (s *OrderService) ChangeStatus(ctx context.Context, caller Caller, id uint, status *string) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.change_status", "order_id", id)

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if status == nil {
		return nil, invalid("status", msgRequired)
	}
	next, err := models.ParseOrderStatus(*status)
	if err != nil {
		return nil, invalid("status", fmt.Sprintf("\"%s\" is not a valid choice.", *status))
	}

	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransition(next) {
		l.Warn("change_status_error", "status", 400, "reason", "transition not allowed", "from", o.Status, "to", next)
		return nil, invalid("status", fmt.Sprintf("Cannot change status from %s to %s.", o.Status, next))
	}
	if o.Status == next {
		return o, nil
	}

	prev := o.Status
	restock := next == models.StatusCancelled
	if err := s.Repo.TransitionOrder(ctx, o, next, restock); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			l.Warn("change_status_error", "status", 400, "reason", "status changed concurrently")
			return nil, invalid("status", "Order status changed concurrently, reload and retry.")
		}
		l.Error("change_status_error", "status", 500, "error", err)
		return nil, fmt.Errorf("change status: %w", err)
	}
	o = s.reload(ctx, l, o)
	if restock {
		reindex(ctx, l, s.Index, &o.Product)
	}

	payload := orderPayload(o)
	payload["previous_status"] = prev
	publish(ctx, l, s.Events, events.TopicOrder, key(o.ID),
		events.New("order_status_changed", payload))

	l.Info("change_status_success", "from", prev, "to", next)
	return o, nil
}

// reload rereads the order after a committed transition so the product
// reflects stock moved by other orders. On failure the caller's copy is kept.
func (s *OrderService) reload(ctx context.Context, l *slog.Logger, o *models.Order) *models.Order {
	fresh, err := s.Repo.GetOrder(ctx, o.ID)
	if err != nil {
		l.Warn("reload_order_failed", "error", err)
		return o
	}
	return fresh
}

func orderPayload(o *models.Order) map[string]any {
	return map[string]any{
		"order_id":    o.ID,
		"customer_id": o.CustomerID,
		"product_id":  o.ProductID,
		"quantity":    o.Quantity,
		"status":      o.Status,
		"total_price": o.TotalPrice().StringFixed(2),
	}
}
