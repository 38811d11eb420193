package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_api/internal/models"
)

// CreateOrder takes quantity units of stock and records a pending order in a
// single transaction. The stock update only matches an active product with
// enough stock, so concurrent orders cannot drive stock below zero.
func (r *GormRepo) CreateOrder(ctx context.Context, customerID, productID uint, quantity int) (*models.Order, error) {
	order := models.Order{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
		Status:     models.StatusPending,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND is_active = ? AND stock >= ?", productID, true, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return whyNotOrderable(tx, productID, quantity)
		}

		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return err
		}
		return tx.Preload("Product.Category").First(&order, order.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func whyNotOrderable(tx *gorm.DB, productID uint, quantity int) error {
	var p models.Product
	if err := tx.First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if !p.IsActive {
		return ErrProductInactive
	}
	return &StockError{Available: p.Stock, Requested: quantity}
}

// ListOrders returns orders newest first. A nil customerID lists every order.
func (r *GormRepo) ListOrders(ctx context.Context, customerID *uint) ([]models.Order, error) {
	var items []models.Order
	q := r.DB.WithContext(ctx).Preload("Product.Category").Order("created_at DESC, id DESC")
	if customerID != nil {
		q = q.Where("customer_id = ?", *customerID)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Product.Category").First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// TransitionOrder moves the order from its current status to next, provided
// nobody changed the status in between. With restock the ordered quantity is
// returned to the product in the same transaction.
func (r *GormRepo) TransitionOrder(ctx context.Context, o *models.Order, next models.OrderStatus, restock bool) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", o.ID, o.Status).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if restock {
			err := tx.Model(&models.Product{}).
				Where("id = ?", o.ProductID).
				Update("stock", gorm.Expr("stock + ?", o.Quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.Status = next
	return nil
}
