package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/models"
)

func (r *GormRepo) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	var items []models.Product
	q := r.DB.WithContext(ctx).Preload("Category").Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint, activeOnly bool) (*models.Product, error) {
	var p models.Product
	q := r.DB.WithContext(ctx).Preload("Category")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ListProductsByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	var items []models.Product
	err := r.DB.WithContext(ctx).Preload("Category").
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ProductNameTaken reports whether another product (not excludeID) in the
// category already uses name.
func (r *GormRepo) ProductNameTaken(ctx context.Context, name string, categoryID, excludeID uint) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("name = ? AND category_id = ?", name, categoryID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return db.Classify(err)
	}
	return r.DB.WithContext(ctx).Preload("Category").First(p, p.ID).Error
}

// UpdateProduct writes only the given columns and returns the fresh row.
// Columns missing from changes keep whatever concurrent writers left there.
func (r *GormRepo) UpdateProduct(ctx context.Context, id uint, changes map[string]any) (*models.Product, error) {
	if len(changes) > 0 {
		err := r.DB.WithContext(ctx).Model(&models.Product{}).
			Omit(clause.Associations).
			Where("id = ?", id).
			Updates(changes).Error
		if err != nil {
			return nil, db.Classify(err)
		}
	}
	return r.GetProduct(ctx, id, false)
}

// DeleteProduct fails with db.ErrReferenced while any order points at the product.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}

		var referenced int64
		if err := tx.Model(&models.Order{}).Where("product_id = ?", id).Count(&referenced).Error; err != nil {
			return err
		}
		if referenced > 0 {
			return db.ErrReferenced
		}

		return db.Classify(tx.Delete(&p).Error)
	})
}
