package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/models"
)

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var items []models.Category
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CategoryNameTaken reports whether another category (not excludeID) uses name.
func (r *GormRepo) CategoryNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, cat *models.Category) error {
	return db.Classify(r.DB.WithContext(ctx).Create(cat).Error)
}

func (r *GormRepo) SaveCategory(ctx context.Context, cat *models.Category) error {
	return db.Classify(r.DB.WithContext(ctx).Save(cat).Error)
}

// DeleteCategoryCascade removes the category and its products in one
// transaction and returns the ids of the removed products. It fails with
// db.ErrReferenced when any of those products is part of an order.
func (r *GormRepo) DeleteCategoryCascade(ctx context.Context, id uint) ([]uint, error) {
	var productIDs []uint

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
			return err
		}

		if len(productIDs) > 0 {
			var referenced int64
			if err := tx.Model(&models.Order{}).Where("product_id IN ?", productIDs).Count(&referenced).Error; err != nil {
				return err
			}
			if referenced > 0 {
				return db.ErrReferenced
			}
			if err := tx.Where("category_id = ?", id).Delete(&models.Product{}).Error; err != nil {
				return db.Classify(err)
			}
		}

		return db.Classify(tx.Delete(&cat).Error)
	})
	if err != nil {
		return nil, err
	}
	return productIDs, nil
}
