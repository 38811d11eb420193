package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

const (
	maxCategoryNameLen = 100
	maxProductNameLen  = 200
	priceMaxDigits     = 10
	pricePlaces        = 2
)

var maxPrice = decimal.New(1, priceMaxDigits-pricePlaces)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  ProductIndexer
}

func key(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func checkName(fe *FieldErrors, field string, v *string, max int, required bool) {
	if v == nil {
		if required {
			fe.Add(field, msgRequired)
		}
		return
	}
	switch {
	case strings.TrimSpace(*v) == "":
		fe.Add(field, "This field may not be blank.")
	case utf8.RuneCountInString(*v) > max:
		fe.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", max))
	}
}

func (s *CatalogService) ListCategories(ctx context.Context, caller Caller) ([]models.Category, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, caller Caller, id uint) (*models.Category, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	cat, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return cat, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, caller Caller, req transport.CategoryRequest) (*models.Category, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_category")

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	fe := &FieldErrors{Kind: ErrValidation}
	checkName(fe, "name", req.Name, maxCategoryNameLen, true)
	if err := fe.orNil(); err != nil {
		return nil, err
	}

	cat := &models.Category{Name: *req.Name}
	if req.Description != nil {
		cat.Description = *req.Description
	}
	if err := s.saveCategory(ctx, cat, true); err != nil {
		return nil, err
	}

	publish(ctx, l, s.Events, events.TopicProduct, key(cat.ID),
		events.New("category_created", map[string]any{"category_id": cat.ID, "name": cat.Name}))
	return cat, nil
}

// UpdateCategory applies a full (PUT) or partial (PATCH) update.
func (s *CatalogService) UpdateCategory(ctx context.Context, caller Caller, id uint, req transport.CategoryRequest, partial bool) (*models.Category, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update_category", "category_id", id)

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	cat, err := s.GetCategory(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	fe := &FieldErrors{Kind: ErrValidation}
	checkName(fe, "name", req.Name, maxCategoryNameLen, !partial)
	if err := fe.orNil(); err != nil {
		return nil, err
	}

	if req.Name != nil {
		cat.Name = *req.Name
	}
	if req.Description != nil {
		cat.Description = *req.Description
	}
	if err := s.saveCategory(ctx, cat, false); err != nil {
		return nil, err
	}

	s.reindexCategory(ctx, l, cat.ID)
	publish(ctx, l, s.Events, events.TopicProduct, key(cat.ID),
		events.New("category_updated", map[string]any{"category_id": cat.ID, "name": cat.Name}))
	return cat, nil
}

// reindexCategory refreshes the documents of every product in the category,
// which carry the category name.
func (s *CatalogService) reindexCategory(ctx context.Context, l *slog.Logger, categoryID uint) {
	if s.Index == nil {
		return
	}
	items, err := s.Repo.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		l.Warn("reindex_category_failed", "error", err)
		return
	}
	for i := range items {
		reindex(ctx, l, s.Index, &items[i])
	}
}

func (s *CatalogService) saveCategory(ctx context.Context, cat *models.Category, create bool) error {
	const dupMsg = "category with this name already exists."

	taken, err := s.Repo.CategoryNameTaken(ctx, cat.Name, cat.ID)
	if err != nil {
		return err
	}
	if taken {
		return conflict("name", dupMsg)
	}

	if create {
		err = s.Repo.CreateCategory(ctx, cat)
	} else {
		err = s.Repo.SaveCategory(ctx, cat)
	}
	if errors.Is(err, db.ErrDuplicate) {
		return conflict("name", dupMsg)
	}
	return err
}

// DeleteCategory removes the category together with its products.
func (s *CatalogService) DeleteCategory(ctx context.Context, caller Caller, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_category", "category_id", id)

	if err := requireAdmin(caller); err != nil {
		return err
	}

	removed, err := s.Repo.DeleteCategoryCascade(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	case errors.Is(err, db.ErrReferenced):
		l.Warn("delete_category_refused", "status", 409, "reason", "products are referenced by orders")
		return fmt.Errorf("%w: products of this category are referenced by existing orders", ErrRestricted)
	case err != nil:
		return err
	}

	unindex(ctx, l, s.Index, removed...)
	publish(ctx, l, s.Events, events.TopicProduct, key(id),
		events.New("category_deleted", map[string]any{"category_id": id, "product_ids": removed}))
	return nil
}

// ListProducts hides inactive products from customers.
func (s *CatalogService) ListProducts(ctx context.Context, caller Caller) ([]models.Product, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	return s.Repo.ListProducts(ctx, !seesEverything(caller))
}

func (s *CatalogService) GetProduct(ctx context.Context, caller Caller, id uint) (*models.Product, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	p, err := s.Repo.GetProduct(ctx, id, !seesEverything(caller))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) validateProduct(ctx context.Context, req transport.ProductRequest, partial bool) error {
	fe := &FieldErrors{Kind: ErrValidation}

	checkName(fe, "name", req.Name, maxProductNameLen, !partial)

	switch {
	case req.Price == nil:
		if !partial {
			fe.Add("price", msgRequired)
		}
	case !req.Price.IsPositive():
		fe.Add("price", "Ensure this value is greater than 0.")
	case !req.Price.Equal(req.Price.Round(pricePlaces)):
		fe.Add("price", fmt.Sprintf("Ensure that there are no more than %d decimal places.", pricePlaces))
	case req.Price.GreaterThanOrEqual(maxPrice):
		fe.Add("price", fmt.Sprintf("Ensure that there are no more than %d digits in total.", priceMaxDigits))
	}

	if req.Stock != nil && *req.Stock < 0 {
		fe.Add("stock", "Ensure this value is greater than or equal to 0.")
	}

	switch {
	case req.CategoryID == nil:
		if !partial {
			fe.Add("category_id", msgRequired)
		}
	default:
		ok, err := s.Repo.CategoryExists(ctx, *req.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			fe.Add("category_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *req.CategoryID))
		}
	}

	return fe.orNil()
}

func applyProduct(p *models.Product, req transport.ProductRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.CategoryID != nil {
		p.CategoryID = *req.CategoryID
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, caller Caller, req transport.ProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := s.validateProduct(ctx, req, false); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return nil, err
	}

	p := &models.Product{IsActive: true}
	applyProduct(p, req)

	if err := s.createProduct(ctx, p, "Product with this name and category already exists."); err != nil {
		return nil, err
	}

	reindex(ctx, l, s.Index, p)
	publish(ctx, l, s.Events, events.TopicProduct, key(p.ID),
		events.New("product_created", productPayload(p)))
	return p, nil
}

// UpdateProduct applies a full (PUT) or partial (PATCH) update. Only the
// fields present in req are written.
func (s *CatalogService) UpdateProduct(ctx context.Context, caller Caller, id uint, req transport.ProductRequest, partial bool) (*models.Product, error) {
	const dupMsg = "Another product with this name and category already exists."
	l := logging.FromContext(ctx).With("svc", "catalog.update_product", "product_id", id)

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	current, err := s.GetProduct(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateProduct(ctx, req, partial); err != nil {
		l.Warn("product_update_error", "status", 400, "reason", "invalid body", "error", err)
		return nil, err
	}

	target := *current
	applyProduct(&target, req)
	if err := s.checkProductName(ctx, &target, dupMsg); err != nil {
		return nil, err
	}

	p, err := s.Repo.UpdateProduct(ctx, id, productChanges(req))
	switch {
	case errors.Is(err, db.ErrDuplicate):
		return nil, conflict(NonField, dupMsg)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	case err != nil:
		return nil, err
	}

	reindex(ctx, l, s.Index, p)
	publish(ctx, l, s.Events, events.TopicProduct, key(p.ID),
		events.New("product_updated", productPayload(p)))
	return p, nil
}

// productChanges maps the fields present in req to their columns.
func productChanges(req transport.ProductRequest) map[string]any {
	changes := make(map[string]any)
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.CategoryID != nil {
		changes["category_id"] = *req.CategoryID
	}
	if req.Price != nil {
		changes["price"] = *req.Price
	}
	if req.Stock != nil {
		changes["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		changes["is_active"] = *req.IsActive
	}
	return changes
}

func (s *CatalogService) checkProductName(ctx context.Context, p *models.Product, dupMsg string) error {
	taken, err := s.Repo.ProductNameTaken(ctx, p.Name, p.CategoryID, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return conflict(NonField, dupMsg)
	}
	return nil
}

func (s *CatalogService) createProduct(ctx context.Context, p *models.Product, dupMsg string) error {
	if err := s.checkProductName(ctx, p, dupMsg); err != nil {
		return err
	}
	err := s.Repo.CreateProduct(ctx, p)
	if errors.Is(err, db.ErrDuplicate) {
		return conflict(NonField, dupMsg)
	}
	return err
}

// DeleteProduct refuses products that any order still points at.
func (s *CatalogService) DeleteProduct(ctx context.Context, caller Caller, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product", "product_id", id)

	if err := requireAdmin(caller); err != nil {
		return err
	}

	err := s.Repo.DeleteProduct(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	case errors.Is(err, db.ErrReferenced):
		l.Warn("delete_product_refused", "status", 409, "reason", "product is referenced by orders")
		return fmt.Errorf("%w: product is referenced by existing orders", ErrRestricted)
	case err != nil:
		return err
	}

	unindex(ctx, l, s.Index, id)
	publish(ctx, l, s.Events, events.TopicProduct, key(id),
		events.New("product_deleted", map[string]any{"product_id": id}))
	return nil
}

func productPayload(p *models.Product) map[string]any {
	return map[string]any{
		"product_id":  p.ID,
		"name":        p.Name,
		"category_id": p.CategoryID,
		"price":       p.Price.StringFixed(2),
		"stock":       p.Stock,
		"is_active":   p.IsActive,
	}
}
