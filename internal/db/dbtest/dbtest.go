// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/models"
)

func New(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func SeedUser(t *testing.T, gdb *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	return u
}

func SeedCategory(t *testing.T, gdb *gorm.DB, name string) *models.Category {
	t.Helper()

	c := &models.Category{Name: name}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("seed category %q: %v", name, err)
	}
	return c
}

func SeedProduct(t *testing.T, gdb *gorm.DB, cat *models.Category, name, price string, stock int, active bool) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:       name,
		CategoryID: cat.ID,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		IsActive:   active,
	}
	if err := gdb.Omit(clause.Associations).Create(p).Error; err != nil {
		t.Fatalf("seed product %q: %v", name, err)
	}
	p.Category = *cat
	return p
}

func Stock(t *testing.T, gdb *gorm.DB, productID uint) int {
	t.Helper()

	var p models.Product
	if err := gdb.First(&p, productID).Error; err != nil {
		t.Fatalf("load product %d: %v", productID, err)
	}
	return p.Stock
}
