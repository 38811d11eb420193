package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_api/internal/db/dbtest"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCatalog_WritesRequireAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	cust := f.customer(t, "alice")
	cat := dbtest.SeedCategory(t, f.db, "books")
	p := dbtest.SeedProduct(t, f.db, cat, "book", "1.00", 1, true)

	_, err := f.catalog.CreateCategory(ctx, cust, transport.CategoryRequest{Name: ptr("games")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.catalog.UpdateCategory(ctx, cust, cat.ID, transport.CategoryRequest{Name: ptr("x")}, true)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.catalog.DeleteCategory(ctx, cust, cat.ID), ErrForbidden)

	_, err = f.catalog.CreateProduct(ctx, cust, transport.ProductRequest{Name: ptr("x"), CategoryID: &cat.ID, Price: dec("1")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.catalog.UpdateProduct(ctx, cust, p.ID, transport.ProductRequest{Stock: ptr(9)}, true)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.catalog.DeleteProduct(ctx, cust, p.ID), ErrForbidden)

	_, err = f.catalog.ListProducts(ctx, Caller{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.catalog.ListCategories(ctx, Caller{UserID: 99, Role: models.Role("guest")})
	assert.NoError(t, err)
	_, err = f.catalog.CreateCategory(ctx, Caller{UserID: 99, Role: models.Role("guest")}, transport.CategoryRequest{Name: ptr("g")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCatalog_Categories(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)

	cat, err := f.catalog.CreateCategory(ctx, admin, transport.CategoryRequest{Name: ptr("books"), Description: ptr("paper")})
	require.NoError(t, err)

	_, err = f.catalog.CreateCategory(ctx, admin, transport.CategoryRequest{Name: ptr("books")})
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.catalog.CreateCategory(ctx, admin, transport.CategoryRequest{Description: ptr("no name")})
	require.ErrorIs(t, err, ErrValidation)

	// PATCH keeps the untouched description
	got, err := f.catalog.UpdateCategory(ctx, admin, cat.ID, transport.CategoryRequest{Name: ptr("novels")}, true)
	require.NoError(t, err)
	assert.Equal(t, "novels", got.Name)
	assert.Equal(t, "paper", got.Description)

	// PUT requires the name
	_, err = f.catalog.UpdateCategory(ctx, admin, cat.ID, transport.CategoryRequest{Description: ptr("x")}, false)
	require.ErrorIs(t, err, ErrValidation)

	// renaming to its own name is not a conflict
	_, err = f.catalog.UpdateCategory(ctx, admin, cat.ID, transport.CategoryRequest{Name: ptr("novels")}, false)
	require.NoError(t, err)

	_, err = f.catalog.GetCategory(ctx, admin, cat.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"category_created", "category_updated", "category_updated"}, f.events.types())
}

func TestCatalog_ProductValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	cat := dbtest.SeedCategory(t, f.db, "books")
	missing := cat.ID + 100

	tests := []struct {
		name  string
		req   transport.ProductRequest
		field string
	}{
		{name: "missing name", req: transport.ProductRequest{CategoryID: &cat.ID, Price: dec("1.00")}, field: "name"},
		{name: "blank name", req: transport.ProductRequest{Name: ptr("  "), CategoryID: &cat.ID, Price: dec("1.00")}, field: "name"},
		{name: "zero price", req: transport.ProductRequest{Name: ptr("a"), CategoryID: &cat.ID, Price: dec("0")}, field: "price"},
		{name: "negative price", req: transport.ProductRequest{Name: ptr("a"), CategoryID: &cat.ID, Price: dec("-3")}, field: "price"},
		{name: "three decimals", req: transport.ProductRequest{Name: ptr("a"), CategoryID: &cat.ID, Price: dec("1.005")}, field: "price"},
		{name: "too many digits", req: transport.ProductRequest{Name: ptr("a"), CategoryID: &cat.ID, Price: dec("100000000.00")}, field: "price"},
		{name: "negative stock", req: transport.ProductRequest{Name: ptr("a"), CategoryID: &cat.ID, Price: dec("1"), Stock: ptr(-1)}, field: "stock"},
		{name: "unknown category", req: transport.ProductRequest{Name: ptr("a"), CategoryID: &missing, Price: dec("1")}, field: "category_id"},
		{name: "missing category", req: transport.ProductRequest{Name: ptr("a"), Price: dec("1")}, field: "category_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.CreateProduct(ctx, admin, tt.req)
			require.ErrorIs(t, err, ErrValidation)
			var fe *FieldErrors
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, fe.Fields, tt.field)
		})
	}
}

func TestCatalog_ProductLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	cat := dbtest.SeedCategory(t, f.db, "books")

	p, err := f.catalog.CreateProduct(ctx, admin, transport.ProductRequest{Name: ptr("Go"), CategoryID: &cat.ID, Price: dec("12.5")})
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, "12.50", p.Price.StringFixed(2))
	assert.Equal(t, "books", p.Category.Name)
	assert.Contains(t, f.index.indexed, p.ID)

	_, err = f.catalog.CreateProduct(ctx, admin, transport.ProductRequest{Name: ptr("Go"), CategoryID: &cat.ID, Price: dec("1")})
	require.ErrorIs(t, err, ErrConflict)

	other, err := f.catalog.CreateProduct(ctx, admin, transport.ProductRequest{Name: ptr("Rust"), CategoryID: &cat.ID, Price: dec("1")})
	require.NoError(t, err)
	_, err = f.catalog.UpdateProduct(ctx, admin, other.ID, transport.ProductRequest{Name: ptr("Go")}, true)
	require.ErrorIs(t, err, ErrConflict)

	updated, err := f.catalog.UpdateProduct(ctx, admin, p.ID, transport.ProductRequest{Stock: ptr(7), IsActive: ptr(false)}, true)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Go", updated.Name)

	_, err = f.catalog.UpdateProduct(ctx, admin, p.ID, transport.ProductRequest{Stock: ptr(1)}, false)
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.catalog.DeleteProduct(ctx, admin, p.ID))
	assert.ErrorIs(t, f.catalog.DeleteProduct(ctx, admin, p.ID), ErrNotFound)
	assert.Contains(t, f.index.removed, p.ID)
}

func TestCatalog_UpdateProductCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     func(games *models.Category) transport.ProductRequest
		partial bool
		wantErr error
		wantCat string
	}{
		{
			name:    "patch moves category",
			req:     func(g *models.Category) transport.ProductRequest { return transport.ProductRequest{CategoryID: &g.ID} },
			partial: true,
			wantCat: "games",
		},
		{
			name: "put moves category",
			req: func(g *models.Category) transport.ProductRequest {
				return transport.ProductRequest{Name: ptr("chess"), CategoryID: &g.ID, Price: dec("20")}
			},
			wantCat: "games",
		},
		{
			name: "name taken in target category",
			req: func(g *models.Category) transport.ProductRequest {
				return transport.ProductRequest{Name: ptr("go"), CategoryID: &g.ID}
			},
			partial: true,
			wantErr: ErrConflict,
			wantCat: "books",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := context.Background()
			admin := f.admin(t)
			books := dbtest.SeedCategory(t, f.db, "books")
			games := dbtest.SeedCategory(t, f.db, "games")
			p := dbtest.SeedProduct(t, f.db, books, "chess", "19.99", 4, true)
			dbtest.SeedProduct(t, f.db, games, "go", "5.00", 1, true)

			got, err := f.catalog.UpdateProduct(ctx, admin, p.ID, tt.req(games), tt.partial)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCat, got.Category.Name)
				assert.Equal(t, tt.wantCat, f.index.indexed[p.ID].Category.Name)
			}

			stored, err := f.repo.GetProduct(ctx, p.ID, false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCat, stored.Category.Name)
			assert.Equal(t, 4, stored.Stock)
		})
	}
}

func TestCatalog_PatchKeepsStockTakenByOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	buyer := f.customer(t, "bob")
	cat := dbtest.SeedCategory(t, f.db, "books")
	p := dbtest.SeedProduct(t, f.db, cat, "dune", "10.00", 1, true)

	afterFirstRead(t, f.db, "products", func() {
		_, err := f.repo.CreateOrder(ctx, buyer.UserID, p.ID, 1)
		assert.NoError(t, err)
	})

	got, err := f.catalog.UpdateProduct(ctx, admin, p.ID, transport.ProductRequest{Name: ptr("renamed")}, true)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 0, dbtest.Stock(t, f.db, p.ID))
	assert.Equal(t, 0, f.index.indexed[p.ID].Stock)

	orders, err := f.repo.ListOrders(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCatalog_RenameCategoryReindexesProducts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	cat := dbtest.SeedCategory(t, f.db, "books")
	a := dbtest.SeedProduct(t, f.db, cat, "dune", "10.00", 1, true)
	b := dbtest.SeedProduct(t, f.db, cat, "emma", "8.00", 2, false)

	_, err := f.catalog.UpdateCategory(ctx, admin, cat.ID, transport.CategoryRequest{Name: ptr("novels")}, true)
	require.NoError(t, err)

	require.Contains(t, f.index.indexed, a.ID)
	require.Contains(t, f.index.indexed, b.ID)
	assert.Equal(t, "novels", f.index.indexed[a.ID].Category.Name)
	assert.Equal(t, "novels", f.index.indexed[b.ID].Category.Name)
}

func TestCatalog_CustomerSeesOnlyActive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	cust := f.customer(t, "alice")
	cat := dbtest.SeedCategory(t, f.db, "books")
	on := dbtest.SeedProduct(t, f.db, cat, "on", "1.00", 1, true)
	off := dbtest.SeedProduct(t, f.db, cat, "off", "1.00", 1, false)

	list, err := f.catalog.ListProducts(ctx, cust)
	require.NoError(t, err)
	for _, p := range list {
		assert.True(t, p.IsActive)
	}
	require.Len(t, list, 1)
	assert.Equal(t, on.ID, list[0].ID)

	all, err := f.catalog.ListProducts(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.catalog.GetProduct(ctx, cust, off.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := f.catalog.GetProduct(ctx, admin, off.ID)
	require.NoError(t, err)
	assert.Equal(t, off.ID, got.ID)
}

func TestCatalog_DeleteRestricted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	cust := f.customer(t, "alice")
	cat := dbtest.SeedCategory(t, f.db, "books")
	p := dbtest.SeedProduct(t, f.db, cat, "book", "10.00", 5, true)

	_, err := f.orders.CreateOrder(ctx, cust, transport.CreateOrderRequest{ProductID: &p.ID, Quantity: ptr(1)})
	require.NoError(t, err)

	assert.ErrorIs(t, f.catalog.DeleteProduct(ctx, admin, p.ID), ErrRestricted)
	assert.ErrorIs(t, f.catalog.DeleteCategory(ctx, admin, cat.ID), ErrRestricted)

	_, err = f.catalog.GetCategory(ctx, admin, cat.ID)
	assert.NoError(t, err)
}

func TestCatalog_DeleteCategoryCascades(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	cat := dbtest.SeedCategory(t, f.db, "books")
	a := dbtest.SeedProduct(t, f.db, cat, "a", "1.00", 1, true)
	b := dbtest.SeedProduct(t, f.db, cat, "b", "1.00", 1, true)

	require.NoError(t, f.catalog.DeleteCategory(ctx, admin, cat.ID))
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, f.index.removed)

	_, err := f.catalog.GetProduct(ctx, admin, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.catalog.DeleteCategory(ctx, admin, cat.ID), ErrNotFound)
}
