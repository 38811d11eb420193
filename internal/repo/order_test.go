package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/db/dbtest"
	"github.com/Skotchmaster/shop_api/internal/models"
)

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gdb := dbtest.New(t)
	r := &GormRepo{DB: gdb}

	cust := dbtest.SeedUser(t, gdb, "alice", models.RoleCustomer)
	cat := dbtest.SeedCategory(t, gdb, "books")
	p := dbtest.SeedProduct(t, gdb, cat, "Go in Action", "10.00", 5, true)

	order, err := r.CreateOrder(ctx, cust.ID, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "books", order.Product.Category.Name)
	assert.Equal(t, "30.00", order.TotalPrice().StringFixed(2))
	assert.Equal(t, 2, dbtest.Stock(t, gdb, p.ID))
}

func TestCreateOrder_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gdb := dbtest.New(t)
	r := &GormRepo{DB: gdb}

	cust := dbtest.SeedUser(t, gdb, "alice", models.RoleCustomer)
	cat := dbtest.SeedCategory(t, gdb, "books")
	active := dbtest.SeedProduct(t, gdb, cat, "active", "1.50", 2, true)
	hidden := dbtest.SeedProduct(t, gdb, cat, "hidden", "1.50", 10, false)

	_, err := r.CreateOrder(ctx, cust.ID, 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = r.CreateOrder(ctx, cust.ID, hidden.ID, 1)
	assert.ErrorIs(t, err, ErrProductInactive)
	assert.Equal(t, 10, dbtest.Stock(t, gdb, hidden.ID))

	_, err = r.CreateOrder(ctx, cust.ID, active.ID, 3)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var se *StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Available)
	assert.Equal(t, 2, dbtest.Stock(t, gdb, active.ID))

	var count int64
	require.NoError(t, gdb.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTransitionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gdb := dbtest.New(t)
	r := &GormRepo{DB: gdb}

	cust := dbtest.SeedUser(t, gdb, "alice", models.RoleCustomer)
	cat := dbtest.SeedCategory(t, gdb, "books")
	p := dbtest.SeedProduct(t, gdb, cat, "book", "10.00", 5, true)

	order, err := r.CreateOrder(ctx, cust.ID, p.ID, 2)
	require.NoError(t, err)

	stale := *order

	require.NoError(t, r.TransitionOrder(ctx, order, models.StatusCancelled, true))
	assert.Equal(t, models.StatusCancelled, order.Status)
	assert.Equal(t, 5, dbtest.Stock(t, gdb, p.ID))

	// a second writer still holding the pending snapshot loses the race
	err = r.TransitionOrder(ctx, &stale, models.StatusConfirmed, false)
	assert.ErrorIs(t, err, ErrStaleStatus)

	got, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestListOrders_Scoped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gdb := dbtest.New(t)
	r := &GormRepo{DB: gdb}

	alice := dbtest.SeedUser(t, gdb, "alice", models.RoleCustomer)
	bob := dbtest.SeedUser(t, gdb, "bob", models.RoleCustomer)
	cat := dbtest.SeedCategory(t, gdb, "books")
	p := dbtest.SeedProduct(t, gdb, cat, "book", "10.00", 10, true)

	first, err := r.CreateOrder(ctx, alice.ID, p.ID, 1)
	require.NoError(t, err)
	second, err := r.CreateOrder(ctx, alice.ID, p.ID, 1)
	require.NoError(t, err)
	_, err = r.CreateOrder(ctx, bob.ID, p.ID, 1)
	require.NoError(t, err)

	all, err := r.ListOrders(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := r.ListOrders(ctx, &alice.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, second.ID, own[0].ID)
	assert.Equal(t, first.ID, own[1].ID)
}

func TestDeleteProduct_Restricted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gdb := dbtest.New(t)
	r := &GormRepo{DB: gdb}

	cust := dbtest.SeedUser(t, gdb, "alice", models.RoleCustomer)
	cat := dbtest.SeedCategory(t, gdb, "books")
	ordered := dbtest.SeedProduct(t, gdb, cat, "ordered", "10.00", 5, true)
	free := dbtest.SeedProduct(t, gdb, cat, "free", "10.00", 5, true)

	_, err := r.CreateOrder(ctx, cust.ID, ordered.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, r.DeleteProduct(ctx, ordered.ID), db.ErrReferenced)
	assert.NoError(t, r.DeleteProduct(ctx, free.ID))
	assert.ErrorIs(t, r.DeleteProduct(ctx, free.ID), gorm.ErrRecordNotFound)

	_, err = r.DeleteCategoryCascade(ctx, cat.ID)
	assert.ErrorIs(t, err, db.ErrReferenced)
}

func TestDeleteCategoryCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gdb := dbtest.New(t)
	r := &GormRepo{DB: gdb}

	cat := dbtest.SeedCategory(t, gdb, "books")
	other := dbtest.SeedCategory(t, gdb, "games")
	a := dbtest.SeedProduct(t, gdb, cat, "a", "1.00", 1, true)
	b := dbtest.SeedProduct(t, gdb, cat, "b", "1.00", 1, false)
	keep := dbtest.SeedProduct(t, gdb, other, "c", "1.00", 1, true)

	ids, err := r.DeleteCategoryCascade(ctx, cat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, ids)

	left, err := r.ListProducts(ctx, false)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep.ID, left[0].ID)

	_, err = r.GetCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
