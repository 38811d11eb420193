package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/db/dbtest"
	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/tokens"
)

type recorder struct {
	mu     sync.Mutex
	topics []string
	events []events.Event
}

func (r *recorder) PublishEvent(_ context.Context, topic, _ string, ev any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	if e, ok := ev.(events.Event); ok {
		r.events = append(r.events, e)
	}
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[uint]models.Product
	removed []uint
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = make(map[uint]models.Product)
	}
	f.indexed[p.ID] = *p
	return nil
}

func (f *fakeIndex) RemoveProducts(_ context.Context, ids ...uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ids...)
	return nil
}

type fixture struct {
	db      *gorm.DB
	repo    *repo.GormRepo
	events  *recorder
	index   *fakeIndex
	auth    *AuthService
	catalog *CatalogService
	orders  *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := dbtest.New(t)
	r := &repo.GormRepo{DB: gdb}
	rec := &recorder{}
	idx := &fakeIndex{}

	return &fixture{
		db:     gdb,
		repo:   r,
		events: rec,
		index:  idx,
		auth: &AuthService{
			Repo: r,
			Tokens: &tokens.Issuer{
				AccessSecret:  []byte("test-access-secret"),
				RefreshSecret: []byte("test-refresh-secret"),
				AccessTTL:     15 * time.Minute,
				RefreshTTL:    time.Hour,
			},
			Events: rec,
		},
		catalog: &CatalogService{Repo: r, Events: rec, Index: idx},
		orders:  &OrderService{Repo: r, Events: rec, Index: idx},
	}
}

func (f *fixture) admin(t *testing.T) Caller {
	u := dbtest.SeedUser(t, f.db, "admin", models.RoleAdmin)
	return Caller{UserID: u.ID, Role: u.Role}
}

func (f *fixture) customer(t *testing.T, name string) Caller {
	u := dbtest.SeedUser(t, f.db, name, models.RoleCustomer)
	return Caller{UserID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T { return &v }

// afterFirstRead runs fn once, right after the first query against table
// completes. It lets a test slip a concurrent write between a read and the
// write that follows it.
func afterFirstRead(t *testing.T, gdb *gorm.DB, table string, fn func()) {
	t.Helper()
	var fired atomic.Bool
	err := gdb.Callback().Query().After("gorm:query").Register("test:after_first_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table && fired.CompareAndSwap(false, true) {
			fn()
		}
	})
	require.NoError(t, err)
}
