package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skotchmaster/shop_api/internal/models"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type ProductIndexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	RemoveProducts(ctx context.Context, ids ...uint) error
}

const sideEffectTimeout = 5 * time.Second

// publish runs after the write has committed. Failures are logged and never
// reach the caller.
func publish(ctx context.Context, l *slog.Logger, pub EventPublisher, topic, key string, event any) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := pub.PublishEvent(ctx, topic, key, event); err != nil {
		l.Warn("publish_event_failed", "topic", topic, "key", key, "error", err)
	}
}

func reindex(ctx context.Context, l *slog.Logger, idx ProductIndexer, p *models.Product) {
	if idx == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := idx.IndexProduct(ctx, p); err != nil {
		l.Warn("index_product_failed", "product_id", p.ID, "error", err)
	}
}

func unindex(ctx context.Context, l *slog.Logger, idx ProductIndexer, ids ...uint) {
	if idx == nil || len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := idx.RemoveProducts(ctx, ids...); err != nil {
		l.Warn("unindex_products_failed", "product_ids", ids, "error", err)
	}
}
