package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/queue"
)

// EventPublisher delivers domain events. *queue.Publisher satisfies it.
type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, event queue.OrderCompletedEvent) error
}

// NopPublisher drops every event. It is used when EVENTS_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCompleted(context.Context, queue.OrderCompletedEvent) error {
	return nil
}

// Event sources.
const (
	sourceOrder        = "order"
	sourceRegistration = "registration"
)

// publishOrderCompleted sends the event for a committed order. Failures are
// logged and never reach the caller: the order is already persisted.
func publishOrderCompleted(ctx context.Context, pub EventPublisher, log *slog.Logger,
	o *model.Order, pkg *model.Package, email, source string) {
	ev := queue.OrderCompletedEvent{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		CustomerEmail: email,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		AllowedMaps:   pkg.AllowedMaps,
		Total:         o.Total,
		Source:        source,
		CompletedAt:   o.DateTime.UTC().Format(time.RFC3339),
	}
	if err := pub.PublishOrderCompleted(ctx, ev); err != nil {
		log.Warn("publish order.completed failed", "order_id", o.ID, "error", err)
	}
}
