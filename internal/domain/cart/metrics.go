package cart

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// NewMetricsObserver returns an Observer that records cart changes and
// cart value on the given meter.
func NewMetricsObserver(meter metric.Meter) (Observer, error) {
	changes, err := meter.Int64Counter("studio.cart.changes",
		metric.WithDescription("Committed cart state changes"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create changes counter")
	}
	value, err := meter.Float64Histogram("studio.cart.value",
		metric.WithDescription("Cart total after each change"),
		metric.WithUnit("INR"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create value histogram")
	}
	items, err := meter.Int64Histogram("studio.cart.items",
		metric.WithDescription("Cart item count after each change"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create items histogram")
	}

	return func(_ string, snap Snapshot) {
		ctx := context.Background()
		attrs := metric.WithAttributes(
			attribute.Bool("physical", snap.HasPhysicalItems),
			attribute.Bool("digital", snap.HasDigitalItems),
		)
		changes.Add(ctx, 1, attrs)
		value.Record(ctx, snap.TotalPrice.InexactFloat64(), attrs)
		items.Record(ctx, int64(snap.TotalItems), attrs)
	}, nil
}
