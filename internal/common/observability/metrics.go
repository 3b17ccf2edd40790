package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	purchaseCounter  otelmetric.Int64Counter
	purchaseDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	purchaseCounter, _ := meter.Int64Counter(
		"purchases.processed",
		otelmetric.WithDescription("Number of purchase operations processed"),
	)

	purchaseDuration, _ := meter.Float64Histogram(
		"purchases.duration",
		otelmetric.WithDescription("Purchase operation duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		purchaseCounter:  purchaseCounter,
		purchaseDuration: purchaseDuration,
	}
}

func (o *Observability) RecordPurchaseProcessed(ctx context.Context, operation, status string) {
	if o.purchaseCounter != nil {
		o.purchaseCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordPurchaseDuration(ctx context.Context, operation string, duration time.Duration) {
	if o.purchaseDuration != nil {
		o.purchaseDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("operation", operation),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
