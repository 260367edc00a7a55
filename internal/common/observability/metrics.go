package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OTel meter provider. Instruments are exported
// through the default Prometheus registry next to the promauto metrics.
type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	eventCounter    otelmetric.Int64Counter
	eventDuration   otelmetric.Float64Histogram
	fanoutRecipient otelmetric.Int64Counter
}

func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	eventCounter, _ := meter.Int64Counter(
		"notification.events.processed",
		otelmetric.WithDescription("Number of bus events processed"),
	)

	eventDuration, _ := meter.Float64Histogram(
		"notification.events.duration",
		otelmetric.WithDescription("Event processing duration"),
		otelmetric.WithUnit("ms"),
	)

	fanoutRecipient, _ := meter.Int64Counter(
		"notification.fanout.recipients",
		otelmetric.WithDescription("Recipients addressed by admin broadcasts"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		eventCounter:    eventCounter,
		eventDuration:   eventDuration,
		fanoutRecipient: fanoutRecipient,
	}, nil
}

func (o *Observability) RecordEventProcessed(ctx context.Context, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.eventCounter != nil {
		o.eventCounter.Add(ctx, 1, attrs)
	}
	if o.eventDuration != nil {
		o.eventDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordFanout(ctx context.Context, audience string, recipients int) {
	if o == nil || o.fanoutRecipient == nil {
		return
	}
	o.fanoutRecipient.Add(ctx, int64(recipients), otelmetric.WithAttributes(
		attribute.String("audience", audience),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
