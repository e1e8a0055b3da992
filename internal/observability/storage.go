package observability

import (
	"context"
	"errors"
	"time"

	"intake/internal/models"
	"intake/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("intake/storage")
	meter := otel.Meter("intake/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	// Not-found is an answer, not a failure.
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		if err != nil {
			span.SetAttributes(attribute.Bool("storage.not_found", true))
		}
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	ctx, span := s.startSpan(ctx, "SaveLead")
	start := time.Now()
	err := s.inner.SaveLead(ctx, lead)
	if err == nil {
		span.SetAttributes(attribute.Int64("lead_id", lead.ID))
	}
	s.record(ctx, span, "SaveLead", start, err)
	return err
}

func (s *InstrumentedStorage) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	ctx, span := s.startSpan(ctx, "GetLead", attribute.Int64("lead_id", id))
	start := time.Now()
	result, err := s.inner.GetLead(ctx, id)
	s.record(ctx, span, "GetLead", start, err)
	return result, err
}

func (s *InstrumentedStorage) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	ctx, span := s.startSpan(ctx, "ListLeads",
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)
	start := time.Now()
	result, err := s.inner.ListLeads(ctx, limit, offset)
	s.record(ctx, span, "ListLeads", start, err)
	return result, err
}

func (s *InstrumentedStorage) CountLeads(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "CountLeads")
	start := time.Now()
	result, err := s.inner.CountLeads(ctx)
	s.record(ctx, span, "CountLeads", start, err)
	return result, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}

var _ storage.Storage = (*InstrumentedStorage)(nil)
