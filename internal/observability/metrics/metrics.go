package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	admissions          metric.Int64Counter
	capacityRejections  metric.Int64Counter
	codeCollisions      metric.Int64Counter
	generationExhausted metric.Int64Counter
	checkins            metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "examgate"
	}
	meter := provider.Meter(name)

	admissions, err := meter.Int64Counter("examgate_admissions_total")
	if err != nil {
		return nil, err
	}
	capacityRejections, err := meter.Int64Counter("examgate_capacity_rejections_total")
	if err != nil {
		return nil, err
	}
	codeCollisions, err := meter.Int64Counter("examgate_code_collisions_total")
	if err != nil {
		return nil, err
	}
	generationExhausted, err := meter.Int64Counter("examgate_code_generation_exhausted_total")
	if err != nil {
		return nil, err
	}
	checkins, err := meter.Int64Counter("examgate_checkins_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		admissions:          admissions,
		capacityRejections:  capacityRejections,
		codeCollisions:      codeCollisions,
		generationExhausted: generationExhausted,
		checkins:            checkins,
	}, nil
}

// RecordAdmission increments successful admission counts.
func (m *Metrics) RecordAdmission(ctx context.Context, packageType, sessionTime string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("package_type", strings.TrimSpace(packageType)),
		attribute.String("session_time", strings.TrimSpace(sessionTime)),
	)
	m.admissions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCapacityRejection increments capacity rejection counts.
func (m *Metrics) RecordCapacityRejection(ctx context.Context, packageType, sessionTime string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("package_type", strings.TrimSpace(packageType)),
		attribute.String("session_time", strings.TrimSpace(sessionTime)),
	)
	m.capacityRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCodeCollision increments generation collision counts.
func (m *Metrics) RecordCodeCollision(ctx context.Context, packageType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("package_type", strings.TrimSpace(packageType)))
	m.codeCollisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGenerationExhausted increments exhausted-retry counts. This firing
// at all warrants an operational alert.
func (m *Metrics) RecordGenerationExhausted(ctx context.Context, packageType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("package_type", strings.TrimSpace(packageType)))
	m.generationExhausted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckin increments exam-day check-in counts.
func (m *Metrics) RecordCheckin(ctx context.Context, packageType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("package_type", strings.TrimSpace(packageType)))
	m.checkins.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":     {},
	"status_code":  {},
	"package_type": {},
	"session_time": {},
	"reason":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
