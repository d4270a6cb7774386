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
	paymentEvents     metric.Int64Counter
	ledgerApplied     metric.Int64Counter
	receiptsIssued    metric.Int64Counter
	gatewayCalls      metric.Int64Counter
	campaignMessages  metric.Int64Counter
	assistantRequests metric.Int64Counter
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "glazeops"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	var err error
	if m.paymentEvents, err = meter.Int64Counter("glazeops_payment_events_total"); err != nil {
		return nil, err
	}
	if m.ledgerApplied, err = meter.Int64Counter("glazeops_ledger_applications_total"); err != nil {
		return nil, err
	}
	if m.receiptsIssued, err = meter.Int64Counter("glazeops_receipts_issued_total"); err != nil {
		return nil, err
	}
	if m.gatewayCalls, err = meter.Int64Counter("glazeops_gateway_calls_total"); err != nil {
		return nil, err
	}
	if m.campaignMessages, err = meter.Int64Counter("glazeops_campaign_messages_total"); err != nil {
		return nil, err
	}
	if m.assistantRequests, err = meter.Int64Counter("glazeops_assistant_requests_total"); err != nil {
		return nil, err
	}
	return m, nil
}

// NewNoop returns instruments backed by a no-op provider, for tests.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordPaymentEvent counts webhook events by gateway, type and outcome.
func (m *Metrics) RecordPaymentEvent(ctx context.Context, gateway, eventType, outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("gateway", strings.TrimSpace(gateway)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...))
}

// RecordLedgerApplied counts invoice balance changes by source.
func (m *Metrics) RecordLedgerApplied(ctx context.Context, source, status string) {
	if m == nil {
		return
	}
	m.ledgerApplied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.String("status", strings.TrimSpace(status)),
	)...))
}

func (m *Metrics) RecordReceiptIssued(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.receiptsIssued.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("payment_method", strings.TrimSpace(method)),
	)...))
}

// RecordGatewayCall counts outbound calls to payment and messaging APIs.
func (m *Metrics) RecordGatewayCall(ctx context.Context, gateway, operation, outcome string) {
	if m == nil {
		return
	}
	m.gatewayCalls.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("gateway", strings.TrimSpace(gateway)),
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...))
}

func (m *Metrics) RecordCampaignMessage(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.campaignMessages.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("status", strings.TrimSpace(status)),
	)...))
}

func (m *Metrics) RecordAssistantRequest(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.assistantRequests.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"gateway":        {},
	"event_type":     {},
	"outcome":        {},
	"source":         {},
	"status":         {},
	"payment_method": {},
	"operation":      {},
	"provider":       {},
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
