// Package telemetry exposes OpenTelemetry counters for the session core.
// Metrics are exported to a rotating file under the data directory; an OTEL
// collector can still pick them up via the SDK.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/gluk-w/aiterm/internal/config"
)

var (
	eventsHandled     metric.Int64Counter
	commandsExecuted  metric.Int64Counter
	assistantRequests metric.Int64Counter
)

// Init sets up the meter provider and instrument set. The returned cleanup
// flushes and shuts the provider down.
func Init(ctx context.Context) (func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("aiterm"),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	if err := os.MkdirAll(config.Cfg.DataPath, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	metricsFile := &lumberjack.Logger{
		Filename:   filepath.Join(config.Cfg.DataPath, "aiterm_metrics.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricsFile))
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(60*time.Second)),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("aiterm")
	eventsHandled, err = meter.Int64Counter("aiterm.events.handled",
		metric.WithDescription("Inbound session events handled"))
	if err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	commandsExecuted, err = meter.Int64Counter("aiterm.ssh.commands",
		metric.WithDescription("Remote commands executed over SSH"))
	if err != nil {
		return nil, fmt.Errorf("create commands counter: %w", err)
	}
	assistantRequests, err = meter.Int64Counter("aiterm.assistant.requests",
		metric.WithDescription("Requests dispatched to the assistant backend"))
	if err != nil {
		return nil, fmt.Errorf("create assistant counter: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARNING: meter provider shutdown: %v", err)
		}
		metricsFile.Close()
	}
	return cleanup, nil
}

// CountEvent records one handled inbound event. Safe to call before Init.
func CountEvent(ctx context.Context, event string) {
	if eventsHandled == nil {
		return
	}
	eventsHandled.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// CountCommand records one executed remote command.
func CountCommand(ctx context.Context, source string, success bool) {
	if commandsExecuted == nil {
		return
	}
	commandsExecuted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("success", success),
	))
}

// CountAssistantRequest records one assistant backend call.
func CountAssistantRequest(ctx context.Context, kind string, success bool) {
	if assistantRequests == nil {
		return
	}
	assistantRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", success),
	))
}
