package telemetry

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestOTLPSmoke(t *testing.T) {
	if os.Getenv("SKILLRT_OTLP_SMOKE_TEST") != "1" {
		t.Skip("set SKILLRT_OTLP_SMOKE_TEST=1 to run")
	}

	endpoint := os.Getenv("SKILLRT_TELEMETRY_OTLP_ENDPOINT")
	if endpoint == "" {
		t.Skip("set SKILLRT_TELEMETRY_OTLP_ENDPOINT for OTLP smoke test")
	}

	cfg := Config{
		Exporter:     "otlp",
		OTLPEndpoint: endpoint,
	}
	if os.Getenv("SKILLRT_TELEMETRY_OTLP_INSECURE") == "true" {
		cfg.OTLPInsecure = true
	}
	if raw := os.Getenv("SKILLRT_TELEMETRY_OTLP_TIMEOUT_SECONDS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.OTLPTimeoutSeconds = parsed
		}
	}

	shutdown, err := InitWithConfig("telemetry-smoke-test", "v0.1.0", cfg)
	if err != nil {
		t.Fatalf("failed to init telemetry: %v", err)
	}

	ctx, span := otel.Tracer("skillrt/telemetry-smoke").Start(context.Background(), "smoke.span")
	span.SetAttributes(SkillAttributes("smoke", "run-smoke", "")...)
	span.End()

	metrics, err := NewSkillMetrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	metrics.RecordRun(ctx, "smoke", true, "", 1)

	time.Sleep(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("telemetry shutdown failed: %v", err)
	}
}
