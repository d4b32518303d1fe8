package tracing

import (
	"context"
	"testing"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &config.AppConfig{Name: "test"}, &config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), &config.AppConfig{Name: "test"}, &config.TracingConfig{Enabled: true, Exporter: "zipkin"})
	if err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestSampleRatioClamp(t *testing.T) {
	tests := map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 3: 1}
	for in, want := range tests {
		if got := sampleRatio(in); got != want {
			t.Errorf("sampleRatio(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestStartWithoutProvider(t *testing.T) {
	ctx, span := Start(context.Background(), "noop")
	defer span.End()
	if ctx == nil {
		t.Fatal("nil context")
	}
}
