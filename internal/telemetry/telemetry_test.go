package telemetry

import (
	"context"
	"testing"

	"syndicate/internal/config"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "syndicate-test", config.TracingConfig{Enabled: true})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	cfg := config.TracingConfig{Endpoint: "http://localhost:4318", Enabled: false}
	shutdown, err := Setup(context.Background(), "syndicate-test", cfg)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
