package core

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Health.Interval() != 5*time.Minute {
		t.Fatalf("default probe interval = %v", cfg.Health.Interval())
	}
	if cfg.Health.OperationalThreshold != 0.5 {
		t.Fatalf("default threshold = %v", cfg.Health.OperationalThreshold)
	}
	offsets := cfg.Webhooks.RetryOffsets()
	want := []time.Duration{4 * time.Hour, 8 * time.Hour, 12 * time.Hour, 16 * time.Hour, 20 * time.Hour, 24 * time.Hour}
	if len(offsets) != len(want) {
		t.Fatalf("expected %d retry offsets, got %d", len(want), len(offsets))
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Fatalf("offset[%d] = %v, want %v", i, offsets[i], want[i])
		}
	}
}

func TestConfigValidateRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "  " }},
		{"threshold at one", func(c *Config) { c.Health.OperationalThreshold = 1.0 }},
		{"negative threshold", func(c *Config) { c.Health.OperationalThreshold = -0.1 }},
		{"bands not increasing", func(c *Config) { c.Health.Bands.MediumUnderMS = c.Health.Bands.FastUnderMS }},
		{"slow band below medium", func(c *Config) { c.Health.Bands.SlowUnderMS = 1 }},
		{"retry offsets not increasing", func(c *Config) { c.Webhooks.RetryOffsetHours = []int{4, 4, 12} }},
		{"retry offset zero", func(c *Config) { c.Webhooks.RetryOffsetHours = []int{0, 4} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolveConfigLayersRuntimeOverDefaults(t *testing.T) {
	deps := DefaultDependencies(Config{
		Health: HealthConfig{OperationalThreshold: 0.7},
		Webhooks: WebhookSettings{
			Secret: "hook-secret",
		},
	})

	resolved, err := ResolveConfig(context.Background(), deps)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Health.OperationalThreshold != 0.7 {
		t.Fatalf("runtime threshold lost, got %v", resolved.Health.OperationalThreshold)
	}
	if resolved.Webhooks.Secret != "hook-secret" {
		t.Fatalf("runtime secret lost, got %q", resolved.Webhooks.Secret)
	}
	// Untouched fields keep their defaults.
	if resolved.Health.IntervalSeconds != 300 {
		t.Fatalf("default interval lost, got %d", resolved.Health.IntervalSeconds)
	}
	if resolved.Cache.KeyPrefix == "" {
		t.Fatal("default cache prefix lost")
	}
}

func TestResolveConfigReadsLoader(t *testing.T) {
	deps := DefaultDependencies(Config{})
	deps.ConfigProvider = NewCfgxConfigProvider(NewStaticRawConfigLoader(map[string]any{
		"environment": "sandbox",
		"health": map[string]any{
			"interval_seconds": 120,
		},
	}))

	resolved, err := ResolveConfig(context.Background(), deps)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Environment != "sandbox" {
		t.Fatalf("environment = %q", resolved.Environment)
	}
	if resolved.Health.IntervalSeconds != 120 {
		t.Fatalf("interval = %d", resolved.Health.IntervalSeconds)
	}
	if resolved.ServiceName != "carrier-billing" {
		t.Fatalf("service name default lost, got %q", resolved.ServiceName)
	}
}

func TestConfigToLayerMapOmitsZeroValues(t *testing.T) {
	layer := configToLayerMap(Config{Environment: "staging"}, false)
	if _, ok := layer["service_name"]; ok {
		t.Fatal("zero service_name should be omitted from sparse layers")
	}
	if layer["environment"] != "staging" {
		t.Fatalf("environment = %v", layer["environment"])
	}
	if _, ok := layer["health"]; ok {
		t.Fatal("empty health section should be omitted")
	}
}
