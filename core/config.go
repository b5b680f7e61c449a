package core

import (
	"fmt"
	"strings"
	"time"
)

// HealthBands holds the latency cutoffs and the scores they map to. The
// three-band shape is the contract; the literal cutoffs are tunable policy.
type HealthBands struct {
	FastUnderMS   int     `koanf:"fast_under_ms" mapstructure:"fast_under_ms"`
	MediumUnderMS int     `koanf:"medium_under_ms" mapstructure:"medium_under_ms"`
	SlowUnderMS   int     `koanf:"slow_under_ms" mapstructure:"slow_under_ms"`
	FastScore     float64 `koanf:"fast_score" mapstructure:"fast_score"`
	MediumScore   float64 `koanf:"medium_score" mapstructure:"medium_score"`
	SlowScore     float64 `koanf:"slow_score" mapstructure:"slow_score"`
	DegradedScore float64 `koanf:"degraded_score" mapstructure:"degraded_score"`
	FailureScore  float64 `koanf:"failure_score" mapstructure:"failure_score"`
}

type HealthConfig struct {
	IntervalSeconds      int         `koanf:"interval_seconds" mapstructure:"interval_seconds"`
	ProbeTimeoutMS       int         `koanf:"probe_timeout_ms" mapstructure:"probe_timeout_ms"`
	OperationalThreshold float64     `koanf:"operational_threshold" mapstructure:"operational_threshold"`
	Bands                HealthBands `koanf:"bands" mapstructure:"bands"`
}

func (c HealthConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c HealthConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

type WebhookSettings struct {
	// Secret enables inbound signature validation when non-empty.
	Secret          string `koanf:"secret" mapstructure:"secret"`
	SignatureHeader string `koanf:"signature_header" mapstructure:"signature_header"`
	TimestampHeader string `koanf:"timestamp_header" mapstructure:"timestamp_header"`
	// RetryOffsetHours are cumulative offsets from the original failure. The
	// defaults span the 24h delivery SLA merchants are contractually given.
	RetryOffsetHours  []int `koanf:"retry_offset_hours" mapstructure:"retry_offset_hours"`
	DeliveryTimeoutMS int   `koanf:"delivery_timeout_ms" mapstructure:"delivery_timeout_ms"`
}

func (c WebhookSettings) RetryOffsets() []time.Duration {
	out := make([]time.Duration, 0, len(c.RetryOffsetHours))
	for _, hours := range c.RetryOffsetHours {
		out = append(out, time.Duration(hours)*time.Hour)
	}
	return out
}

func (c WebhookSettings) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutMS) * time.Millisecond
}

type CacheSettings struct {
	KeyPrefix         string `koanf:"key_prefix" mapstructure:"key_prefix"`
	EnabledTTLSeconds int    `koanf:"enabled_ttl_seconds" mapstructure:"enabled_ttl_seconds"`
}

func (c CacheSettings) EnabledTTL() time.Duration {
	return time.Duration(c.EnabledTTLSeconds) * time.Second
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Environment string          `koanf:"environment" mapstructure:"environment"`
	Health      HealthConfig    `koanf:"health" mapstructure:"health"`
	Webhooks    WebhookSettings `koanf:"webhooks" mapstructure:"webhooks"`
	Cache       CacheSettings   `koanf:"cache" mapstructure:"cache"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "carrier-billing",
		Environment: "production",
		Health: HealthConfig{
			IntervalSeconds:      300,
			ProbeTimeoutMS:       10000,
			OperationalThreshold: 0.5,
			Bands: HealthBands{
				FastUnderMS:   2000,
				MediumUnderMS: 5000,
				SlowUnderMS:   10000,
				FastScore:     1.0,
				MediumScore:   0.8,
				SlowScore:     0.5,
				DegradedScore: 0.3,
				FailureScore:  0.1,
			},
		},
		Webhooks: WebhookSettings{
			SignatureHeader:   "X-Billing-Signature",
			TimestampHeader:   "X-Billing-Timestamp",
			RetryOffsetHours:  []int{4, 8, 12, 16, 20, 24},
			DeliveryTimeoutMS: 30000,
		},
		Cache: CacheSettings{
			KeyPrefix:         "carrier-billing::operator_enabled::v1",
			EnabledTTLSeconds: 60,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Health.IntervalSeconds < 0 {
		return fmt.Errorf("core: health interval_seconds must not be negative")
	}
	if c.Health.OperationalThreshold < 0 || c.Health.OperationalThreshold >= 1 {
		return fmt.Errorf("core: health operational_threshold must be in [0,1)")
	}
	bands := c.Health.Bands
	if bands.FastUnderMS > 0 && bands.MediumUnderMS > 0 && bands.FastUnderMS >= bands.MediumUnderMS {
		return fmt.Errorf("core: health bands must be strictly increasing")
	}
	if bands.MediumUnderMS > 0 && bands.SlowUnderMS > 0 && bands.MediumUnderMS >= bands.SlowUnderMS {
		return fmt.Errorf("core: health bands must be strictly increasing")
	}
	previous := 0
	for _, hours := range c.Webhooks.RetryOffsetHours {
		if hours <= previous {
			return fmt.Errorf("core: webhook retry_offset_hours must be strictly increasing")
		}
		previous = hours
	}
	return nil
}
