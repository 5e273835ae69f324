package cmd

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nvtrung/certprobe-cli/internal/probe"
)

func newTestFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerProbeFlags(flags)
	flags.Bool("progress", true, "")
	flags.Bool("telemetry", false, "")
	return flags
}

func TestResolveProbeConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := resolveProbeConfig(newTestFlags(t))

	if cfg.Concurrency != probe.DefaultConcurrency {
		t.Errorf("expected concurrency %d, got %d", probe.DefaultConcurrency, cfg.Concurrency)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("expected rate limit 0, got %d", cfg.RateLimit)
	}
	if cfg.BatchTimeoutSecs != defaultBatchTimeoutSecs {
		t.Errorf("expected batch timeout %d, got %d", defaultBatchTimeoutSecs, cfg.BatchTimeoutSecs)
	}
	if cfg.ExpiryThresholdDays != defaultExpiryThresholdDays {
		t.Errorf("expected expiry threshold %d, got %d", defaultExpiryThresholdDays, cfg.ExpiryThresholdDays)
	}
	if !cfg.ProgressEnabled {
		t.Error("expected progress enabled by default")
	}
	if cfg.TelemetryEnabled {
		t.Error("expected telemetry disabled by default")
	}
}

func TestResolveProbeConfigFlagOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	flags := newTestFlags(t)
	if err := flags.Parse([]string{"--concurrency", "5", "--expiry-threshold", "14"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := resolveProbeConfig(flags)
	if cfg.Concurrency != 5 {
		t.Errorf("expected concurrency 5, got %d", cfg.Concurrency)
	}
	if cfg.ExpiryThresholdDays != 14 {
		t.Errorf("expected expiry threshold 14, got %d", cfg.ExpiryThresholdDays)
	}
}

func TestResolveProbeConfigFileDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("probe.concurrency", 7)
	viper.Set("probe.telemetry", true)

	cfg := resolveProbeConfig(newTestFlags(t))
	if cfg.Concurrency != 7 {
		t.Errorf("expected config file concurrency 7, got %d", cfg.Concurrency)
	}
	if !cfg.TelemetryEnabled {
		t.Error("expected config file telemetry to apply")
	}
}

func TestResolveProbeConfigFlagBeatsConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("probe.concurrency", 7)

	flags := newTestFlags(t)
	if err := flags.Parse([]string{"--concurrency", "3"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := resolveProbeConfig(flags)
	if cfg.Concurrency != 3 {
		t.Errorf("expected flag to win over config file, got %d", cfg.Concurrency)
	}
}

func TestNormalizeProbeConfigRejectsNonPositive(t *testing.T) {
	cfg := ProbeRuntimeConfig{
		Concurrency:          -1,
		RateLimit:            -5,
		ConnectTimeoutSecs:   0,
		HandshakeTimeoutSecs: 0,
		BatchTimeoutSecs:     -10,
		ExpiryThresholdDays:  0,
	}
	normalizeProbeConfig(&cfg)

	if cfg.Concurrency != probe.DefaultConcurrency {
		t.Errorf("expected default concurrency, got %d", cfg.Concurrency)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("expected rate limit clamped to 0, got %d", cfg.RateLimit)
	}
	if cfg.ConnectTimeoutSecs != defaultConnectTimeoutSecs {
		t.Errorf("expected default connect timeout, got %d", cfg.ConnectTimeoutSecs)
	}
	if cfg.BatchTimeoutSecs != defaultBatchTimeoutSecs {
		t.Errorf("expected default batch timeout, got %d", cfg.BatchTimeoutSecs)
	}
	if cfg.ExpiryThresholdDays != defaultExpiryThresholdDays {
		t.Errorf("expected default expiry threshold, got %d", cfg.ExpiryThresholdDays)
	}
}

func TestProbeRuntimeConfigBuilders(t *testing.T) {
	cfg := ProbeRuntimeConfig{
		Concurrency:          4,
		RateLimit:            2,
		ConnectTimeoutSecs:   3,
		HandshakeTimeoutSecs: 6,
		BatchTimeoutSecs:     30,
		ExpiryThresholdDays:  14,
	}

	prober := cfg.NewProber()
	if prober.ConnectTimeout != 3*time.Second {
		t.Errorf("expected connect timeout 3s, got %v", prober.ConnectTimeout)
	}
	if prober.HandshakeTimeout != 6*time.Second {
		t.Errorf("expected handshake timeout 6s, got %v", prober.HandshakeTimeout)
	}
	if prober.ExpiryThreshold != 14*24*time.Hour {
		t.Errorf("expected expiry threshold 14 days, got %v", prober.ExpiryThreshold)
	}

	runner := cfg.NewRunner()
	if runner.Concurrency != 4 {
		t.Errorf("expected runner concurrency 4, got %d", runner.Concurrency)
	}
	if runner.RateLimit != 2 {
		t.Errorf("expected runner rate limit 2, got %d", runner.RateLimit)
	}
	if runner.BatchTimeout != 30*time.Second {
		t.Errorf("expected batch timeout 30s, got %v", runner.BatchTimeout)
	}
}
