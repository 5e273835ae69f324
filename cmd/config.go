package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nvtrung/certprobe-cli/internal/probe"
)

const (
	defaultConnectTimeoutSecs   = 5
	defaultHandshakeTimeoutSecs = 5
	defaultBatchTimeoutSecs     = 60
	defaultExpiryThresholdDays  = 30
)

// ProbeRuntimeConfig consolidates flag and config file settings shared by
// the probe and serve commands.
type ProbeRuntimeConfig struct {
	Concurrency          int
	RateLimit            int // probes per second, 0 = unlimited
	ConnectTimeoutSecs   int
	HandshakeTimeoutSecs int
	BatchTimeoutSecs     int
	ExpiryThresholdDays  int
	ProgressEnabled      bool
	TelemetryEnabled     bool
}

func newProbeRuntimeConfig() ProbeRuntimeConfig {
	return ProbeRuntimeConfig{
		Concurrency:          probe.DefaultConcurrency,
		RateLimit:            0,
		ConnectTimeoutSecs:   defaultConnectTimeoutSecs,
		HandshakeTimeoutSecs: defaultHandshakeTimeoutSecs,
		BatchTimeoutSecs:     defaultBatchTimeoutSecs,
		ExpiryThresholdDays:  defaultExpiryThresholdDays,
		ProgressEnabled:      true,
		TelemetryEnabled:     false,
	}
}

// registerProbeFlags adds the probe runtime flags shared by probe and serve.
func registerProbeFlags(flags *pflag.FlagSet) {
	defaults := newProbeRuntimeConfig()
	flags.Int("concurrency", defaults.Concurrency, "Maximum concurrent probes")
	flags.Int("probe-rate", defaults.RateLimit, "Probes per second across the batch (0 = unlimited)")
	flags.Int("connect-timeout", defaults.ConnectTimeoutSecs, "TCP connect timeout in seconds")
	flags.Int("handshake-timeout", defaults.HandshakeTimeoutSecs, "TLS handshake timeout in seconds")
	flags.Int("batch-timeout", defaults.BatchTimeoutSecs, "Wall-clock limit for the whole batch in seconds")
	flags.Int("expiry-threshold", defaults.ExpiryThresholdDays, "Days before expiry to flag a certificate as expiring_soon")
}

// resolveProbeConfig reads the runtime config from flags, then merges config
// file values for any flag the user did not explicitly set.
func resolveProbeConfig(flags *pflag.FlagSet) ProbeRuntimeConfig {
	cfg := newProbeRuntimeConfig()

	cfg.Concurrency, _ = flags.GetInt("concurrency")
	cfg.RateLimit, _ = flags.GetInt("probe-rate")
	cfg.ConnectTimeoutSecs, _ = flags.GetInt("connect-timeout")
	cfg.HandshakeTimeoutSecs, _ = flags.GetInt("handshake-timeout")
	cfg.BatchTimeoutSecs, _ = flags.GetInt("batch-timeout")
	cfg.ExpiryThresholdDays, _ = flags.GetInt("expiry-threshold")
	if flags.Lookup("progress") != nil {
		cfg.ProgressEnabled, _ = flags.GetBool("progress")
	}
	if flags.Lookup("telemetry") != nil {
		cfg.TelemetryEnabled, _ = flags.GetBool("telemetry")
	}

	applyConfigOverrides(flags, &cfg)
	normalizeProbeConfig(&cfg)
	return cfg
}

// applyConfigOverrides merges config file defaults into the runtime config
// when the user did not explicitly override the corresponding flag.
func applyConfigOverrides(flags *pflag.FlagSet, cfg *ProbeRuntimeConfig) {
	if viper.IsSet("probe.concurrency") {
		applyIntDefault(flags, "concurrency", viper.GetInt("probe.concurrency"), func(v int) { cfg.Concurrency = v })
	}
	if viper.IsSet("probe.rate_limit") {
		applyIntDefault(flags, "probe-rate", viper.GetInt("probe.rate_limit"), func(v int) { cfg.RateLimit = v })
	}
	if viper.IsSet("probe.connect_timeout_secs") {
		applyIntDefault(flags, "connect-timeout", viper.GetInt("probe.connect_timeout_secs"), func(v int) { cfg.ConnectTimeoutSecs = v })
	}
	if viper.IsSet("probe.handshake_timeout_secs") {
		applyIntDefault(flags, "handshake-timeout", viper.GetInt("probe.handshake_timeout_secs"), func(v int) { cfg.HandshakeTimeoutSecs = v })
	}
	if viper.IsSet("probe.batch_timeout_secs") {
		applyIntDefault(flags, "batch-timeout", viper.GetInt("probe.batch_timeout_secs"), func(v int) { cfg.BatchTimeoutSecs = v })
	}
	if viper.IsSet("probe.expiry_threshold_days") {
		applyIntDefault(flags, "expiry-threshold", viper.GetInt("probe.expiry_threshold_days"), func(v int) { cfg.ExpiryThresholdDays = v })
	}
	if viper.IsSet("probe.progress") {
		applyBoolDefault(flags, "progress", viper.GetBool("probe.progress"), func(v bool) { cfg.ProgressEnabled = v })
	}
	if viper.IsSet("probe.telemetry") {
		applyBoolDefault(flags, "telemetry", viper.GetBool("probe.telemetry"), func(v bool) { cfg.TelemetryEnabled = v })
	}
}

func normalizeProbeConfig(cfg *ProbeRuntimeConfig) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = probe.DefaultConcurrency
	}
	if cfg.RateLimit < 0 {
		cfg.RateLimit = 0
	}
	if cfg.ConnectTimeoutSecs <= 0 {
		cfg.ConnectTimeoutSecs = defaultConnectTimeoutSecs
	}
	if cfg.HandshakeTimeoutSecs <= 0 {
		cfg.HandshakeTimeoutSecs = defaultHandshakeTimeoutSecs
	}
	if cfg.BatchTimeoutSecs <= 0 {
		cfg.BatchTimeoutSecs = defaultBatchTimeoutSecs
	}
	if cfg.ExpiryThresholdDays <= 0 {
		cfg.ExpiryThresholdDays = defaultExpiryThresholdDays
	}
}

// NewProber builds a prober from the resolved runtime config.
func (c ProbeRuntimeConfig) NewProber() *probe.Prober {
	return &probe.Prober{
		ConnectTimeout:   time.Duration(c.ConnectTimeoutSecs) * time.Second,
		HandshakeTimeout: time.Duration(c.HandshakeTimeoutSecs) * time.Second,
		ExpiryThreshold:  time.Duration(c.ExpiryThresholdDays) * 24 * time.Hour,
	}
}

// NewRunner builds a batch runner from the resolved runtime config.
func (c ProbeRuntimeConfig) NewRunner() *probe.Runner {
	return &probe.Runner{
		Concurrency:  c.Concurrency,
		RateLimit:    c.RateLimit,
		BatchTimeout: time.Duration(c.BatchTimeoutSecs) * time.Second,
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if setter == nil {
		return
	}
	if flags != nil {
		if flag := flags.Lookup(name); flag != nil && flag.Changed {
			return
		}
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if setter == nil {
		return
	}
	if flags != nil {
		if flag := flags.Lookup(name); flag != nil && flag.Changed {
			return
		}
	}
	setter(value)
}
