package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/domaindiag/internal/headers"
	"github.com/khanhnv2901/domaindiag/internal/probe"
	"github.com/khanhnv2901/domaindiag/internal/report"
	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultTimeoutSeconds = int(consts.DefaultProbeTimeout / time.Second)
	defaultServeAddr      = "127.0.0.1:8080"
	defaultRateLimit      = 10
	defaultRateBurst      = 20
	defaultTelemetryFile  = "telemetry.jsonl"
	envPrefix             = "DOMAINDIAG"
)

// CLIConfig is the resolved runtime configuration shared across commands.
type CLIConfig struct {
	Probe     ProbeConfig
	DNS       DNSConfig
	Headers   HeaderConfig
	Batch     BatchConfig
	Source    SourceConfig
	Log       LogConfig
	Serve     ServeConfig
	Telemetry TelemetryConfig
}

type ProbeConfig struct {
	TimeoutSecs int
	UserAgent   string
	TLSPort     string
}

type DNSConfig struct {
	Nameservers []string
	ResolvConf  string
}

type HeaderConfig struct {
	Version string
	Timing  string
	Policy  string
}

type BatchConfig struct {
	Concurrency int
}

type SourceConfig struct {
	URL       string
	Retries   int
	WaitMinMS int
	WaitMaxMS int
}

type LogConfig struct {
	Level string
	File  string
}

type ServeConfig struct {
	Addr       string
	AuthToken  string
	RateLimit  int
	RateBurst  int
	MaxBatch   int
	TrustProxy bool
}

type TelemetryConfig struct {
	Enabled bool
	Path    string
}

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Probe: ProbeConfig{
			TimeoutSecs: defaultTimeoutSeconds,
			UserAgent:   consts.DefaultUserAgent,
			TLSPort:     consts.DefaultTLSPort,
		},
		DNS: DNSConfig{Nameservers: []string{}},
		Headers: HeaderConfig{
			Version: consts.VersionHeader,
			Timing:  consts.TimingHeader,
			Policy:  headers.PolicyAbsent.String(),
		},
		Source: SourceConfig{
			Retries:   consts.DefaultSourceRetries,
			WaitMinMS: int(consts.DefaultSourceWaitMin / time.Millisecond),
			WaitMaxMS: int(consts.DefaultSourceWaitMax / time.Millisecond),
		},
		Log: LogConfig{Level: "info"},
		Serve: ServeConfig{
			Addr:      defaultServeAddr,
			RateLimit: defaultRateLimit,
			RateBurst: defaultRateBurst,
			MaxBatch:  consts.DefaultMaxAPIBatch,
		},
		Telemetry: TelemetryConfig{Path: defaultTelemetryFile},
	}
}

// newConfigReader loads the config file (explicit path or
// $HOME/.domaindiag.yaml) and DOMAINDIAG_* environment variables. A missing
// default config file is not an error; a missing explicit one is.
func newConfigReader(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath("$HOME")
		v.SetConfigName(".domaindiag")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// loadCLIConfig resolves flags over config/env over built-in defaults.
func loadCLIConfig(flags *pflag.FlagSet, v *viper.Viper) (*CLIConfig, error) {
	cfg := newCLIConfig()
	cfg.readFlags(flags)
	applyConfigDefaults(flags, v, cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFlags copies every flag the running command defines into cfg.
// Flag defaults equal the built-in defaults, so unchanged flags are no-ops.
func (c *CLIConfig) readFlags(flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	flagInt(flags, "timeout", &c.Probe.TimeoutSecs)
	flagString(flags, "user-agent", &c.Probe.UserAgent)
	flagString(flags, "tls-port", &c.Probe.TLSPort)
	flagStringSlice(flags, "nameserver", &c.DNS.Nameservers)
	flagString(flags, "resolv-conf", &c.DNS.ResolvConf)
	flagString(flags, "version-header", &c.Headers.Version)
	flagString(flags, "timing-header", &c.Headers.Timing)
	flagString(flags, "header-policy", &c.Headers.Policy)
	flagInt(flags, "concurrency", &c.Batch.Concurrency)
	flagString(flags, "source-url", &c.Source.URL)
	flagInt(flags, "source-retries", &c.Source.Retries)
	flagString(flags, "log-level", &c.Log.Level)
	flagString(flags, "log-file", &c.Log.File)
	flagString(flags, "addr", &c.Serve.Addr)
	flagString(flags, "auth-token", &c.Serve.AuthToken)
	flagInt(flags, "rate-limit", &c.Serve.RateLimit)
	flagInt(flags, "rate-burst", &c.Serve.RateBurst)
	flagInt(flags, "max-batch", &c.Serve.MaxBatch)
	flagBool(flags, "trust-proxy", &c.Serve.TrustProxy)
	flagBool(flags, "telemetry", &c.Telemetry.Enabled)
}

// applyConfigDefaults lets config file and environment values override the
// built-in defaults wherever the matching flag was not set explicitly.
func applyConfigDefaults(flags *pflag.FlagSet, v *viper.Viper, cfg *CLIConfig) {
	if v == nil || cfg == nil {
		return
	}

	intKey := func(key, flag string, dst *int) {
		if v.IsSet(key) {
			applyIntDefault(flags, flag, v.GetInt(key), func(x int) { *dst = x })
		}
	}
	stringKey := func(key, flag string, dst *string) {
		if v.IsSet(key) {
			applyStringDefault(flags, flag, v.GetString(key), func(x string) { *dst = x })
		}
	}

	intKey("probe.timeout_secs", "timeout", &cfg.Probe.TimeoutSecs)
	stringKey("probe.user_agent", "user-agent", &cfg.Probe.UserAgent)
	stringKey("probe.tls_port", "tls-port", &cfg.Probe.TLSPort)
	if v.IsSet("dns.nameservers") {
		applyStringSliceDefault(flags, "nameserver", v.GetStringSlice("dns.nameservers"), func(x []string) {
			cfg.DNS.Nameservers = x
		})
	}
	stringKey("dns.resolv_conf", "resolv-conf", &cfg.DNS.ResolvConf)
	stringKey("headers.version", "version-header", &cfg.Headers.Version)
	stringKey("headers.timing", "timing-header", &cfg.Headers.Timing)
	stringKey("headers.policy", "header-policy", &cfg.Headers.Policy)
	intKey("batch.concurrency", "concurrency", &cfg.Batch.Concurrency)
	stringKey("source.url", "source-url", &cfg.Source.URL)
	intKey("source.retries", "source-retries", &cfg.Source.Retries)
	intKey("source.wait_min_ms", "", &cfg.Source.WaitMinMS)
	intKey("source.wait_max_ms", "", &cfg.Source.WaitMaxMS)
	stringKey("log.level", "log-level", &cfg.Log.Level)
	stringKey("log.file", "log-file", &cfg.Log.File)
	stringKey("serve.addr", "addr", &cfg.Serve.Addr)
	stringKey("serve.auth_token", "auth-token", &cfg.Serve.AuthToken)
	intKey("serve.rate_limit", "rate-limit", &cfg.Serve.RateLimit)
	intKey("serve.rate_burst", "rate-burst", &cfg.Serve.RateBurst)
	intKey("serve.max_batch", "max-batch", &cfg.Serve.MaxBatch)
	if v.IsSet("serve.trust_proxy") {
		applyBoolDefault(flags, "trust-proxy", v.GetBool("serve.trust_proxy"), func(x bool) {
			cfg.Serve.TrustProxy = x
		})
	}
	if v.IsSet("telemetry.enabled") {
		applyBoolDefault(flags, "telemetry", v.GetBool("telemetry.enabled"), func(x bool) {
			cfg.Telemetry.Enabled = x
		})
	}
	stringKey("telemetry.path", "", &cfg.Telemetry.Path)
}

func (c *CLIConfig) validate() error {
	if c.Probe.TimeoutSecs <= 0 {
		return &InvalidInputError{Field: "timeout", Err: fmt.Errorf("must be positive, got %d", c.Probe.TimeoutSecs)}
	}
	if _, err := headers.ParsePolicy(c.Headers.Policy); err != nil {
		return &InvalidInputError{Field: "header-policy", Err: err}
	}
	if c.Batch.Concurrency < 0 {
		return &InvalidInputError{Field: "concurrency", Err: fmt.Errorf("must not be negative, got %d", c.Batch.Concurrency)}
	}
	if c.Source.Retries < 0 {
		return &InvalidInputError{Field: "source-retries", Err: fmt.Errorf("must not be negative, got %d", c.Source.Retries)}
	}
	if c.Source.WaitMinMS > c.Source.WaitMaxMS {
		return &InvalidInputError{Field: "source.wait_min_ms", Err: fmt.Errorf("%d exceeds source.wait_max_ms %d", c.Source.WaitMinMS, c.Source.WaitMaxMS)}
	}
	return nil
}

// ProbeTimeout is the per-probe bound.
func (c *CLIConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSecs) * time.Second
}

// builderOptions maps the config onto report.Options, folding nameservers
// from --resolv-conf after any given explicitly.
func (c *CLIConfig) builderOptions(logger *zap.Logger) (report.Options, error) {
	policy, err := headers.ParsePolicy(c.Headers.Policy)
	if err != nil {
		return report.Options{}, &InvalidInputError{Field: "header-policy", Err: err}
	}

	nameservers := append([]string(nil), c.DNS.Nameservers...)
	if c.DNS.ResolvConf != "" {
		fromFile, err := probe.NameserversFromResolvConf(c.DNS.ResolvConf)
		if err != nil {
			return report.Options{}, &InvalidInputError{Field: "resolv-conf", Err: err}
		}
		nameservers = append(nameservers, fromFile...)
	}

	return report.Options{
		ProbeTimeout:  c.ProbeTimeout(),
		UserAgent:     c.Probe.UserAgent,
		TLSPort:       c.Probe.TLSPort,
		Nameservers:   nameservers,
		HeaderPolicy:  policy,
		VersionHeader: c.Headers.Version,
		TimingHeader:  c.Headers.Timing,
		Logger:        logger,
	}, nil
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil || name == "" {
		return false
	}
	flag := flags.Lookup(name)
	return flag != nil && flag.Changed
}

func flagInt(flags *pflag.FlagSet, name string, dst *int) {
	if flags.Lookup(name) == nil {
		return
	}
	if v, err := flags.GetInt(name); err == nil {
		*dst = v
	}
}

func flagBool(flags *pflag.FlagSet, name string, dst *bool) {
	if flags.Lookup(name) == nil {
		return
	}
	if v, err := flags.GetBool(name); err == nil {
		*dst = v
	}
}

func flagString(flags *pflag.FlagSet, name string, dst *string) {
	if flags.Lookup(name) == nil {
		return
	}
	if v, err := flags.GetString(name); err == nil {
		*dst = v
	}
}

func flagStringSlice(flags *pflag.FlagSet, name string, dst *[]string) {
	if flags.Lookup(name) == nil {
		return
	}
	if v, err := flags.GetStringSlice(name); err == nil {
		*dst = v
	}
}
