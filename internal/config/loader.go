package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderVariants lists the provider variants the factory can build.
// Used by [Validate] to reject unknown providers.default values.
var ValidProviderVariants = []string{"azure-openai", "openai", "gemini", "mock"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, validates the result, and
// applies defaults. Useful in tests where configs are string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if d := cfg.Providers.Default; d != "" && !slices.Contains(ValidProviderVariants, d) {
		errs = append(errs, fmt.Errorf("providers.default %q is invalid; valid values: azure-openai, openai, gemini, mock", d))
	}

	if t := cfg.Providers.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("providers.temperature %.2f is out of range [0.0, 2.0]", t))
	}

	az := cfg.Providers.AzureOpenAI
	if (az.Endpoint != "" || az.APIKey != "" || az.Deployment != "") &&
		(az.Endpoint == "" || az.APIKey == "" || az.Deployment == "") {
		errs = append(errs, errors.New("providers.azure_openai requires endpoint, api_key, and deployment together"))
	}

	if cfg.Session.ProcessThresholdBytes < 0 {
		errs = append(errs, fmt.Errorf("session.process_threshold_bytes %d must not be negative", cfg.Session.ProcessThresholdBytes))
	}
	if cfg.Session.MinAudioBytes < 0 {
		errs = append(errs, fmt.Errorf("session.min_audio_bytes %d must not be negative", cfg.Session.MinAudioBytes))
	}
	if cfg.Session.DisconnectTTL < 0 {
		errs = append(errs, fmt.Errorf("session.disconnect_ttl %s must not be negative", cfg.Session.DisconnectTTL))
	}
	if cfg.Session.ProviderTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.provider_timeout %s must not be negative", cfg.Session.ProviderTimeout))
	}

	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; sessions will not be persisted and the roster is unavailable")
		if cfg.Server.RequireKnownStudent {
			errs = append(errs, errors.New("server.require_known_student needs storage.postgres_dsn for the roster"))
		}
	}

	return errors.Join(errs...)
}

// applyDefaults fills zero-valued tunables with the documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Session.ProcessThresholdBytes == 0 {
		cfg.Session.ProcessThresholdBytes = DefaultProcessThresholdBytes
	}
	if cfg.Session.MinAudioBytes == 0 {
		cfg.Session.MinAudioBytes = DefaultMinAudioBytes
	}
	if cfg.Session.DisconnectTTL == 0 {
		cfg.Session.DisconnectTTL = DefaultDisconnectTTL
	}
	if cfg.Session.ProviderTimeout == 0 {
		cfg.Session.ProviderTimeout = DefaultProviderTimeout
	}
}
