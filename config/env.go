package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "PUNCTUALITY_"

// EnvString returns the trimmed value of key, if set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key as a time.Duration ("1h", "500ms").
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// ApplyEnv overrides cfg with PUNCTUALITY_* variables.
func ApplyEnv(cfg *Config) error {
	if value, ok := EnvString(EnvPrefix + "CATEGORIES"); ok {
		cfg.Categories = splitList(value)
	}
	if value, ok := EnvString(EnvPrefix + "OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := EnvString(EnvPrefix + "FORMAT"); ok {
		cfg.OutputFormat = strings.ToLower(value)
	}
	if value, ok := EnvString(EnvPrefix + "METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok := EnvString(EnvPrefix + "USER_AGENT"); ok {
		cfg.UserAgent = value
	}

	ints := map[string]*int{
		"PARALLEL":    &cfg.Parallelism,
		"MAX_RETRIES": &cfg.MaxRetries,
		"CACHE_SIZE":  &cfg.CacheSize,
	}
	for suffix, dst := range ints {
		value, ok, err := EnvInt(EnvPrefix + suffix)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":   &cfg.Timeout,
		"CACHE_TTL": &cfg.CacheTTL,
	}
	for suffix, dst := range durations {
		value, ok, err := EnvDuration(EnvPrefix + suffix)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
