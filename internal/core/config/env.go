package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: GREENSENSE_[SECTION]_[KEY] (e.g., GREENSENSE_OUTPUT_FORMAT).
func ApplyEnvOverrides(cfg *Config) {
	// Rules
	setEnvInt(&cfg.Rules.GodClass.MaxMethods, "GREENSENSE_RULES_GOD_CLASS_MAX_METHODS")
	setEnvInt(&cfg.Rules.GodClass.MaxCC, "GREENSENSE_RULES_GOD_CLASS_MAX_CC")
	setEnvInt(&cfg.Rules.GodClass.MaxLOC, "GREENSENSE_RULES_GOD_CLASS_MAX_LOC")
	setEnvInt(&cfg.Rules.LongMethod.MaxLOC, "GREENSENSE_RULES_LONG_METHOD_MAX_LOC")
	setEnvInt(&cfg.Rules.LongMethod.MaxCC, "GREENSENSE_RULES_LONG_METHOD_MAX_CC")
	setEnvFloat64(&cfg.Rules.DuplicatedCode.SimilarityThreshold, "GREENSENSE_RULES_DUPLICATED_CODE_SIMILARITY_THRESHOLD")
	setEnvInt(&cfg.Rules.DuplicatedCode.MinStatements, "GREENSENSE_RULES_DUPLICATED_CODE_MIN_STATEMENTS")
	setEnvList(&cfg.Rules.Disabled, "GREENSENSE_RULES_DISABLED")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "GREENSENSE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxRunsPerSecond, "GREENSENSE_WATCH_MAX_RUNS_PER_SECOND")

	// History and cache
	setEnvBool(&cfg.History.Enabled, "GREENSENSE_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "GREENSENSE_HISTORY_PATH")
	setEnvBool(&cfg.Cache.Enabled, "GREENSENSE_CACHE_ENABLED")
	setEnvString(&cfg.Cache.Path, "GREENSENSE_CACHE_PATH")
	setEnvInt(&cfg.Cache.MaxEntries, "GREENSENSE_CACHE_MAX_ENTRIES")

	// Output
	setEnvString(&cfg.Output.Format, "GREENSENSE_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "GREENSENSE_OUTPUT_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "GREENSENSE_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "GREENSENSE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "GREENSENSE_OBSERVABILITY_SERVICE_NAME")

	// Performance
	setEnvInt(&cfg.Performance.Workers, "GREENSENSE_PERFORMANCE_WORKERS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
