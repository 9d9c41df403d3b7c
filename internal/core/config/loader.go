package config

import (
	"fmt"
	"os"
	"strings"

	"greensense/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load decodes the TOML file at path over Default(), then normalises and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeReadFailed, "read config"), errors.CtxPath, path)
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.AddContext(
			errors.New(errors.CodeValidationError, fmt.Sprintf("unknown config keys: %s", strings.Join(keys, ", "))),
			errors.CtxPath, path)
	}

	applyDefaults(cfg)
	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// Resolve loads path when given. With an empty path it loads DefaultFileName
// from the working directory if present, and falls back to Default().
// The returned string is the file actually read, empty for defaults.
func Resolve(path string) (*Config, string, error) {
	if strings.TrimSpace(path) == "" {
		if _, err := os.Stat(DefaultFileName); err != nil {
			cfg := Default()
			ApplyEnvOverrides(cfg)
			normalize(cfg)
			return cfg, "", validate(cfg)
		}
		path = DefaultFileName
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	ApplyEnvOverrides(cfg)
	normalize(cfg)
	if err := validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Version == 0 {
		cfg.Version = def.Version
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = def.Output.Format
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = def.History.Path
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = def.Cache.Path
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = def.Watch.Debounce
	}
	if cfg.Watch.MaxRunsPerSecond <= 0 {
		cfg.Watch.MaxRunsPerSecond = def.Watch.MaxRunsPerSecond
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = def.Observability.ServiceName
	}
	if cfg.Performance.Workers < 0 {
		cfg.Performance.Workers = 0
	}
}

func normalize(cfg *Config) {
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Path = strings.TrimSpace(cfg.Output.Path)
	cfg.Rules.Disabled = uniqueTrimmed(cfg.Rules.Disabled)
	cfg.Exclude.Dirs = uniqueTrimmed(cfg.Exclude.Dirs)
	cfg.Exclude.Files = uniqueTrimmed(cfg.Exclude.Files)
	cfg.Exclude.Paths = uniqueTrimmed(cfg.Exclude.Paths)
}

func uniqueTrimmed(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
