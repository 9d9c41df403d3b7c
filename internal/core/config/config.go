package config

import (
	"sort"
	"time"

	"greensense/internal/engine/discovery"
	"greensense/internal/engine/rules"
)

const DefaultFileName = "greensense.toml"

// Output formats understood by the report layer.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatSARIF   = "sarif"
	FormatTSV     = "tsv"
)

type Config struct {
	Version       int           `toml:"version"`
	Rules         Rules         `toml:"rules"`
	Exclude       Exclude       `toml:"exclude"`
	Watch         Watch         `toml:"watch"`
	History       History       `toml:"history"`
	Cache         Cache         `toml:"cache"`
	Output        Output        `toml:"output"`
	Observability Observability `toml:"observability"`
	Performance   Performance   `toml:"performance"`
}

type Rules struct {
	GodClass       GodClassRule       `toml:"god_class"`
	LongMethod     LongMethodRule     `toml:"long_method"`
	DuplicatedCode DuplicatedCodeRule `toml:"duplicated_code"`
	DeadCode       Toggle             `toml:"dead_code"`
	MutableDefault Toggle             `toml:"mutable_default_arguments"`
	// Disabled names rules to skip regardless of their enabled flag.
	Disabled []string `toml:"disabled"`
}

type Toggle struct {
	Enabled bool `toml:"enabled"`
}

type GodClassRule struct {
	Enabled    bool `toml:"enabled"`
	MaxMethods int  `toml:"max_methods"`
	MaxCC      int  `toml:"max_cc"`
	MaxLOC     int  `toml:"max_loc"`
}

type LongMethodRule struct {
	Enabled bool `toml:"enabled"`
	MaxLOC  int  `toml:"max_loc"`
	MaxCC   int  `toml:"max_cc"`
}

type DuplicatedCodeRule struct {
	Enabled               bool    `toml:"enabled"`
	SimilarityThreshold   float64 `toml:"similarity_threshold"`
	MinStatements         int     `toml:"min_statements"`
	CheckWithinFunctions  bool    `toml:"check_within_functions"`
	CheckBetweenFunctions bool    `toml:"check_between_functions"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
	Paths []string `toml:"paths"`
}

type Watch struct {
	Debounce          time.Duration `toml:"debounce"`
	MaxRunsPerSecond  float64       `toml:"max_runs_per_second"`
	ReloadConfigFiles bool          `toml:"reload_config"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Cache struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	MaxEntries int    `toml:"max_entries"`
}

type Output struct {
	Format string `toml:"format"`
	// Path is empty for stdout.
	Path string `toml:"path"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

type Performance struct {
	// Workers bounds parallel file analysis; 0 means GOMAXPROCS.
	Workers int `toml:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	gc := rules.DefaultGodClassConfig()
	lm := rules.DefaultLongMethodConfig()
	dc := rules.DefaultDuplicatedCodeConfig()
	return &Config{
		Version: 1,
		Rules: Rules{
			GodClass: GodClassRule{
				Enabled:    true,
				MaxMethods: gc.MaxMethods,
				MaxCC:      gc.MaxCC,
				MaxLOC:     gc.MaxLOC,
			},
			LongMethod: LongMethodRule{Enabled: true, MaxLOC: lm.MaxLOC, MaxCC: lm.MaxCC},
			DuplicatedCode: DuplicatedCodeRule{
				Enabled:               true,
				SimilarityThreshold:   dc.SimilarityThreshold,
				MinStatements:         dc.MinStatements,
				CheckWithinFunctions:  dc.CheckWithinFunctions,
				CheckBetweenFunctions: dc.CheckBetweenFunctions,
			},
			DeadCode:       Toggle{Enabled: true},
			MutableDefault: Toggle{Enabled: true},
		},
		Exclude: Exclude{Dirs: append([]string(nil), discovery.DefaultExcludeDirs...)},
		Watch: Watch{
			Debounce:          500 * time.Millisecond,
			MaxRunsPerSecond:  1,
			ReloadConfigFiles: true,
		},
		History: History{Enabled: true, Path: ".greensense/history.db"},
		Cache:   Cache{Enabled: true, Path: ".greensense/cache.msgpack", MaxEntries: 2048},
		Output:  Output{Format: FormatConsole},
		Observability: Observability{
			ServiceName: "greensense",
		},
	}
}

// RuleOptions converts the rule sections into engine options. Rules whose
// enabled flag is off are appended to the disabled list.
func (c *Config) RuleOptions() rules.Options {
	r := c.Rules
	opts := rules.Options{
		GodClass: rules.GodClassConfig{
			MaxMethods: r.GodClass.MaxMethods,
			MaxCC:      r.GodClass.MaxCC,
			MaxLOC:     r.GodClass.MaxLOC,
		},
		LongMethod: rules.LongMethodConfig{MaxLOC: r.LongMethod.MaxLOC, MaxCC: r.LongMethod.MaxCC},
		DuplicatedCode: rules.DuplicatedCodeConfig{
			SimilarityThreshold:   r.DuplicatedCode.SimilarityThreshold,
			MinStatements:         r.DuplicatedCode.MinStatements,
			CheckWithinFunctions:  r.DuplicatedCode.CheckWithinFunctions,
			CheckBetweenFunctions: r.DuplicatedCode.CheckBetweenFunctions,
		},
		DeadCode: rules.DeadCodeConfig{Workers: c.Performance.Workers},
	}

	disabled := make(map[string]bool)
	for _, n := range r.Disabled {
		disabled[n] = true
	}
	toggles := map[string]bool{
		rules.GodClassName:       r.GodClass.Enabled,
		rules.LongMethodName:     r.LongMethod.Enabled,
		rules.DuplicatedCodeName: r.DuplicatedCode.Enabled,
		rules.DeadCodeName:       r.DeadCode.Enabled,
		rules.MutableDefaultName: r.MutableDefault.Enabled,
	}
	for name, on := range toggles {
		if !on {
			disabled[name] = true
		}
	}
	for n := range disabled {
		opts.Disabled = append(opts.Disabled, n)
	}
	sort.Strings(opts.Disabled)
	return opts
}

// DiscoveryOptions returns the exclusion patterns for file discovery.
func (c *Config) DiscoveryOptions() discovery.Options {
	return discovery.Options{
		Dirs:  c.Exclude.Dirs,
		Files: c.Exclude.Files,
		Paths: c.Exclude.Paths,
	}
}
