package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"greensense/internal/engine/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Version = 2
	cfg.Output.Format = "html"
	cfg.Performance.Workers = -1
	errs := Validate(cfg)
	assert.Len(t, errs, 3)
}

func TestValidateRuleNames(t *testing.T) {
	require.NoError(t, ValidateRuleNames(rules.Names()))

	err := ValidateRuleNames([]string{"LongMethod", "Deadcod"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown rule "Deadcod" (did you mean "DeadCode"?)`)

	err = ValidateRuleNames([]string{"Completely different"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestSuggestRule(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"godclass", rules.GodClassName, true},
		{"LongMethd", rules.LongMethodName, true},
		{"DuplicateCode", rules.DuplicatedCodeName, true},
		{"xyz", "", false},
	}
	for _, tt := range tests {
		got, ok := SuggestRule(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, "[rules.long_method]\nmax_loc = 30\n")
	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("[rules.long_method]\nmax_loc = 99\n"), 0o644))
	select {
	case cfg := <-reloaded:
		assert.Equal(t, 99, cfg.Rules.LongMethod.MaxLOC)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_IgnoresInvalidEditsAndOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, "")
	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.toml"), []byte("x = 1"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[output]\nformat = \"xml\"\n"), 0o644))
	select {
	case <-reloaded:
		t.Fatal("invalid config must not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
	cancel()
	w.Stop()
}
