package flags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batterykit/battery/options"
)

func apply(t *testing.T, args ...string) (*options.Options, Outcome) {
	t.Helper()
	opts := options.New()
	outcome, err := Apply(opts, args)
	require.NoError(t, err)
	return opts, outcome
}

func TestApplyOrdering(t *testing.T) {
	t.Run("later boolean wins", func(t *testing.T) {
		opts, _ := apply(t, "--verbose", "--no-verbose")
		assert.False(t, opts.Verbose())

		opts, _ = apply(t, "--no-verbose", "--verbose")
		assert.True(t, opts.Verbose())
	})

	t.Run("batch mode side effects happen at its position", func(t *testing.T) {
		// rb set after batch mode overrides the armed auto-response.
		opts, _ := apply(t, "--batch-mode", "--rb", "s")
		assert.Equal(t, byte('s'), opts.ResponseBefore())

		// rb set before batch mode is overwritten by it.
		opts, _ = apply(t, "--rb", "s", "--batch-mode")
		assert.Equal(t, byte('c'), opts.ResponseBefore())
	})

	t.Run("show-progress off clears earlier verbosity", func(t *testing.T) {
		opts, _ := apply(t, "--verbose", "--show-values", "--no-show-progress")
		assert.False(t, opts.Verbose())
		assert.False(t, opts.ShowValues())
		assert.False(t, opts.ShowProgress())
	})

	t.Run("summarize clears earlier interactivity", func(t *testing.T) {
		opts, _ := apply(t, "--interactive", "--case-pause", "--summarize")
		assert.True(t, opts.Summarize())
		assert.False(t, opts.Interactive())
		assert.False(t, opts.CasePause())
	})
}

func TestApplyValued(t *testing.T) {
	t.Run("numeric selectors", func(t *testing.T) {
		opts, _ := apply(t, "--group", "3", "--case", "14", "--sub-test", "2", "--sleep-time", "250")
		assert.Equal(t, 3, opts.Group())
		assert.Equal(t, 14, opts.Case())
		assert.Equal(t, 2, opts.Subtest())
		assert.Equal(t, int64(250), opts.SleepTime().Milliseconds())
	})

	t.Run("non-numeric selector becomes a name filter", func(t *testing.T) {
		opts, _ := apply(t, "--group", "options", "--case", "defaults", "--sub-test", "first step")
		assert.Equal(t, 0, opts.Group())
		assert.Equal(t, "options", opts.GroupName())
		assert.Equal(t, "defaults", opts.CaseName())
		assert.Equal(t, "first step", opts.SubtestName())
	})

	t.Run("responses", func(t *testing.T) {
		opts, _ := apply(t, "--response-before", "C", "--ra", "f")
		assert.Equal(t, byte('c'), opts.ResponseBefore())
		assert.Equal(t, byte('f'), opts.ResponseAfter())
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := Apply(options.New(), []string{"--group"})
		assert.Error(t, err)
	})

	t.Run("out-of-range group errors and resets", func(t *testing.T) {
		opts := options.New()
		require.NoError(t, opts.SetGroup(5))
		_, err := Apply(opts, []string{"--group", "1000000"})
		assert.Error(t, err)
		assert.Equal(t, 0, opts.Group())
	})

	t.Run("bad sleep value", func(t *testing.T) {
		_, err := Apply(options.New(), []string{"--sleep-time", "soon"})
		assert.Error(t, err)
	})
}

func TestApplyUnknownFlag(t *testing.T) {
	_, err := Apply(options.New(), []string{"--frobnicate"})
	assert.Error(t, err)
}

func TestInformationalOutcomes(t *testing.T) {
	t.Run("version short-circuits", func(t *testing.T) {
		opts, outcome := apply(t, "--verbose", "--version", "--no-verbose")
		assert.Equal(t, OutcomeVersion, outcome)
		assert.True(t, opts.Verbose(), "flags left of --version still apply")
	})

	t.Run("short version alias", func(t *testing.T) {
		_, outcome := apply(t, "-v")
		assert.Equal(t, OutcomeVersion, outcome)
	})

	t.Run("help short-circuits", func(t *testing.T) {
		opts, outcome := apply(t, "--summarize", "--help")
		assert.Equal(t, OutcomeHelp, outcome)
		assert.True(t, opts.Summarize())
	})

	t.Run("normal parse proceeds", func(t *testing.T) {
		_, outcome := apply(t, "--verbose")
		assert.Equal(t, OutcomeProceed, outcome)
	})
}

func TestPrescanSilent(t *testing.T) {
	opts := options.New()
	PrescanSilent(opts, []string{"--group", "1", "--silent", "--hide-errors"})
	assert.True(t, opts.Silent())
	assert.True(t, opts.HideErrors())

	// --no-silent anywhere in the line wins over an earlier --silent during
	// the prescan; the ordered walk does not revisit them.
	opts = options.New()
	PrescanSilent(opts, []string{"--silent", "--no-silent"})
	assert.False(t, opts.Silent())
}

func TestConfigFile(t *testing.T) {
	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "battery.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("defaults file applies", func(t *testing.T) {
		path := writeConfig(t, `
group: "2"
case: prompts
sleep_time_ms: 100
verbose: true
stop_on_error: true
response_after: p
`)
		opts, _ := apply(t, "--config", path)
		assert.Equal(t, 2, opts.Group())
		assert.Equal(t, "prompts", opts.CaseName())
		assert.Equal(t, int64(100), opts.SleepTime().Milliseconds())
		assert.True(t, opts.Verbose())
		assert.True(t, opts.StopOnError())
		assert.Equal(t, byte('p'), opts.ResponseAfter())
	})

	t.Run("flags right of the config win", func(t *testing.T) {
		path := writeConfig(t, "verbose: true\nbatch_mode: true\n")
		opts, _ := apply(t, "--config", path, "--no-verbose", "--no-batch-mode")
		assert.False(t, opts.Verbose())
		assert.False(t, opts.BatchMode())
	})

	t.Run("flags left of the config lose", func(t *testing.T) {
		path := writeConfig(t, "verbose: false\n")
		opts, _ := apply(t, "--verbose", "--config", path)
		assert.False(t, opts.Verbose())
	})

	t.Run("absent keys leave options alone", func(t *testing.T) {
		path := writeConfig(t, "verbose: true\n")
		opts, _ := apply(t, "--stop-on-error", "--config", path)
		assert.True(t, opts.StopOnError())
		assert.True(t, opts.ShowProgress())
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := Apply(options.New(), []string{"--config", "does-not-exist.yaml"})
		assert.Error(t, err)
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		path := writeConfig(t, "verbose: [unclosed\n")
		_, err := Apply(options.New(), []string{"--config", path})
		assert.Error(t, err)
	})
}
