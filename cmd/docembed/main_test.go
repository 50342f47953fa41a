package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testApp() (*cli.App, *bytes.Buffer) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	return app, &out
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag(cmd *cli.Command, name string) cli.Flag {
	for _, flag := range cmd.Flags {
		for _, n := range flag.Names() {
			if n == name {
				return flag
			}
		}
	}
	return nil
}

func TestIngestCommandFlags(t *testing.T) {
	app, _ := testApp()
	cmd := findCommand(t, app, "ingest")

	t.Run("collection is required", func(t *testing.T) {
		f, ok := findFlag(cmd, "collection").(*cli.StringFlag)
		require.True(t, ok)
		assert.True(t, f.Required)
		assert.Empty(t, f.Value)
		assert.Empty(t, f.EnvVars)
	})

	t.Run("vector-size is required", func(t *testing.T) {
		f, ok := findFlag(cmd, "vector-size").(*cli.Uint64Flag)
		require.True(t, ok)
		assert.True(t, f.Required)
	})

	t.Run("reset defaults to false", func(t *testing.T) {
		f, ok := findFlag(cmd, "reset").(*cli.BoolFlag)
		require.True(t, ok)
		assert.False(t, f.Value)
	})

	t.Run("missing collection fails", func(t *testing.T) {
		app, _ := testApp()
		err := app.Run([]string{"docembed", "ingest", "--vector-size", "3"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collection")
	})

	t.Run("missing vector-size fails", func(t *testing.T) {
		app, _ := testApp()
		err := app.Run([]string{"docembed", "ingest", "--collection", "docs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vector-size")
	})

	t.Run("more than one file fails", func(t *testing.T) {
		app, _ := testApp()
		err := app.Run([]string{"docembed", "ingest", "--collection", "docs", "--vector-size", "3", "a.md", "b.md"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at most one file")
	})

	t.Run("non UTF-8 document fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "latin1.md")
		require.NoError(t, os.WriteFile(path, []byte("caf\xe9 au lait\n\n"), 0o644))

		app, _ := testApp()
		err := app.Run([]string{"docembed", "ingest", "--collection", "docs", "--vector-size", "3", path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid UTF-8")
	})

	t.Run("unreadable file fails", func(t *testing.T) {
		app, _ := testApp()
		missing := filepath.Join(t.TempDir(), "missing.md")
		err := app.Run([]string{"docembed", "ingest", "--collection", "docs", "--vector-size", "3", missing})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open document")
	})
}

func TestSearchCommandFlags(t *testing.T) {
	app, _ := testApp()
	cmd := findCommand(t, app, "search")

	t.Run("limit has default value of 5", func(t *testing.T) {
		f, ok := findFlag(cmd, "limit").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 5, f.Value)
	})

	t.Run("query is required", func(t *testing.T) {
		app, _ := testApp()
		err := app.Run([]string{"docembed", "search", "--collection", "docs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search query is required")
	})

	t.Run("limit must be positive", func(t *testing.T) {
		app, _ := testApp()
		err := app.Run([]string{"docembed", "search", "--collection", "docs", "--limit", "0", "hello"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit")
	})
}

func TestServeCommandFlags(t *testing.T) {
	app, _ := testApp()
	cmd := findCommand(t, app, "serve")

	addr, ok := findFlag(cmd, "addr").(*cli.StringFlag)
	require.True(t, ok)
	assert.Empty(t, addr.Value, "listen address falls back to config")

	maxConcurrent, ok := findFlag(cmd, "max-concurrent").(*cli.IntFlag)
	require.True(t, ok)
	assert.Zero(t, maxConcurrent.Value)
}

func TestInfoCommand_UsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docembed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: warn
storage:
  driver: sqlite
  in_memory: true
`), 0o644))

	app, _ := testApp()
	err := app.Run([]string{"docembed", "--config", path, "info", "--collection", "docs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read collection")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app, _ := testApp()
				require.NoError(t, app.Run([]string{"docembed", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app, _ := testApp()
		err := app.Run([]string{"docembed", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log_level")
	})

	t.Run("invalid config file returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: mongo\n"), 0o644))

		app, _ := testApp()
		err := app.Run([]string{"docembed", "--config", path})
		require.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}
	for _, tc := range testCases {
		level, err := parseLevel(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, level)
	}

	_, err := parseLevel("trace")
	assert.Error(t, err)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	app, _ := testApp()
	app.Commands = nil
	var loadedDriver, loadedPath string
	app.Action = func(c *cli.Context) error {
		cfg, err := configFrom(c)
		if err != nil {
			return err
		}
		loadedDriver = cfg.Storage.Driver
		loadedPath = cfg.Storage.Path
		return nil
	}

	require.NoError(t, app.Run([]string{"docembed", "--driver", "chromem", "--db", "/tmp/vectors"}))
	assert.Equal(t, "chromem", loadedDriver)
	assert.Equal(t, "/tmp/vectors", loadedPath)
}
