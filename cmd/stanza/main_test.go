package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/stanza"
	"github.com/poiesic/stanza/ai/mock"
)

type runResult struct {
	out    string
	errOut string
	err    error
}

// run executes the CLI against a mock AI provider.
func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()

	previous := slog.Default()
	extraDatabaseOptions = []stanza.DatabaseOption{stanza.WithProvider(mock.NewMockProvider())}
	t.Cleanup(func() {
		slog.SetDefault(previous)
		extraDatabaseOptions = nil
	})

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)

	err := app.Run(append([]string{"stanza"}, args...))
	return runResult{out: out.String(), errOut: errOut.String(), err: err}
}

func findCommand(t *testing.T, name string) *cli.Command {
	t.Helper()
	for _, cmd := range newApp().Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestReanalyzeCommandFlags(t *testing.T) {
	cmd := findCommand(t, "reanalyze")

	ints := map[string]int{}
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.IntFlag); ok {
			ints[f.Name] = f.Value
		}
	}
	assert.Equal(t, map[string]int{"batch-size": 100, "report-interval": 100, "max-retries": 3}, ints)

	var delay *cli.DurationFlag
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.DurationFlag); ok && f.Name == "retry-delay" {
			delay = f
		}
	}
	require.NotNil(t, delay)
	assert.Equal(t, time.Second, delay.Value)

	t.Run("invalid batch size", func(t *testing.T) {
		res := run(t, "", "--db", t.TempDir(), "reanalyze", "--batch-size", "0")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "batch-size")
	})

	t.Run("invalid max retries", func(t *testing.T) {
		res := run(t, "", "--db", t.TempDir(), "reanalyze", "--max-retries", "0")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "max-retries")
	})
}

func TestGlobalFlagsHaveNoDefaults(t *testing.T) {
	// Empty defaults let the config file supply the value.
	for _, flag := range newApp().Flags {
		if f, ok := flag.(*cli.StringFlag); ok {
			assert.Empty(t, f.Value, f.Name)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"WARN", false},
		{"error", false},
		{"verbose", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			res := run(t, "", "--log-level", tt.level, "patterns", "bright night")
			if tt.wantErr {
				assert.Error(t, res.err)
				return
			}
			assert.NoError(t, res.err)
		})
	}
}

func TestPatternsCommand(t *testing.T) {
	res := run(t, "", "patterns", "Bright", "light,", "night!")
	require.NoError(t, res.err)
	assert.Equal(t, "ight\n", res.out)

	res = run(t, "", "patterns", "a", "b")
	require.NoError(t, res.err)
	assert.Equal(t, "No rhyme patterns found\n", res.out)
}

func TestFragmentLifecycle(t *testing.T) {
	dir := t.TempDir()

	res := run(t, "", "--db", dir, "add", "--meta", "source=test",
		"the harbour sleeps tonight", "engines roar downtown", "The harbour sleeps  tonight")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Added 2 fragments (1 skipped, 0 analysis failures)")

	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 3)
	id, _, ok := strings.Cut(lines[0], "\t")
	require.True(t, ok)

	res = run(t, "", "--db", dir, "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "analyzed\tthe harbour sleeps tonight")
	assert.Contains(t, res.out, "Showing 2 of 2 fragments")

	res = run(t, "", "--db", dir, "show", id)
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Text:     the harbour sleeps tonight")
	assert.Contains(t, res.out, "Meta:     source=test")
	assert.Contains(t, res.out, "Themes:   harbour, sleeps, tonight")
	assert.Contains(t, res.out, "Mood:     harbour")

	res = run(t, "", "--db", dir, "match", "a", "harbour", "at", "night")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "1. [0.90] #"+id+" the harbour sleeps tonight")
	assert.Contains(t, res.out, "   - Shared themes: harbour, night")
	assert.Contains(t, res.out, "   > a harbour at night / the harbour sleeps tonight")

	res = run(t, "", "--db", dir, "match", "--no-adapt", "a", "harbour", "at", "night")
	require.NoError(t, res.err)
	assert.NotContains(t, res.out, "   > ")

	res = run(t, "", "--db", dir, "reanalyze", "--retry-delay", "1ms")
	require.NoError(t, res.err)
	assert.Contains(t, res.errOut, "Starting reanalysis of 2 fragments")

	res = run(t, "", "--db", dir, "delete", id)
	require.NoError(t, res.err)
	assert.Equal(t, "Deleted 1 fragments\n", res.out)

	res = run(t, "", "--db", dir, "show", id)
	assert.Error(t, res.err)
}

func TestAddFromStdin(t *testing.T) {
	dir := t.TempDir()

	res := run(t, "first line\n\n  second line  \n", "--db", dir, "add")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Added 2 fragments (0 skipped, 0 analysis failures)")
	assert.Contains(t, res.out, "\tsecond line\n")

	res = run(t, "", "--db", dir, "add")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no fragments given")
}

func TestCommandArgumentErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"show without id", []string{"show"}, "exactly one"},
		{"show bad id", []string{"show", "abc"}, "invalid fragment id"},
		{"delete without id", []string{"delete"}, "at least one"},
		{"delete zero id", []string{"delete", "0"}, "invalid fragment id"},
		{"match without text", []string{"match"}, "needs a line"},
		{"bad metadata", []string{"add", "--meta", "novalue", "text"}, "key=value"},
		{"list bad limit", []string{"list", "--limit", "0"}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, "", append([]string{"--db", dir}, tt.args...)...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.want)
		})
	}
}

func TestMatchCommand_NoMatches(t *testing.T) {
	res := run(t, "", "--db", t.TempDir(), "match", "silence")
	require.NoError(t, res.err)
	assert.Equal(t, "No matches found\n", res.out)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", preview("short\n text"))
	long := strings.Repeat("a", previewLength+10)
	got := preview(long)
	assert.Len(t, []rune(got), previewLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSeedCommand(t *testing.T) {
	t.Run("sample lines", func(t *testing.T) {
		dir := t.TempDir()
		res := run(t, "", "--db", dir, "seed")
		require.NoError(t, res.err, res.errOut)
		want := fmt.Sprintf("Seeded %d fragments (%d analyzed, 0 analysis failures)\n", len(sampleLines), len(sampleLines))
		assert.Equal(t, want, res.out)

		// Seeding again adds nothing.
		res = run(t, "", "--db", dir, "seed")
		require.NoError(t, res.err)
		assert.Equal(t, "Seeded 0 fragments (0 analyzed, 0 analysis failures)\n", res.out)
	})

	t.Run("from file", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "lines.txt")
		require.NoError(t, os.WriteFile(src, []byte("one bright line\n\ntwo bright lines\nthree\n"), 0o644))

		res := run(t, "", "--db", t.TempDir(), "seed", "--src", src, "--batch-size", "2")
		require.NoError(t, res.err)
		assert.Equal(t, "Seeded 3 fragments (3 analyzed, 0 analysis failures)\n", res.out)
	})

	t.Run("missing file", func(t *testing.T) {
		res := run(t, "", "--db", t.TempDir(), "seed", "--src", filepath.Join(t.TempDir(), "missing"))
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "seed file")
	})
}
