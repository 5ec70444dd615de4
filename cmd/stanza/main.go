// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/stanza"
	"github.com/poiesic/stanza/config"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/ingestion"
	"github.com/poiesic/stanza/match"
	"github.com/poiesic/stanza/reanalyze"
	"github.com/poiesic/stanza/rhyme"
	"github.com/urfave/cli/v2"
)

const previewLength = 60

// extraDatabaseOptions are appended to every database the commands open.
var extraDatabaseOptions []stanza.DatabaseOption

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "stanza",
		Usage: "Match lyric fragments by theme, rhyme and mood",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error) (default: info)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (default: stanza.db)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "OpenAI-compatible service host URL",
			},
			&cli.StringFlag{
				Name:  "analyzer-model",
				Usage: "Model used to analyze fragments",
			},
			&cli.StringFlag{
				Name:  "adapter-model",
				Usage: "Model used to adapt matches",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add fragments, one per argument or one per line on stdin",
				ArgsUsage: "[text...]",
				Action:    addCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "meta",
						Usage: "Metadata to attach to every fragment, as key=value",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List the most recently added fragments",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of fragments to list",
						Value:   20,
					},
				},
			},
			{
				Name:      "show",
				Usage:     "Show a fragment and its analysis",
				ArgsUsage: "<id>",
				Action:    showCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete fragments",
				ArgsUsage: "<id...>",
				Action:    deleteCommand,
			},
			{
				Name:      "match",
				Usage:     "Find stored fragments that fit a line",
				ArgsUsage: "<text>",
				Action:    matchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of matches to show (default from config)",
					},
					&cli.BoolFlag{
						Name:  "no-adapt",
						Usage: "Skip adaptation of the top matches",
					},
				},
			},
			{
				Name:      "patterns",
				Usage:     "Print the rhyme patterns of a text without touching the database",
				ArgsUsage: "<text>",
				Action:    patternsCommand,
			},
			{
				Name:   "reanalyze",
				Usage:  "Re-run analysis over all stored fragments",
				Action: reanalyzeCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of fragments to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N fragments",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Continue after the last checkpoint instead of starting over",
					},
					&cli.BoolFlag{
						Name:  "only-missing",
						Usage: "Only analyze fragments that have no analysis yet",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Populate the database with sample lines or the lines of a file",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "src",
						Usage: "File of seed lines, one fragment per line",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of lines to ingest per batch",
						Value: 5,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default from config, :8080)",
					},
				},
			},
		},
	}
}

// loadConfig reads the configuration file, if any, and applies global flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("host") {
		cfg.AI.Host = c.String("host")
	}
	if c.IsSet("analyzer-model") {
		cfg.AI.AnalyzerModel = c.String("analyzer-model")
	}
	if c.IsSet("adapter-model") {
		cfg.AI.AdapterModel = c.String("adapter-model")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openDatabase(cfg config.Config) (*stanza.Database, error) {
	opts := []stanza.DatabaseOption{
		stanza.WithAIConfig(cfg.AIConfig()),
		stanza.WithInMemory(cfg.Storage.InMemory),
	}
	opts = append(opts, extraDatabaseOptions...)

	db, err := stanza.NewDatabase(cfg.Storage.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func newMatcher(db *stanza.Database, cfg config.Config, engineOpts ...match.EngineOption) (*match.Matcher, error) {
	engine, err := match.NewEngine(append(cfg.EngineOptions(), engineOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}
	return db.NewMatcher(
		match.WithEngine(engine),
		match.WithPoolSize(cfg.Matching.PoolSize),
		match.WithLogger(slog.Default()),
	)
}

func addCommand(c *cli.Context) error {
	texts := c.Args().Slice()
	if len(texts) == 0 {
		lines, err := readLines(c.App.Reader)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		texts = lines
	}
	if len(texts) == 0 {
		return errors.New("no fragments given: pass them as arguments or one per line on stdin")
	}

	metadata, err := parseMetadata(c.StringSlice("meta"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(
		ingestion.WithPoolSize(cfg.Ingestion.PoolSize),
		ingestion.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	added, err := pipeline.Ingest(c.Context, texts, &ingestion.IngestOptions{Metadata: metadata})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	pipeline.Wait()

	out := c.App.Writer
	for _, fragment := range added {
		fmt.Fprintf(out, "%d\t%s\n", fragment.Id, preview(fragment.Text))
	}
	stats := pipeline.Stats()
	fmt.Fprintf(out, "Added %d fragments (%d skipped, %d analysis failures)\n",
		len(added), len(texts)-len(added), stats.Failed)
	return nil
}

func listCommand(c *cli.Context) error {
	limit := c.Int("limit")
	if limit <= 0 {
		return errors.New("limit must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := db.FragmentRepository()
	fragments, err := repo.GetRecentFragments(c.Context, limit)
	if err != nil {
		return fmt.Errorf("failed to list fragments: %w", err)
	}
	total, err := repo.CountFragments(c.Context)
	if err != nil {
		return fmt.Errorf("failed to count fragments: %w", err)
	}

	out := c.App.Writer
	for _, fragment := range fragments {
		status := "pending"
		if fragment.Analyzed() {
			status = "analyzed"
		}
		fmt.Fprintf(out, "%d\t%s\t%s\n", fragment.Id, status, preview(fragment.Text))
	}
	fmt.Fprintf(out, "Showing %d of %d fragments\n", len(fragments), total)
	return nil
}

func showCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("show takes exactly one fragment id")
	}
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fragment, err := db.FragmentRepository().GetFragment(c.Context, id)
	if err != nil {
		return fmt.Errorf("fragment %d: %w", id, err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "ID:       %d\n", fragment.Id)
	fmt.Fprintf(out, "Text:     %s\n", fragment.Text)
	fmt.Fprintf(out, "Inserted: %s\n", fragment.InsertedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Updated:  %s\n", fragment.UpdatedAt.Format(time.RFC3339))
	for _, key := range slices.Sorted(maps.Keys(fragment.Metadata)) {
		fmt.Fprintf(out, "Meta:     %s=%s\n", key, fragment.Metadata[key])
	}
	if !fragment.Analyzed() {
		fmt.Fprintln(out, "Analysis: pending")
		return nil
	}
	fmt.Fprintf(out, "Themes:   %s\n", strings.Join(fragment.Analysis.Themes, ", "))
	fmt.Fprintf(out, "Mood:     %s\n", fragment.Analysis.Mood)
	fmt.Fprintf(out, "Rhymes:   %s\n", strings.Join(fragment.Analysis.RhymePatterns, ", "))
	fmt.Fprintf(out, "Imagery:  %s\n", strings.Join(fragment.Analysis.ImageryTags, ", "))
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("delete takes at least one fragment id")
	}
	ids := make([]core.ID, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.FragmentRepository().DeleteFragments(c.Context, ids...); err != nil {
		return fmt.Errorf("failed to delete fragments: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d fragments\n", len(ids))
	return nil
}

func matchCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("match needs a line of text")
	}

	var engineOpts []match.EngineOption
	if c.IsSet("limit") {
		engineOpts = append(engineOpts, match.WithDisplayLimit(c.Int("limit")))
	}
	if c.Bool("no-adapt") {
		engineOpts = append(engineOpts, match.WithAdaptLimit(0))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	matcher, err := newMatcher(db, cfg, engineOpts...)
	if err != nil {
		return err
	}
	defer matcher.Release()

	results, err := matcher.Match(c.Context, text)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	out := c.App.Writer
	if len(results) == 0 {
		fmt.Fprintln(out, "No matches found")
		return nil
	}
	for i, result := range results {
		fmt.Fprintf(out, "%d. [%.2f] #%d %s\n", i+1, result.Score, result.CandidateID, result.Text)
		for _, reason := range result.Reasons {
			fmt.Fprintf(out, "   - %s\n", reason)
		}
		if result.Adaptation != "" {
			fmt.Fprintf(out, "   > %s\n", result.Adaptation)
		}
	}
	return nil
}

func patternsCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	patterns := rhyme.Extract(text)
	if len(patterns) == 0 {
		fmt.Fprintln(c.App.Writer, "No rhyme patterns found")
		return nil
	}
	fmt.Fprintln(c.App.Writer, strings.Join(patterns, " "))
	return nil
}

func reanalyzeCommand(c *cli.Context) error {
	reanalyzeConfig := &reanalyze.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Resume:         c.Bool("resume"),
		OnlyMissing:    c.Bool("only-missing"),
	}

	// Validate config
	if reanalyzeConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reanalyzeConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reanalyzeConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	progress := c.App.ErrWriter
	reanalyzer, err := db.NewReanalyzer(reanalyzeConfig, progress)
	if err != nil {
		return fmt.Errorf("failed to create reanalyzer: %w", err)
	}

	fmt.Fprintf(progress, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(progress, "Analysis host: %s\n", cfg.AI.Host)
	fmt.Fprintf(progress, "Analyzer model: %s\n", cfg.AI.AnalyzerModel)
	fmt.Fprintln(progress)

	summary, err := reanalyzer.Run(c.Context)
	if err != nil {
		return fmt.Errorf("reanalysis failed: %w", err)
	}
	if summary.Failed > 0 {
		slog.Warn("some fragments could not be analyzed", "failed", summary.Failed)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func readLines(r io.Reader) ([]string, error) {
	if r == nil {
		return nil, nil
	}
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", pair)
		}
		metadata[strings.TrimSpace(key)] = value
	}
	return metadata, nil
}

func parseID(s string) (core.ID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid fragment id %q", s)
	}
	return core.ID(id), nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength-3]) + "..."
}
