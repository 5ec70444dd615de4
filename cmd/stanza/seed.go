package main

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/stanza/ingestion"
)

var sampleLines = []string{
	"The harbour sleeps beneath a silver moon",
	"Neon rain is falling on the midnight train",
	"I kept your letters in a shoebox by the door",
	"Engines roar downtown while the city burns bright",
	"We were young and reckless in the summer heat",
	"Paper boats are sinking in the gutter stream",
	"Every streetlight hums a song I used to know",
	"Cold coffee and a radio that only plays the blues",
	"Your shadow dances on the kitchen wall tonight",
	"The tide pulls back the secrets that the sand forgot",
	"Broken glass is glittering like stars along the road",
	"I trade my yesterdays for one more golden hour",
	"Thunder rolls across the wheat fields of July",
	"The old piano keeps the rhythm of the rain",
	"Smoke and mirrors, every promise turned to dust",
	"We drove all night to chase a fading light",
	"Lanterns drift above the river in the dark",
	"My heart's a lonely motel off the interstate",
	"Sparrows gather where the morning breaks in gold",
	"The clocktower counts the seconds till you're gone",
}

// linesFromFile returns an iterator over the lines of a file.
func linesFromFile(filename string) (iter.Seq[string], func() error, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}

	var scanErr error
	seq := func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
		scanErr = scanner.Err()
	}
	return seq, func() error { return scanErr }, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests lines in batches.
// Returns the number of fragments added.
func ingestBatched(ctx context.Context, pipeline *ingestion.Pipeline, source iter.Seq[string], batchSize int) (int, error) {
	added := 0
	batch := make([]string, 0, batchSize)

	flush := func() error {
		fragments, err := pipeline.Ingest(ctx, batch, nil)
		if err != nil {
			return err
		}
		added += len(fragments)
		batch = batch[:0]
		return nil
	}

	for line := range source {
		batch = append(batch, line)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return added, err
			}
		}
	}

	// Process any remaining lines
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return added, err
		}
	}

	return added, nil
}

func seedCommand(c *cli.Context) error {
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	source := linesFromSlice(sampleLines)
	sourceErr := func() error { return nil }
	if src := c.String("src"); src != "" {
		var err error
		source, sourceErr, err = linesFromFile(src)
		if err != nil {
			return fmt.Errorf("failed to open seed file: %w", err)
		}
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

	added, err := ingestBatched(c.Context, pipeline, source, batchSize)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	if err := sourceErr(); err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	pipeline.Wait()

	stats := pipeline.Stats()
	fmt.Fprintf(c.App.Writer, "Seeded %d fragments (%d analyzed, %d analysis failures)\n",
		added, stats.Analyzed, stats.Failed)
	return nil
}
