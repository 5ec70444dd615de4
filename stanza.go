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

// Package stanza wires storage, analysis and matching into a single database handle.
package stanza

import (
	"io"
	"log/slog"

	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/ai/openai"
	"github.com/poiesic/stanza/ingestion"
	"github.com/poiesic/stanza/match"
	"github.com/poiesic/stanza/reanalyze"
	"github.com/poiesic/stanza/storage"
	"github.com/poiesic/stanza/storage/badger"
)

type Database struct {
	backend        *badger.Backend
	fragmentRepo   storage.FragmentRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.AIProvider
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the configuration used to build the OpenAI-compatible provider.
// Ignored when WithProvider is also given.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider uses an existing AI provider instead of building one.
// The database takes ownership and closes it on Close.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all data in memory. The file path is ignored.
func WithInMemory(inMemory bool) DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = inMemory
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create fragment repository
	fragmentRepo, err := badger.NewFragmentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create checkpoint repository
	checkpointRepo := badger.NewCheckpointRepository(backend)

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			fragmentRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:        backend,
		fragmentRepo:   fragmentRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		logger:         slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.fragmentRepo.Close(); err != nil {
		db.logger.Error("error closing fragment repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) FragmentRepository() storage.FragmentRepository {
	return db.fragmentRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

// Provider returns the AI provider used for analysis and adaptation.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewIngestionPipeline creates a pipeline that checkpoints its analysis progress.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithCheckpointRepository(db.checkpointRepo)}, opts...)
	return ingestion.NewPipeline(db.fragmentRepo, db.provider, opts...)
}

func (db *Database) NewMatcher(opts ...match.Option) (*match.Matcher, error) {
	return match.NewMatcher(db.fragmentRepo, db.provider, opts...)
}

// NewReanalyzer creates a reanalyzer that writes progress to progress.
// A nil config uses reanalyze.DefaultConfig().
func (db *Database) NewReanalyzer(config *reanalyze.Config, progress io.Writer) (*reanalyze.Reanalyzer, error) {
	return reanalyze.NewReanalyzer(db.fragmentRepo, db.checkpointRepo, db.provider.Analyzer(), config, progress)
}
