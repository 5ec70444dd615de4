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

package reanalyze

import (
	"context"

	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/storage"
)

const (
	// DefaultBatchSize is the default number of fragments to fetch in each batch
	DefaultBatchSize = 100
)

// FragmentIterator pages through stored fragments in ascending ID order.
type FragmentIterator struct {
	repo      storage.FragmentRepository
	batchSize int
}

// NewFragmentIterator creates a new fragment iterator.
// batchSize: number of fragments to fetch in each batch; values <= 0 use DefaultBatchSize
func NewFragmentIterator(repo storage.FragmentRepository, batchSize int) *FragmentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &FragmentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of fragments with an ID greater than afterID.
// Only one batch is held in memory at a time. Iteration stops on the first
// error from fn or when all fragments are processed; context cancellation is
// checked between batches.
func (it *FragmentIterator) ForEach(ctx context.Context, afterID core.ID, fn func([]*core.Fragment) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.repo.GetFragmentsAfterID(ctx, afterID, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		if len(batch) < it.batchSize {
			return nil
		}
		afterID = batch[len(batch)-1].Id
	}
}
