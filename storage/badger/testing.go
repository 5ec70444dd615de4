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

package badger

import "github.com/poiesic/stanza/storage"

// MemoryRepositories bundles in-memory repositories sharing one backend.
type MemoryRepositories struct {
	Fragments   storage.FragmentRepository
	Checkpoints storage.CheckpointRepository
	Backend     *Backend
}

// Close releases the repositories and then the backend.
func (m *MemoryRepositories) Close() error {
	fragErr := m.Fragments.Close()
	if err := m.Backend.Close(); err != nil {
		return err
	}
	return fragErr
}

// NewMemoryRepositories creates in-memory fragment and checkpoint repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*MemoryRepositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	fragments, err := NewFragmentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &MemoryRepositories{
		Fragments:   fragments,
		Checkpoints: NewCheckpointRepository(backend),
		Backend:     backend,
	}, nil
}
