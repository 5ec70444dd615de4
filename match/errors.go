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

package match

import "errors"

var (
	// ErrInvalidThreshold is returned when a threshold lies outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidLimit is returned when a display or adapt limit is out of range.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrFragmentRepositoryRequired is returned when a fragment repository is not provided.
	ErrFragmentRepositoryRequired = errors.New("fragment repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrAnalysisFailed is returned when the query text could not be analyzed.
	// The underlying provider error is wrapped.
	ErrAnalysisFailed = errors.New("query analysis failed")
)
