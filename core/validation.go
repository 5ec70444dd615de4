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

package core

import (
	"fmt"
	"strings"
)

// ValidateFragment validates a Fragment according to domain rules.
//
// Validation rules:
//   - Text must not be blank
//   - Analysis, when present, must be valid
//
// NOT validated (populated by storage or processors):
//   - ID (0 is valid before insertion)
//   - Fingerprint (computed on insert)
//   - Analysis (nil until the analysis processor runs)
func ValidateFragment(fragment *Fragment) error {
	if fragment == nil {
		return fmt.Errorf("%w: fragment is nil", ErrInvalidFragment)
	}

	if strings.TrimSpace(fragment.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyText)
	}

	if fragment.Analysis != nil {
		if err := ValidateAnalysis(fragment.Analysis); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFragment, err)
		}
	}

	return nil
}

// ValidateAnalysis checks that every attribute set holds unique, non-empty elements.
// The mood string may be empty.
func ValidateAnalysis(analysis *Analysis) error {
	if analysis == nil {
		return fmt.Errorf("%w: analysis is nil", ErrInvalidAnalysis)
	}

	sets := []struct {
		name   string
		values []string
	}{
		{"themes", analysis.Themes},
		{"rhyme patterns", analysis.RhymePatterns},
		{"imagery tags", analysis.ImageryTags},
	}
	for _, set := range sets {
		if err := validateAttributeSet(set.values); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidAnalysis, set.name, err)
		}
	}
	return nil
}

func validateAttributeSet(values []string) error {
	seen := make(map[string]bool, len(values))
	for i, v := range values {
		if v == "" {
			return fmt.Errorf("%w: index %d", ErrEmptyAttribute, i)
		}
		if seen[v] {
			return fmt.Errorf("%w: %q", ErrDuplicateAttribute, v)
		}
		seen[v] = true
	}
	return nil
}
