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

// Package rhyme derives and compares rhyme patterns.
//
// A rhyme pattern is the last three or four characters of a word. It is a
// string-suffix proxy for the sound of a line ending, not a phonetic
// transcription, and the heuristics here deliberately stay that simple:
//
//   - Extract turns free text into an ordered, deduplicated pattern set
//   - Matches decides whether two patterns plausibly rhyme
//   - Score greedily pairs two pattern sets and returns the matched fraction
//
// All functions are pure and safe for concurrent use.
package rhyme
