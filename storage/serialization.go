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

package storage

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/stanza/core"
)

// Record layouts, in field order:
//
//	Fragment:   id, text, hasAnalysis, [themes, rhymes, mood, imagery], fingerprint,
//	            metadata (count, then key/value pairs sorted by key), insertedAt, updatedAt
//	Checkpoint: processorType, lastID, updatedAt
//
// Integers are varints, strings are length-prefixed, string lists are a
// count followed by the strings and times are Unix microseconds (0 = zero time).

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalFragment serializes a Fragment to bytes.
func MarshalFragment(fragment *core.Fragment) []byte {
	keys := sortedKeys(fragment.Metadata)

	size := varint.Uint64.Size(uint64(fragment.Id)) +
		ord.String.Size(fragment.Text) +
		ord.Bool.Size(fragment.Analysis != nil)
	if a := fragment.Analysis; a != nil {
		size += stringsSize(a.Themes) + stringsSize(a.RhymePatterns) +
			ord.String.Size(a.Mood) + stringsSize(a.ImageryTags)
	}
	size += varint.Uint64.Size(uint64(fragment.Fingerprint)) +
		varint.Uint64.Size(uint64(len(keys)))
	for _, k := range keys {
		size += ord.String.Size(k) + ord.String.Size(fragment.Metadata[k])
	}
	size += timeSize(fragment.InsertedAt) + timeSize(fragment.UpdatedAt)

	w := &writer{buf: make([]byte, size)}
	w.uint64(uint64(fragment.Id))
	w.string(fragment.Text)
	w.bool(fragment.Analysis != nil)
	if a := fragment.Analysis; a != nil {
		w.strings(a.Themes)
		w.strings(a.RhymePatterns)
		w.string(a.Mood)
		w.strings(a.ImageryTags)
	}
	w.uint64(uint64(fragment.Fingerprint))
	w.uint64(uint64(len(keys)))
	for _, k := range keys {
		w.string(k)
		w.string(fragment.Metadata[k])
	}
	w.time(fragment.InsertedAt)
	w.time(fragment.UpdatedAt)
	return w.buf
}

// UnmarshalFragment deserializes a Fragment from bytes.
func UnmarshalFragment(data []byte) (*core.Fragment, error) {
	r := &reader{buf: data}

	fragment := &core.Fragment{}
	fragment.Id = core.ID(r.uint64())
	fragment.Text = r.string()
	if r.bool() {
		fragment.Analysis = &core.Analysis{
			Themes:        r.strings(),
			RhymePatterns: r.strings(),
			Mood:          r.string(),
			ImageryTags:   r.strings(),
		}
	}
	fragment.Fingerprint = core.ID(r.uint64())
	if n := r.uint64(); n > 0 && r.err == nil {
		fragment.Metadata = make(map[string]string, min(n, 64))
		for i := uint64(0); i < n && r.err == nil; i++ {
			k := r.string()
			fragment.Metadata[k] = r.string()
		}
	}
	fragment.InsertedAt = r.time()
	fragment.UpdatedAt = r.time()

	if err := r.finish(); err != nil {
		return nil, err
	}
	return fragment, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	size := ord.String.Size(checkpoint.ProcessorType) +
		varint.Uint64.Size(uint64(checkpoint.LastID)) +
		timeSize(checkpoint.UpdatedAt)

	w := &writer{buf: make([]byte, size)}
	w.string(checkpoint.ProcessorType)
	w.uint64(uint64(checkpoint.LastID))
	w.time(checkpoint.UpdatedAt)
	return w.buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	r := &reader{buf: data}
	checkpoint := &core.Checkpoint{
		ProcessorType: r.string(),
		LastID:        core.ID(r.uint64()),
		UpdatedAt:     r.time(),
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return checkpoint, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func stringsSize(values []string) int {
	size := varint.Uint64.Size(uint64(len(values)))
	for _, v := range values {
		size += ord.String.Size(v)
	}
	return size
}

func timeMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func timeSize(t time.Time) int {
	return varint.Int64.Size(timeMicros(t))
}

// writer appends fields into a buffer presized by the caller.
type writer struct {
	buf []byte
	off int
}

func (w *writer) uint64(v uint64) {
	w.off += varint.Uint64.Marshal(v, w.buf[w.off:])
}

func (w *writer) string(v string) {
	w.off += ord.String.Marshal(v, w.buf[w.off:])
}

func (w *writer) bool(v bool) {
	w.off += ord.Bool.Marshal(v, w.buf[w.off:])
}

func (w *writer) strings(values []string) {
	w.uint64(uint64(len(values)))
	for _, v := range values {
		w.string(v)
	}
}

func (w *writer) time(t time.Time) {
	w.off += varint.Int64.Marshal(timeMicros(t), w.buf[w.off:])
}

// reader consumes fields in order and remembers the first error; every
// accessor is a no-op returning the zero value once an error is recorded.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.buf[r.off:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.off += n
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.buf[r.off:])
	if err != nil {
		r.fail(err)
		return ""
	}
	r.off += n
	return v
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.buf[r.off:])
	if err != nil {
		r.fail(err)
		return false
	}
	r.off += n
	return v
}

func (r *reader) strings() []string {
	n := r.uint64()
	if r.err != nil {
		return []string{}
	}
	// Every string takes at least one byte, so a count beyond the remaining
	// input is corrupt.
	if n > uint64(len(r.buf)-r.off) {
		r.fail(ErrTruncatedData)
		return []string{}
	}
	values := make([]string, 0, n)
	for i := uint64(0); i < n && r.err == nil; i++ {
		values = append(values, r.string())
	}
	return values
}

func (r *reader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(r.buf[r.off:])
	if err != nil {
		r.fail(err)
		return time.Time{}
	}
	r.off += n
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// finish reports the first decoding error, or ErrTruncatedData if input remains.
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrTruncatedData, len(r.buf)-r.off)
	}
	return nil
}
