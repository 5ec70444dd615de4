// Package ingestion provides pipeline orchestration for storing fragments.
//
// The Pipeline type manages the ingestion workflow for fragments, including:
//   - Skipping texts whose fingerprint is already stored
//   - Adding new fragments to storage
//   - Analyzing them asynchronously (themes, mood, imagery, rhyme patterns)
//
// Analysis is performed on a worker pool. Errors during async processing are
// logged and counted but do not fail the ingestion operation; fragments that
// fail analysis stay unanalyzed and are not offered as match candidates until
// a reanalyze run succeeds for them.
package ingestion
