// Package reanalyze re-runs analysis over every stored fragment.
//
// It is the maintenance job to use after switching analysis models or after
// a period in which the analysis service was unavailable. Fragments are
// visited in ascending ID order in fixed-size batches; each batch is
// analyzed with retries and exponential backoff, written back, and followed
// by a checkpoint so an interrupted run can resume where it stopped.
package reanalyze
