// Package match scores stored fragments against a query fragment and ranks them.
//
// The Engine is pure: it compares two analyses along four weighted factors
// (themes, rhyme patterns, mood and imagery), filters weak candidates and
// ranks the rest with a stable sort. It has no failure modes; missing
// attributes count as empty.
//
// The Matcher wraps an Engine with the request pipeline:
//   - Analyze the query text with an ai.Analyzer
//   - Snapshot the analyzed fragments from storage as candidates
//   - Score and rank them with the Engine
//   - Ask an ai.Adapter for rewrites of the top results, concurrently
//
// Adaptation failures are logged and leave the result's Adaptation empty;
// only a failed query analysis fails the request.
package match
