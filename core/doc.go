// Package core provides the foundational domain types, interfaces and error
// taxonomy used by Memoweave. It defines the core abstractions for:
//
//   - Memory items (persisted facts with a dedup key and optional TTL)
//   - Candidates (ephemeral fact proposals extracted from utterances)
//   - Pending suggestions (scored candidates awaiting explicit consent)
//   - Consolidation results (merge / update / conflict decisions)
//   - Pluggable collaborators (embedder, PII detector, candidate extractor)
//   - Metrics events emitted by every pipeline stage
//
// The package intentionally keeps implementation concerns (persistence,
// scoring heuristics, orchestration) out of scope, exposing small interfaces
// to enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
