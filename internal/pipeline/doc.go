// Package pipeline defines the shared data model for the ingestion and
// retrieval pipeline: page records produced by loaders, chunked documents,
// embedding batches, search results, and the JSON file stores that persist
// them between stages.
//
// Every stage consumes and produces these types, so the invariants live
// here: chunk IDs are a contiguous 1..N sequence, word counts are always
// recomputed from content, and an embedding batch is rejected before any
// store mutation if a single vector disagrees with the declared dimension.
package pipeline
