// Package ingestion provides pipeline orchestration for talent card
// extraction jobs.
//
// The Pipeline type manages the ingestion workflow for raw input about a
// person, including:
//   - Persisting an ingestion job in the processing state
//   - Calling the extraction oracle asynchronously
//   - Registering dimensions the oracle proposes (with backfill)
//   - Merging extracted content into the talent record per modality
//   - Resolving suggested tags
//   - Committing the record mutation and terminal job state together
//
// Processing is performed concurrently using a worker pool. Errors during
// the asynchronous phase never propagate to a caller; they end the job in
// the failed state, discoverable via JobStatus.
package ingestion
