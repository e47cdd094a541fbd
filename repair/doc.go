// Package repair provides functionality for restoring the card invariant
// across all talent records: every dimension registered in the registry has
// an entry in every record's card.
//
// The invariant normally holds through backfill at dimension creation time,
// but records imported from external sources or touched by interrupted
// migrations can lag. The repairer walks all records in batches, fills
// missing keys with each dimension's structural default, and reports
// progress. Writes are retried with exponential backoff.
package repair
