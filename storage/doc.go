// Package storage defines repository interfaces and serialization for
// talentdeck's persistent state: the dimension registry, talent records,
// tags, and ingestion jobs.
//
// Repository interfaces are backend-agnostic; the badger subpackage
// provides the BadgerDB implementation. All mutating operations are
// single atomic units against the backing store: ensure-dimension with
// its backfill, record merges, and job state transitions each commit in
// one transaction.
package storage
