package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Modality identifies the kind of raw input an ingestion job was created from.
type Modality int

const (
	// ModalityText represents a free-text note typed by a user.
	ModalityText Modality = iota + 1
	// ModalityDocument represents an uploaded document rendered to page images.
	ModalityDocument
)

// String returns the storage representation of the modality.
func (m Modality) String() string {
	switch m {
	case ModalityText:
		return "text"
	case ModalityDocument:
		return "document"
	default:
		return "unknown"
	}
}

// JobState is the lifecycle state of an ingestion job.
type JobState int

const (
	// JobStateProcessing means the asynchronous extraction phase has not finished.
	JobStateProcessing JobState = iota + 1
	// JobStateDone means the job completed and its result was merged into the record.
	JobStateDone
	// JobStateFailed means the job terminated without mutating the record.
	JobStateFailed
)

// Terminal reports whether the state permits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// String returns the storage representation of the state.
func (s JobState) String() string {
	switch s {
	case JobStateProcessing:
		return "processing"
	case JobStateDone:
		return "done"
	case JobStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dimension is a named, ordered schema slot that every talent card carries.
// Keys are immutable once created; dimensions are never deleted or renamed.
type Dimension struct {
	Id         ID        `json:"id"`
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	SchemaHint string    `json:"schema_hint"` // JSON text describing the expected value shape
	Builtin    bool      `json:"builtin"`
	Order      int       `json:"order"`
	InsertedAt time.Time `json:"inserted_at"`
}

// TalentRecord is a single talent card with its contact fields and
// dynamically shaped card data keyed by dimension.
type TalentRecord struct {
	Id         ID        `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	Card       Card      `json:"card"`
	Summary    string    `json:"summary"`
	Tags       []ID      `json:"tags"`
	InsertedAt time.Time `json:"inserted_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasTag reports whether the record is already associated with the tag.
func (r *TalentRecord) HasTag(tagID ID) bool {
	for _, id := range r.Tags {
		if id == tagID {
			return true
		}
	}
	return false
}

// Tag is a label shared across talent records. Names are unique and
// matched case-sensitively.
type Tag struct {
	Id         ID        `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	InsertedAt time.Time `json:"inserted_at"`
}

// DefaultTagColor is assigned to tags created without an explicit color.
const DefaultTagColor = "#3B82F6"

// IngestionJob is one unit of asynchronous work converting raw input into
// structured card data for a record. Jobs are created in JobStateProcessing
// and transition exactly once to a terminal state.
type IngestionJob struct {
	Id       ID       `json:"id"`
	RecordId ID       `json:"record_id"`
	Input    string   `json:"input"` // raw text, or a descriptor for document uploads
	Modality Modality `json:"modality"`
	State    JobState `json:"state"`
	// RawResult retains the oracle's response for audit; on failure it
	// holds the error text instead.
	RawResult string    `json:"raw_result"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactInfo carries contact fields identified by document extraction.
// Fields are applied to a record only where the record's value is blank.
type ContactInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"current_role"`
	Department string `json:"department"`
}
