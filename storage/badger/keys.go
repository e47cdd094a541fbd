package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sablehq/talentdeck/core"
)

// Key prefixes for different data types
const (
	talentRecordPrefix = "talrec"
	talentTagPrefix    = "taltag"
	talentIDSeq        = "talrecseq"
	dimensionPrefix    = "dimrec"
	dimensionKeyPrefix = "dimkey"
	tagRecordPrefix    = "tagrec"
	tagNamePrefix      = "tagname"
	jobRecordPrefix    = "jobrec"
	jobRecordIdxPrefix = "jobrecd"
	jobIDSeq           = "jobrecseq"
)

// makeTalentKey generates a key for a talent record by ID.
func makeTalentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", talentRecordPrefix, id))
}

// makeTalentTagKey generates a composite key for the tag index.
// Format: prefix:tagID:talentID
func makeTalentTagKey(tagID, talentID core.ID) []byte {
	prefix := talentTagPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(tagID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(talentID))
	return buf
}

// makePartialTalentTagKey generates a partial key for tag index queries.
// Format: prefix:tagID
func makePartialTalentTagKey(tagID core.ID) []byte {
	prefix := talentTagPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(tagID))
	return buf
}

// makeDimensionKey generates a key for a dimension by ID.
func makeDimensionKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", dimensionPrefix, id))
}

// makeDimensionKeyIndexKey generates a key for dimension lookup by key string.
func makeDimensionKeyIndexKey(key string) []byte {
	return []byte(dimensionKeyPrefix + ":" + key)
}

// makeTagKey generates a key for a tag by ID.
func makeTagKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", tagRecordPrefix, id))
}

// makeTagNameKey generates a key for tag lookup by name.
func makeTagNameKey(name string) []byte {
	return []byte(tagNamePrefix + ":" + name)
}

// makeJobKey generates a key for an ingestion job by ID.
func makeJobKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobRecordPrefix, id))
}

// makeJobRecordIdxKey generates a composite key for the per-record job index.
// Format: prefix:recordID:createdAt:jobID
func makeJobRecordIdxKey(recordID core.ID, createdAt time.Time, jobID core.ID) []byte {
	prefix := jobRecordIdxPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+24)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(recordID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(jobID))
	return buf
}

// makePartialJobRecordIdxKey generates a partial key for per-record job queries.
// Format: prefix:recordID
func makePartialJobRecordIdxKey(recordID core.ID) []byte {
	prefix := jobRecordIdxPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(recordID))
	return buf
}
