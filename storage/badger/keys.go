package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/newswire/core"
)

const (
	articleRecordPrefix = "artrec"
	articleDatePrefix   = "artdate"
	sourceRecordPrefix  = "srcrec"
	checkpointPrefix    = "lanechk"
)

// makeArticleKey generates the primary key for an article. Articles are keyed
// by URL so the key itself enforces uniqueness of the natural key.
func makeArticleKey(url string) []byte {
	return prefixed(articleRecordPrefix, url)
}

// makeArticleDateKey generates a composite key for the published date index.
// Format: prefix:timestamp:id
func makeArticleDateKey(publishedAt time.Time, id core.ID) []byte {
	prefix := articleDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(publishedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeSourceKey generates the primary key for a source by name.
func makeSourceKey(name string) []byte {
	return prefixed(sourceRecordPrefix, name)
}

// makeCheckpointKey generates a key for lane checkpoints.
func makeCheckpointKey(lane string) []byte {
	return prefixed(checkpointPrefix, lane)
}

// prefixed returns "prefix:value" as a fresh byte slice.
func prefixed(prefix, value string) []byte {
	buf := make([]byte, 0, len(prefix)+1+len(value))
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	return append(buf, value...)
}
