// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/newswire/core"
)

// Record codecs built from mus-go primitives. Field order is the wire order;
// append new fields at the end only.

var (
	// ArticleMUS encodes core.Article values.
	ArticleMUS = articleMUS{}
	// SourceMUS encodes core.Source values.
	SourceMUS = sourceMUS{}
	// CheckpointMUS encodes core.LaneCheckpoint values.
	CheckpointMUS = checkpointMUS{}
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalArticle serializes an Article to bytes.
func MarshalArticle(article *core.Article) []byte {
	buf := make([]byte, ArticleMUS.Size(*article))
	ArticleMUS.Marshal(*article, buf)
	return buf
}

// UnmarshalArticle deserializes an Article from bytes.
func UnmarshalArticle(data []byte) (*core.Article, error) {
	article, _, err := ArticleMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &article, nil
}

// MarshalSource serializes a Source to bytes.
func MarshalSource(source *core.Source) []byte {
	buf := make([]byte, SourceMUS.Size(*source))
	SourceMUS.Marshal(*source, buf)
	return buf
}

// UnmarshalSource deserializes a Source from bytes.
func UnmarshalSource(data []byte) (*core.Source, error) {
	source, _, err := SourceMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &source, nil
}

// MarshalCheckpoint serializes a LaneCheckpoint to bytes.
func MarshalCheckpoint(checkpoint *core.LaneCheckpoint) []byte {
	buf := make([]byte, CheckpointMUS.Size(*checkpoint))
	CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a LaneCheckpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.LaneCheckpoint, error) {
	checkpoint, _, err := CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &checkpoint, nil
}

// Field helpers. Timestamps are stored as Unix microseconds; the zero time
// is stored as 0 so it round-trips to time.Time{}.

func timeSize(t time.Time) int {
	return varint.Int64.Size(timeMicros(t))
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeMicros(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || us == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func timeMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func intSize(v int) int {
	return varint.Int64.Size(int64(v))
}

func marshalInt(v int, bs []byte) int {
	return varint.Int64.Marshal(int64(v), bs)
}

func unmarshalInt(bs []byte) (int, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	return int(v), n, err
}

// fieldReader unmarshals fields in sequence and keeps the first error.
type fieldReader struct {
	bs  []byte
	n   int
	err error
}

func (r *fieldReader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, n, err := unmarshalTime(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := unmarshalInt(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

type articleMUS struct{}

func (articleMUS) Marshal(a core.Article, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(a.Id), bs)
	n += ord.String.Marshal(a.Title, bs[n:])
	n += ord.String.Marshal(a.Content, bs[n:])
	n += ord.String.Marshal(a.Description, bs[n:])
	n += ord.String.Marshal(a.URL, bs[n:])
	n += ord.String.Marshal(a.Category, bs[n:])
	n += ord.String.Marshal(a.Source, bs[n:])
	n += ord.String.Marshal(a.Author, bs[n:])
	n += ord.String.Marshal(a.ImageURL, bs[n:])
	n += marshalTime(a.PublishedAt, bs[n:])
	n += marshalTime(a.FetchedAt, bs[n:])
	n += marshalInt(len(a.Keywords), bs[n:])
	for _, kw := range a.Keywords {
		n += ord.String.Marshal(kw.Term, bs[n:])
		n += varint.Uint64.Marshal(math.Float64bits(kw.Score), bs[n:])
	}
	n += ord.String.Marshal(a.Language, bs[n:])
	n += ord.Bool.Marshal(a.IsFeatured, bs[n:])
	n += ord.Bool.Marshal(a.IsArchived, bs[n:])
	return n
}

func (articleMUS) Unmarshal(bs []byte) (a core.Article, n int, err error) {
	r := &fieldReader{bs: bs}
	a.Id = core.ID(r.uint64())
	a.Title = r.string()
	a.Content = r.string()
	a.Description = r.string()
	a.URL = r.string()
	a.Category = r.string()
	a.Source = r.string()
	a.Author = r.string()
	a.ImageURL = r.string()
	a.PublishedAt = r.time()
	a.FetchedAt = r.time()
	count := r.int()
	if r.err == nil && (count < 0 || count > len(bs)) {
		r.err = fmt.Errorf("%w: keyword count %d", ErrSerializationFailed, count)
	}
	if r.err == nil && count > 0 {
		a.Keywords = make([]core.Keyword, 0, count)
		for i := 0; i < count && r.err == nil; i++ {
			term := r.string()
			score := math.Float64frombits(r.uint64())
			a.Keywords = append(a.Keywords, core.Keyword{Term: term, Score: score})
		}
	}
	a.Language = r.string()
	a.IsFeatured = r.bool()
	a.IsArchived = r.bool()
	return a, r.n, r.err
}

func (articleMUS) Size(a core.Article) (size int) {
	size = varint.Uint64.Size(uint64(a.Id))
	size += ord.String.Size(a.Title)
	size += ord.String.Size(a.Content)
	size += ord.String.Size(a.Description)
	size += ord.String.Size(a.URL)
	size += ord.String.Size(a.Category)
	size += ord.String.Size(a.Source)
	size += ord.String.Size(a.Author)
	size += ord.String.Size(a.ImageURL)
	size += timeSize(a.PublishedAt)
	size += timeSize(a.FetchedAt)
	size += intSize(len(a.Keywords))
	for _, kw := range a.Keywords {
		size += ord.String.Size(kw.Term)
		size += varint.Uint64.Size(math.Float64bits(kw.Score))
	}
	size += ord.String.Size(a.Language)
	size += ord.Bool.Size(a.IsFeatured)
	size += ord.Bool.Size(a.IsArchived)
	return size
}

type sourceMUS struct{}

func (sourceMUS) Marshal(s core.Source, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(s.Id), bs)
	n += ord.String.Marshal(s.Name, bs[n:])
	n += ord.String.Marshal(s.URL, bs[n:])
	n += ord.String.Marshal(s.Category, bs[n:])
	n += ord.String.Marshal(s.Language, bs[n:])
	n += ord.String.Marshal(s.Country, bs[n:])
	n += marshalTime(s.UpdatedAt, bs[n:])
	return n
}

func (sourceMUS) Unmarshal(bs []byte) (s core.Source, n int, err error) {
	r := &fieldReader{bs: bs}
	s.Id = core.ID(r.uint64())
	s.Name = r.string()
	s.URL = r.string()
	s.Category = r.string()
	s.Language = r.string()
	s.Country = r.string()
	s.UpdatedAt = r.time()
	return s, r.n, r.err
}

func (sourceMUS) Size(s core.Source) (size int) {
	size = varint.Uint64.Size(uint64(s.Id))
	size += ord.String.Size(s.Name)
	size += ord.String.Size(s.URL)
	size += ord.String.Size(s.Category)
	size += ord.String.Size(s.Language)
	size += ord.String.Size(s.Country)
	size += timeSize(s.UpdatedAt)
	return size
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(c core.LaneCheckpoint, bs []byte) (n int) {
	n = ord.String.Marshal(c.Lane, bs)
	n += ord.String.Marshal(c.RunID, bs[n:])
	n += marshalTime(c.LastAttempt, bs[n:])
	n += marshalTime(c.LastSuccess, bs[n:])
	n += marshalInt(c.ConsecutiveFailures, bs[n:])
	n += marshalInt(c.Retrieved, bs[n:])
	n += marshalInt(c.Stored, bs[n:])
	n += marshalInt(c.Updated, bs[n:])
	n += marshalInt(c.Skipped, bs[n:])
	n += marshalTime(c.UpdatedAt, bs[n:])
	return n
}

func (checkpointMUS) Unmarshal(bs []byte) (c core.LaneCheckpoint, n int, err error) {
	r := &fieldReader{bs: bs}
	c.Lane = r.string()
	c.RunID = r.string()
	c.LastAttempt = r.time()
	c.LastSuccess = r.time()
	c.ConsecutiveFailures = r.int()
	c.Retrieved = r.int()
	c.Stored = r.int()
	c.Updated = r.int()
	c.Skipped = r.int()
	c.UpdatedAt = r.time()
	return c, r.n, r.err
}

func (checkpointMUS) Size(c core.LaneCheckpoint) (size int) {
	size = ord.String.Size(c.Lane)
	size += ord.String.Size(c.RunID)
	size += timeSize(c.LastAttempt)
	size += timeSize(c.LastSuccess)
	size += intSize(c.ConsecutiveFailures)
	size += intSize(c.Retrieved)
	size += intSize(c.Stored)
	size += intSize(c.Updated)
	size += intSize(c.Skipped)
	size += timeSize(c.UpdatedAt)
	return size
}
