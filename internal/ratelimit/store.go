package ratelimit

import (
	"context"
	"sort"
	"time"
)

// Records is the view of the stored timestamps handed to an Update callback.
// It is only valid inside the callback.
type Records interface {
	Get(key string) []int64
	// Set replaces the timestamps of key. An empty slice deletes the key.
	Set(key string, timestamps []int64)
}

// Store keeps rate-limit records. Update runs fn while holding an exclusive
// lock over the whole read-modify-write cycle and persists what fn Set.
type Store interface {
	Update(ctx context.Context, fn func(Records) error) error
	Close() error
}

// document is the in-memory form shared by the file and memory stores.
type document map[string][]int64

type documentRecords struct {
	doc   document
	dirty bool
}

func (r *documentRecords) Get(key string) []int64 {
	return append([]int64(nil), r.doc[key]...)
}

func (r *documentRecords) Set(key string, timestamps []int64) {
	r.dirty = true
	if len(timestamps) == 0 {
		delete(r.doc, key)
		return
	}
	sorted := append([]int64(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	r.doc[key] = sorted
}

// sweep drops keys whose newest timestamp is more than retention older
// than the newest timestamp in the document.
func (d document) sweep(retention time.Duration) bool {
	if retention <= 0 {
		return false
	}

	var newest int64
	for _, timestamps := range d {
		if n := len(timestamps); n > 0 && timestamps[n-1] > newest {
			newest = timestamps[n-1]
		}
	}
	cutoff := newest - int64(retention/time.Second)

	changed := false
	for key, timestamps := range d {
		if len(timestamps) == 0 || timestamps[len(timestamps)-1] < cutoff {
			delete(d, key)
			changed = true
		}
	}
	return changed
}
