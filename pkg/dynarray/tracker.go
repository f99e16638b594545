package dynarray

import "sync/atomic"

// Tracker counts the storage an Array acquires and releases: element copies
// and backing buffers. A nil *Tracker is valid and records nothing.
//
// One Tracker may be shared by several arrays living on different goroutines.
type Tracker struct {
	elemAllocs     atomic.Int64
	elemReleases   atomic.Int64
	bufferAllocs   atomic.Int64
	bufferReleases atomic.Int64
}

// TrackerStats is a point-in-time snapshot of a Tracker.
type TrackerStats struct {
	ElementAllocs   int64 `json:"element_allocs"`
	ElementReleases int64 `json:"element_releases"`
	BufferAllocs    int64 `json:"buffer_allocs"`
	BufferReleases  int64 `json:"buffer_releases"`
}

// Stats returns the current counters.
func (t *Tracker) Stats() TrackerStats {
	if t == nil {
		return TrackerStats{}
	}
	return TrackerStats{
		ElementAllocs:   t.elemAllocs.Load(),
		ElementReleases: t.elemReleases.Load(),
		BufferAllocs:    t.bufferAllocs.Load(),
		BufferReleases:  t.bufferReleases.Load(),
	}
}

// Live reports how many element copies and buffers are still held.
func (t *Tracker) Live() (elements, buffers int64) {
	s := t.Stats()
	return s.ElementAllocs - s.ElementReleases, s.BufferAllocs - s.BufferReleases
}

func (t *Tracker) allocElement() {
	if t != nil {
		t.elemAllocs.Add(1)
	}
}

func (t *Tracker) releaseElement() {
	if t != nil {
		t.elemReleases.Add(1)
	}
}

func (t *Tracker) allocBuffer() {
	if t != nil {
		t.bufferAllocs.Add(1)
	}
}

func (t *Tracker) releaseBuffer() {
	if t != nil {
		t.bufferReleases.Add(1)
	}
}
