package metrics

import (
	"sync/atomic"
	"time"
)

// BucketCount is the number of histogram buckets, the last one unbounded.
const BucketCount = 8

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type histogram struct {
	buckets [BucketCount]uint64
}

// Set is a fixed group of counters and histograms addressed by index.
// Out-of-range indexes are ignored.
type Set struct {
	counters   []paddedCounter
	histograms []histogram
}

// NewSet allocates counters and histograms slots.
func NewSet(counters, histograms int) *Set {
	if counters < 0 {
		counters = 0
	}
	if histograms < 0 {
		histograms = 0
	}
	return &Set{
		counters:   make([]paddedCounter, counters),
		histograms: make([]histogram, histograms),
	}
}

func (s *Set) Inc(i int) {
	if i < 0 || i >= len(s.counters) {
		return
	}
	atomic.AddUint64(&s.counters[i].value, 1)
}

func (s *Set) Counter(i int) uint64 {
	if i < 0 || i >= len(s.counters) {
		return 0
	}
	return atomic.LoadUint64(&s.counters[i].value)
}

// Observe records d in histogram i.
func (s *Set) Observe(i int, d time.Duration) {
	if i < 0 || i >= len(s.histograms) {
		return
	}
	atomic.AddUint64(&s.histograms[i].buckets[BucketIndex(d)], 1)
}

// Buckets returns the non-cumulative bucket counts of histogram i.
func (s *Set) Buckets(i int) []uint64 {
	out := make([]uint64, BucketCount)
	if i < 0 || i >= len(s.histograms) {
		return out
	}
	for b := range out {
		out[b] = atomic.LoadUint64(&s.histograms[i].buckets[b])
	}
	return out
}

// BucketIndex maps d to its bucket: 5, 10, 25, 50, 100, 250, 500 ms, +Inf.
func BucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
