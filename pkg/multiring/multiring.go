// Package multiring fans multiple broadcast rings into a single
// timestamp-ordered stream, the way the teacher's pkg/perf.Reader merges
// per-CPU perf rings with a container/heap min-heap. Each record's
// timestamp is read from the first 8 bytes of its payload, little-endian,
// matching the convention used by the example broadcast_tx/broadcast_rx
// drivers.
package multiring

import (
	"container/heap"
	"encoding/binary"
	"errors"

	"github.com/unvariance/broadcastring/pkg/broadcast"
)

var (
	// ErrNoRings is returned by Start when no receivers have been added.
	ErrNoRings = errors.New("multiring: no receivers available")
	// ErrNotActive is returned when Next/Pop is called before Start.
	ErrNotActive = errors.New("multiring: reader is not active")
	// ErrEmpty is returned by Next/Pop when there is currently no buffered entry.
	ErrEmpty = errors.New("multiring: no entry available")
)

// Entry is one record pulled from a ring and staged for ordered delivery.
type Entry struct {
	Timestamp uint64
	TypeID    uint32
	Payload   []byte
	RingIndex int
}

type ringEntryHeap struct {
	entries []Entry
	size    int
}

func (h *ringEntryHeap) Len() int { return h.size }
func (h *ringEntryHeap) Less(i, j int) bool {
	return h.entries[i].Timestamp < h.entries[j].Timestamp
}
func (h *ringEntryHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}
func (h *ringEntryHeap) Push(x any) {
	h.entries = append(h.entries[:h.size], x.(Entry))
	h.size++
}
func (h *ringEntryHeap) Pop() any {
	h.size--
	return h.entries[h.size]
}

// Reader merges several broadcast.Receiver streams, always surfacing the
// buffered record with the smallest timestamp next.
type Reader struct {
	receivers []*broadcast.Receiver
	heap      ringEntryHeap
	inHeap    []bool
	lapped    []uint64
	active    bool
}

// NewReader creates an empty multi-ring reader.
func NewReader() *Reader {
	return &Reader{}
}

// AddReceiver registers a receiver to merge into the ordered stream.
// Must be called before Start.
func (r *Reader) AddReceiver(rx *broadcast.Receiver) error {
	if r.active {
		return errors.New("multiring: cannot add a receiver while active")
	}
	r.receivers = append(r.receivers, rx)
	r.inHeap = append(r.inHeap, false)
	r.lapped = append(r.lapped, 0)
	return nil
}

// Start begins a merge pass, priming the heap with one entry per receiver
// that currently has data.
func (r *Reader) Start() error {
	if len(r.receivers) == 0 {
		return ErrNoRings
	}
	if r.active {
		return errors.New("multiring: already active")
	}
	r.heap = ringEntryHeap{entries: make([]Entry, 0, len(r.receivers))}
	for i := range r.receivers {
		r.inHeap[i] = false
		r.fill(i)
	}
	r.active = true
	return nil
}

// Empty reports whether there is no buffered entry left to deliver.
func (r *Reader) Empty() bool {
	return !r.active || r.heap.size == 0
}

// Next returns the entry with the smallest timestamp without consuming
// it. Call Pop to advance past it.
func (r *Reader) Next() (Entry, error) {
	if !r.active {
		return Entry{}, ErrNotActive
	}
	if r.heap.size == 0 {
		return Entry{}, ErrEmpty
	}
	return r.heap.entries[0], nil
}

// Pop consumes the current minimum entry and refills from its source
// ring, restoring the heap invariant.
func (r *Reader) Pop() error {
	if !r.active {
		return ErrNotActive
	}
	if r.heap.size == 0 {
		return ErrEmpty
	}
	idx := r.heap.entries[0].RingIndex
	heap.Remove(&r.heap, 0)
	r.inHeap[idx] = false
	r.fill(idx)
	return nil
}

// LappedCount returns how many times the receiver at ringIndex has been
// lapped since Start.
func (r *Reader) LappedCount(ringIndex int) uint64 {
	return r.lapped[ringIndex]
}

// fill pulls the next deliverable record from receiver idx into the heap,
// skipping over any records the receiver was lapped past.
func (r *Reader) fill(idx int) {
	rx := r.receivers[idx]
	for {
		var payload []byte
		var typeID uint32
		_, err := rx.ReceiveNextTyped(func(t uint32, v broadcast.View) {
			typeID = t
			payload = append([]byte(nil), v.Bytes()...)
		})
		if errors.Is(err, broadcast.ErrNoElement) {
			return
		}
		if errors.Is(err, broadcast.ErrOverwritten) {
			r.lapped[idx]++
			continue
		}
		if err != nil {
			return
		}

		var timestamp uint64
		if len(payload) >= 8 {
			timestamp = binary.LittleEndian.Uint64(payload[:8])
		}

		heap.Push(&r.heap, Entry{
			Timestamp: timestamp,
			TypeID:    typeID,
			Payload:   payload,
			RingIndex: idx,
		})
		r.inHeap[idx] = true
		return
	}
}
