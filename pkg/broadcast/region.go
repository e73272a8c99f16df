package broadcast

import (
	"errors"
	"unsafe"
)

// ErrRegionTooSmall is returned when a region's backing storage is
// shorter than the alignment guarantee it claims to provide.
var ErrRegionTooSmall = errors.New("broadcast: region storage too small")

// wordAlign is the alignment the core requires of a region's base
// address: the natural alignment of a uint64.
const wordAlign = int(unsafe.Alignof(uint64(0)))

// unmapper releases mapped storage. Only set for regions backed by an
// external mapping (see NewMappedRegion); heap-backed regions have
// nothing to release beyond what the garbage collector already owns.
type unmapper func([]byte) error

// ByteRegion owns a contiguous, uniquely-referenced byte buffer that is
// aliased by every AtomicView built over it. It never interprets its
// own bytes; that is the job of AtomicView. A ByteRegion never
// truncates or reopens backing files - acquiring the file descriptor
// and mapping it is the job of an external collaborator (see
// package shmfile); ByteRegion only takes ownership of the resulting
// slice.
type ByteRegion struct {
	data    []byte
	release unmapper
	closed  bool
}

// NewHeapRegion allocates a zero-initialized region of size bytes on
// the Go heap. Go's allocator returns slices whose backing array is at
// least word-aligned, satisfying the core's alignment requirement.
func NewHeapRegion(size int) (*ByteRegion, error) {
	if size <= 0 {
		return nil, errors.New("broadcast: region size must be positive")
	}
	return &ByteRegion{data: make([]byte, size)}, nil
}

// NewMappedRegion wraps an already-mapped slice (typically returned by
// shmfile.Open) and takes ownership of it: Close calls release on it
// exactly once. The caller must not touch data after handing it to
// NewMappedRegion.
func NewMappedRegion(data []byte, release func([]byte) error) (*ByteRegion, error) {
	if data == nil {
		return nil, errors.New("broadcast: mapped region data is nil")
	}
	if len(data) < wordAlign {
		return nil, ErrRegionTooSmall
	}
	if uintptr(unsafe.Pointer(&data[0]))%uintptr(wordAlign) != 0 {
		return nil, errors.New("broadcast: mapped region is not word-aligned")
	}
	return &ByteRegion{data: data, release: release}, nil
}

// Capacity returns the total length of the region in bytes, including
// the trailing counters block.
func (r *ByteRegion) Capacity() int {
	return len(r.data)
}

// Close releases the region's backing storage. It is a no-op for
// heap-backed regions and idempotent for mapped ones.
func (r *ByteRegion) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.release != nil {
		return r.release(r.data)
	}
	return nil
}

func (r *ByteRegion) basePtr() unsafe.Pointer {
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&r.data[0])
}
