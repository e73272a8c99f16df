package broadcast

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// View is the atomic view: a borrowed (offset, length) sub-range over a
// ByteRegion's storage. It is the only component permitted to
// reinterpret the region's raw bytes as typed atomics: every load and
// store the core performs on shared memory goes through a View method.
// A View may be freely copied (it is a value type); copying does not
// extend or shorten the underlying region's lifetime.
type View struct {
	region *ByteRegion
	offset int
	length int
}

// NewView constructs a view over region[offset : offset+length].
// Panics (a caller programming error, matching the source's own use of
// assert for this precondition) if the range is out of bounds or if
// the resulting base address is not 8-byte aligned.
func NewView(region *ByteRegion, offset, length int) View {
	if offset < 0 || length < 0 || offset+length > region.Capacity() {
		panic(fmt.Sprintf("broadcast: view (offset=%d, length=%d) exceeds region capacity %d", offset, length, region.Capacity()))
	}
	addr := uintptr(region.basePtr()) + uintptr(offset)
	if addr%uintptr(wordAlign) != 0 {
		panic(fmt.Sprintf("broadcast: view at offset %d is not %d-byte aligned", offset, wordAlign))
	}
	return View{region: region, offset: offset, length: length}
}

// Len reports the view's length in bytes.
func (v View) Len() int { return v.length }

// SubView returns a narrower view sharing the same region, covering
// [start, start+length) of this view's range.
func (v View) SubView(start, length int) View {
	if start < 0 || length < 0 || start+length > v.length {
		panic(fmt.Sprintf("broadcast: sub-view (start=%d, length=%d) exceeds view length %d", start, length, v.length))
	}
	return View{region: v.region, offset: v.offset + start, length: length}
}

func (v View) checkRange(at, width int) {
	if at < 0 || at+width > v.length {
		panic(fmt.Sprintf("broadcast: access at offset %d width %d exceeds view length %d", at, width, v.length))
	}
}

func (v View) ptrAt(at, width int) unsafe.Pointer {
	v.checkRange(at, width)
	addr := uintptr(v.region.basePtr()) + uintptr(v.offset+at)
	debugAssert(addr%uintptr(width) == 0, "misaligned access: offset=%d width=%d", v.offset+at, width)
	return unsafe.Pointer(addr)
}

// Bytes returns the view's range as a read-only byte slice. It is used
// only for formatting/tests and for surfacing the payload to callback
// callers; it is never used by the core to bypass atomic access to
// header or counter fields.
func (v View) Bytes() []byte {
	return v.region.data[v.offset : v.offset+v.length]
}

// BytesMut returns the view's range as a mutable byte slice, for
// payload writer callbacks. As with Bytes, header and counter fields
// are never touched through this path.
func (v View) BytesMut() []byte {
	return v.region.data[v.offset : v.offset+v.length]
}

// LoadUint64 atomically loads an 8-byte unsigned integer at the given
// in-view offset. Go's sync/atomic loads are sequentially consistent,
// which is strictly stronger than the acquire ordering the core
// requires for counter reads.
func (v View) LoadUint64(at int) uint64 {
	return atomic.LoadUint64((*uint64)(v.ptrAt(at, 8)))
}

// StoreUint64 atomically stores an 8-byte unsigned integer at the
// given in-view offset. Sequentially consistent, strictly stronger
// than the release ordering the core requires for counter publication.
func (v View) StoreUint64(at int, val uint64) {
	atomic.StoreUint64((*uint64)(v.ptrAt(at, 8)), val)
}

// LoadInt64 is the signed counterpart of LoadUint64.
func (v View) LoadInt64(at int) int64 {
	return atomic.LoadInt64((*int64)(v.ptrAt(at, 8)))
}

// StoreInt64 is the signed counterpart of StoreUint64.
func (v View) StoreInt64(at int, val int64) {
	atomic.StoreInt64((*int64)(v.ptrAt(at, 8)), val)
}

// LoadUint32 atomically loads a 4-byte unsigned integer (used for
// header length/type_id fields, which the core accesses relaxed - Go's
// atomic load is again a safe over-approximation of that).
func (v View) LoadUint32(at int) uint32 {
	return atomic.LoadUint32((*uint32)(v.ptrAt(at, 4)))
}

// StoreUint32 atomically stores a 4-byte unsigned integer.
func (v View) StoreUint32(at int, val uint32) {
	atomic.StoreUint32((*uint32)(v.ptrAt(at, 4)), val)
}

// LoadInt32 is the signed counterpart of LoadUint32.
func (v View) LoadInt32(at int) int32 {
	return atomic.LoadInt32((*int32)(v.ptrAt(at, 4)))
}

// StoreInt32 is the signed counterpart of StoreUint32.
func (v View) StoreInt32(at int, val int32) {
	atomic.StoreInt32((*int32)(v.ptrAt(at, 4)), val)
}

// sync/atomic has no native sub-word atomic type: the smallest atomic
// load/store Go exposes is 32 bits. 8- and 16-bit typed references are
// emulated with a compare-and-swap loop over the containing,
// natively-aligned 32-bit word, following the same technique Go's own
// runtime uses internally for byte-wide atomics. This is a Go-specific
// adaptation of the source's direct AtomicU8/AtomicU16 hardware
// intrinsics. Loads are a single atomic load; stores retry the
// compare-and-swap under contention, so they are lock-free but not
// wait-free.
func subwordLoad(wordPtr *uint32, byteOffsetInWord uint, width uint) uint32 {
	word := atomic.LoadUint32(wordPtr)
	shift := byteOffsetInWord * 8
	mask := uint32(1)<<(width*8) - 1
	return (word >> shift) & mask
}

func subwordStore(wordPtr *uint32, byteOffsetInWord uint, width uint, val uint32) {
	shift := byteOffsetInWord * 8
	mask := uint32(1)<<(width*8) - 1
	val &= mask
	for {
		old := atomic.LoadUint32(wordPtr)
		next := (old &^ (mask << shift)) | (val << shift)
		if atomic.CompareAndSwapUint32(wordPtr, old, next) {
			return
		}
	}
}

func (v View) subwordPtr(at int, width int) (*uint32, uint) {
	v.checkRange(at, width)
	absolute := v.offset + at
	wordOffset := absolute &^ 3
	byteInWord := uint(absolute - wordOffset)
	addr := uintptr(v.region.basePtr()) + uintptr(wordOffset)
	debugAssert(addr%4 == 0, "misaligned sub-word access: offset=%d", wordOffset)
	return (*uint32)(unsafe.Pointer(addr)), byteInWord
}

// LoadUint16 atomically loads a 2-byte unsigned integer.
func (v View) LoadUint16(at int) uint16 {
	wordPtr, byteInWord := v.subwordPtr(at, 2)
	return uint16(subwordLoad(wordPtr, byteInWord, 2))
}

// StoreUint16 atomically stores a 2-byte unsigned integer.
func (v View) StoreUint16(at int, val uint16) {
	wordPtr, byteInWord := v.subwordPtr(at, 2)
	subwordStore(wordPtr, byteInWord, 2, uint32(val))
}

// LoadInt16 is the signed counterpart of LoadUint16.
func (v View) LoadInt16(at int) int16 {
	return int16(v.LoadUint16(at))
}

// StoreInt16 is the signed counterpart of StoreUint16.
func (v View) StoreInt16(at int, val int16) {
	v.StoreUint16(at, uint16(val))
}

// LoadUint8 atomically loads a single unsigned byte.
func (v View) LoadUint8(at int) uint8 {
	wordPtr, byteInWord := v.subwordPtr(at, 1)
	return uint8(subwordLoad(wordPtr, byteInWord, 1))
}

// StoreUint8 atomically stores a single unsigned byte.
func (v View) StoreUint8(at int, val uint8) {
	wordPtr, byteInWord := v.subwordPtr(at, 1)
	subwordStore(wordPtr, byteInWord, 1, uint32(val))
}

// LoadInt8 is the signed counterpart of LoadUint8.
func (v View) LoadInt8(at int) int8 {
	return int8(v.LoadUint8(at))
}

// StoreInt8 is the signed counterpart of StoreUint8.
func (v View) StoreInt8(at int, val int8) {
	v.StoreUint8(at, uint8(val))
}

// LoadBool atomically loads a boolean flag stored in a single byte.
func (v View) LoadBool(at int) bool {
	return v.LoadUint8(at) != 0
}

// StoreBool atomically stores a boolean flag in a single byte.
func (v View) StoreBool(at int, val bool) {
	var b uint8
	if val {
		b = 1
	}
	v.StoreUint8(at, b)
}
