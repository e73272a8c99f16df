package broadcast

import "fmt"

// Transmitter appends framed records into a ring's data area and
// publishes them via the counters block. A Transmitter must be used by
// a single calling goroutine (or a single process that serializes its
// own calls) at a time; it keeps no internal locking because the
// broadcast protocol assumes exactly one active transmitter.
type Transmitter struct {
	ring     View
	counters countersBlock
	capacity uint64
	mask     uint64
	// tail is the transmitter's private copy of the commit counter.
	// Only the transmitter ever advances tail, so it never needs to
	// reload it from shared memory after construction.
	tail uint64
}

// NewTransmitter builds a Transmitter over view, which must span
// exactly C+128 bytes for a power-of-two C.
func NewTransmitter(view View) (*Transmitter, error) {
	capacity, err := ringCapacity(view)
	if err != nil {
		return nil, err
	}
	counters := countersBlock{view: view.SubView(capacity, trailerSize)}
	return &Transmitter{
		ring:     view.SubView(0, capacity),
		counters: counters,
		capacity: uint64(capacity),
		mask:     uint64(capacity) - 1,
		tail:     counters.tail(),
	}, nil
}

// maxPayloadSize returns the largest payload a single Transmit call may
// carry: capacity/8, reserving headroom against pathological fills.
func (t *Transmitter) maxPayloadSize() uint64 {
	return t.capacity / 8
}

// Transmit appends one framed record of payloadSize bytes tagged
// typeID, invoking writer with a mutable view of exactly payloadSize
// bytes into which it should place the payload. writer's return value
// is advisory only: the frame's length field is fixed from
// payloadSize regardless of what writer reports having written.
//
// Returns the number of ring bytes the call consumed (including any
// inserted padding), or an error if typeID is zero or payloadSize
// exceeds the size cap.
func (t *Transmitter) Transmit(payloadSize int, typeID uint32, writer func(View) int) (int, error) {
	if typeID == paddingTypeID {
		return 0, ErrInvalidMsgType
	}
	if payloadSize < 0 || uint64(payloadSize) > t.maxPayloadSize() {
		return 0, ErrMsgTooLarge
	}

	curTail := t.tail
	recordOffset := curTail & t.mask
	frameLen := uint32(headerSize + payloadSize)
	aligned := alignUp(frameLen, 8)
	newTail := curTail + uint64(aligned)

	if recordOffset+uint64(aligned) > t.capacity {
		return t.transmitWrapping(curTail, recordOffset, newTail, frameLen, payloadSize, typeID, writer)
	}
	return t.transmitInPlace(curTail, recordOffset, newTail, aligned, frameLen, payloadSize, typeID, writer)
}

func (t *Transmitter) transmitInPlace(curTail, recordOffset, newTail uint64, aligned, frameLen uint32, payloadSize int, typeID uint32, writer func(View) int) (int, error) {
	// Publish the intent before any payload byte is written: this is
	// the early warning receivers use to invalidate overlapping reads.
	t.counters.setTailIntent(newTail)

	t.writeHeader(recordOffset, frameLen, typeID)
	payload := t.ring.SubView(int(recordOffset)+headerSize, payloadSize)
	writer(payload)

	t.counters.commitRecord(curTail, newTail)
	t.tail = newTail
	return int(aligned), nil
}

func (t *Transmitter) transmitWrapping(curTail, recordOffset, newTail uint64, frameLen uint32, payloadSize int, typeID uint32, writer func(View) int) (int, error) {
	paddingSize := t.capacity - recordOffset
	newTailIntent := newTail + paddingSize

	t.counters.setTailIntent(newTailIntent)

	t.writeHeader(recordOffset, uint32(paddingSize), paddingTypeID)
	t.writeHeader(0, frameLen, typeID)
	payload := t.ring.SubView(headerSize, payloadSize)
	writer(payload)

	// NOTE: the published latest equals the pre-update tail. Receivers
	// that jump to latest after a lap land on the padding record at the
	// far end of the ring and must step over it (see Receiver).
	t.counters.commitRecord(curTail, newTailIntent)
	t.tail = newTailIntent
	consumed := newTail - curTail + paddingSize
	return int(consumed), nil
}

func (t *Transmitter) writeHeader(offset uint64, length uint32, typeID uint32) {
	t.ring.StoreUint32(int(offset)+frameLengthOffset, length)
	t.ring.StoreUint32(int(offset)+frameTypeOffset, typeID)
}

// ringCapacity validates that view spans exactly C+trailerSize bytes
// for a power-of-two C and returns C.
func ringCapacity(view View) (int, error) {
	total := view.Len()
	capacity := total - trailerSize
	if capacity <= 0 || !isPow2(capacity) {
		return 0, fmt.Errorf("broadcast: view length %d must be a power-of-two data capacity plus %d-byte trailer", total, trailerSize)
	}
	return capacity, nil
}
