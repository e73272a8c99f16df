package broadcast

// Receiver reads framed records from a ring written by a single
// Transmitter. Any number of Receivers may observe the same ring
// concurrently; they never communicate with one another or with the
// transmitter beyond reading the shared counters block.
type Receiver struct {
	ring     View
	counters countersBlock
	capacity uint64
	mask     uint64

	// cursor is this receiver's private absolute byte offset pointing
	// at the next frame it intends to read.
	cursor uint64
	// lapped counts the number of times this receiver has detected an
	// overwrite and resynchronized to latest.
	lapped uint64
}

// NewReceiver builds a Receiver over view (spanning C+128 bytes for a
// power-of-two C), starting its cursor at the newest committed record
// so a late joiner reads current data rather than stale history.
func NewReceiver(view View) (*Receiver, error) {
	capacity, err := ringCapacity(view)
	if err != nil {
		return nil, err
	}
	counters := countersBlock{view: view.SubView(capacity, trailerSize)}
	return &Receiver{
		ring:     view.SubView(0, capacity),
		counters: counters,
		capacity: uint64(capacity),
		mask:     uint64(capacity) - 1,
		cursor:   counters.latest(),
	}, nil
}

// LappedCount reports how many times this receiver has been lapped by
// the transmitter and resynchronized to latest.
func (r *Receiver) LappedCount() uint64 {
	return r.lapped
}

// ReceiveNext inspects the next record after the receiver's cursor. If
// one is available and was not overwritten mid-read, reader is invoked
// exactly once with a read-only view of its payload and ReceiveNext
// returns the frame's total length. The view passed to reader must not
// outlive the call.
//
// Returns ErrNoElement if no new record has been published, or
// ErrOverwritten if the transmitter lapped this receiver either before
// or during the read; in both overwrite cases the cursor has already
// been reset to latest and the caller may retry immediately.
func (r *Receiver) ReceiveNext(reader func(View)) (int, error) {
	return r.receiveNext(func(_ uint32, v View) {
		reader(v)
	})
}

// ReceiveNextTyped behaves exactly like ReceiveNext but also passes the
// record's type_id to reader, for callers that dispatch on it (such as
// multiring's timestamp-ordered fan-in).
func (r *Receiver) ReceiveNextTyped(reader func(typeID uint32, v View)) (int, error) {
	return r.receiveNext(reader)
}

func (r *Receiver) receiveNext(reader func(uint32, View)) (int, error) {
	tail := r.counters.tail()
	if tail == r.cursor {
		return 0, ErrNoElement
	}
	debugAssert(tail >= r.cursor, "tail %d precedes cursor %d", tail, r.cursor)

	tailIntent := r.counters.tailIntent()
	if r.cursor+r.capacity <= tailIntent {
		// The producer has already reserved space overlapping cursor.
		r.lapped++
		r.cursor = r.counters.latest()
		return 0, ErrOverwritten
	}

	cur := r.cursor
	sawPadding := false
	for {
		off := cur & r.mask
		length := r.ring.LoadUint32(int(off) + frameLengthOffset)
		typeID := r.ring.LoadUint32(int(off) + frameTypeOffset)
		next := cur + uint64(alignUp(length, 8))

		if typeID != paddingTypeID {
			payload := r.ring.SubView(int(off)+headerSize, int(length)-headerSize)
			reader(typeID, payload)

			// Post-validation: re-check that nothing the callback just
			// observed was overwritten by the transmitter mid-read.
			if cur+r.capacity > r.counters.tailIntent() {
				r.cursor = next
				return int(length), nil
			}
			r.lapped++
			r.cursor = r.counters.latest()
			return 0, ErrOverwritten
		}

		debugAssert(!sawPadding, "two consecutive padding records at ring offset %d", off)
		sawPadding = true
		cur = next
	}
}
