package broadcast

// trailerSize is the fixed width of the counters block, in bytes.
const trailerSize = 128

const (
	tailIntentOffset = 0
	tailOffset       = 8
	latestOffset     = 16
)

// countersBlock is a thin typed wrapper over the 128-byte trailer view,
// exposing tail_intent, tail and latest by name. It is owned exclusively
// by whichever of Transmitter/Receiver constructed it; the region's
// remaining trailer bytes beyond the three counters are reserved and
// untouched.
type countersBlock struct {
	view View
}

func newCountersBlock(region *ByteRegion, dataCapacity int) countersBlock {
	return countersBlock{view: NewView(region, dataCapacity, trailerSize)}
}

func (c countersBlock) tailIntent() uint64 {
	return c.view.LoadUint64(tailIntentOffset)
}

func (c countersBlock) setTailIntent(v uint64) {
	c.view.StoreUint64(tailIntentOffset, v)
}

func (c countersBlock) tail() uint64 {
	return c.view.LoadUint64(tailOffset)
}

func (c countersBlock) latest() uint64 {
	return c.view.LoadUint64(latestOffset)
}

// commitRecord publishes a newly-written record: it releases latest
// then releases tail, in that order, so that any receiver observing
// the new tail also observes the new latest and every byte of the
// record both now describe.
//
// Precondition (checked with a debug assertion, not a runtime error -
// violating it is a transmitter bug, not a caller-input error):
// latest <= tail and tail_intent == tail at the moment of the call.
func (c countersBlock) commitRecord(latest, tail uint64) {
	debugAssert(latest <= tail, "commitRecord: latest %d > tail %d", latest, tail)
	debugAssert(c.tailIntent() == tail, "commitRecord: tail_intent %d != new tail %d", c.tailIntent(), tail)
	c.view.StoreUint64(latestOffset, latest)
	c.view.StoreUint64(tailOffset, tail)
}
