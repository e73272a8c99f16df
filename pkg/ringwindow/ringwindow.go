// Package ringwindow aggregates delivered broadcast records into a sliding
// window of fixed-length time slots, keyed by type_id instead of the
// teacher's RMID. Unlike the teacher's CPU measurements, a delivered
// record is an instantaneous event rather than a duration, so a record
// is attributed entirely to the single slot containing its timestamp
// instead of being split proportionally across overlapping slots.
package ringwindow

import "fmt"

// Delivery is one record handed to a Receiver's callback.
type Delivery struct {
	TypeID    uint32
	Bytes     int
	Timestamp uint64 // nanoseconds
}

// SlotAggregation accumulates deliveries for one type_id within a slot.
type SlotAggregation struct {
	TypeID uint32
	Count  uint64
	Bytes  uint64
}

// Slot holds all aggregations for one fixed-length time window.
type Slot struct {
	StartTime    uint64 // nanoseconds
	EndTime      uint64 // nanoseconds
	Aggregations map[uint32]*SlotAggregation // keyed by type_id
}

// Config configures the sliding window.
type Config struct {
	SlotLength uint64 // nanoseconds
	WindowSize uint   // number of consecutive slots kept
	SlotOffset uint64 // nanoseconds, modulo SlotLength
}

// Window maintains WindowSize consecutive slots, retiring the oldest as
// new deliveries push the window forward.
type Window struct {
	config Config
	slots  []*Slot
}

// New creates a Window with the given configuration.
func New(config Config) (*Window, error) {
	if config.SlotLength == 0 {
		return nil, fmt.Errorf("ringwindow: slot length must be greater than 0")
	}
	if config.WindowSize == 0 {
		return nil, fmt.Errorf("ringwindow: window size must be greater than 0")
	}
	if config.SlotOffset >= config.SlotLength {
		return nil, fmt.Errorf("ringwindow: slot offset must be less than slot length")
	}
	return &Window{config: config, slots: make([]*Slot, 0, config.WindowSize)}, nil
}

func (w *Window) slotStartTime(timestamp uint64) uint64 {
	adjusted := timestamp - w.config.SlotOffset
	start := (adjusted / w.config.SlotLength) * w.config.SlotLength
	return start + w.config.SlotOffset
}

func (w *Window) newSlot(startTime uint64) *Slot {
	return &Slot{
		StartTime:    startTime,
		EndTime:      startTime + w.config.SlotLength,
		Aggregations: make(map[uint32]*SlotAggregation),
	}
}

// AdvanceWindow slides the window so it ends at the slot containing
// timestamp, returning any slots retired in the process. It maintains the
// invariant that the window holds exactly WindowSize slots afterward.
func (w *Window) AdvanceWindow(timestamp uint64) []*Slot {
	var retired []*Slot
	windowSize := w.config.WindowSize
	newEndSlotStart := w.slotStartTime(timestamp)

	if len(w.slots) > 0 {
		oldestStart := w.slots[0].StartTime
		slotsWithoutRetirement := (newEndSlotStart-oldestStart)/w.config.SlotLength + 1

		extra := slotsWithoutRetirement - uint64(windowSize)
		if extra > slotsWithoutRetirement {
			extra = 0
		}

		toRetire := extra
		if toRetire > uint64(len(w.slots)) {
			toRetire = uint64(len(w.slots))
		}

		if toRetire > 0 {
			remaining := uint64(len(w.slots)) - toRetire
			retired = make([]*Slot, toRetire)
			copy(retired, w.slots[:toRetire])
			copy(w.slots, w.slots[toRetire:])
			w.slots = w.slots[:remaining]
		}
	}

	existing := len(w.slots)
	w.slots = w.slots[:windowSize]
	for i := existing; i < int(windowSize); i++ {
		w.slots[i] = w.newSlot(newEndSlotStart - uint64(int(windowSize)-1-i)*w.config.SlotLength)
	}

	return retired
}

func safeSubtract(a, b uint64) int64 {
	return int64(a) - int64(b)
}

// Record attributes one delivery to the slot containing its timestamp,
// advancing the window first if necessary. Deliveries older than the
// window's retained range are silently dropped.
func (w *Window) Record(d Delivery) {
	if len(w.slots) > 0 && safeSubtract(d.Timestamp, w.slots[0].StartTime) < 0 {
		return
	}
	w.AdvanceWindow(d.Timestamp)

	for _, slot := range w.slots {
		if safeSubtract(d.Timestamp, slot.StartTime) < 0 {
			continue
		}
		if safeSubtract(d.Timestamp, slot.EndTime) >= 0 {
			continue
		}

		agg, ok := slot.Aggregations[d.TypeID]
		if !ok {
			agg = &SlotAggregation{TypeID: d.TypeID}
			slot.Aggregations[d.TypeID] = agg
		}
		agg.Count++
		agg.Bytes += uint64(d.Bytes)
		return
	}
}

// Snapshot returns the slots currently held in the window, oldest first.
func (w *Window) Snapshot() []*Slot {
	out := make([]*Slot, len(w.slots))
	copy(out, w.slots)
	return out
}

// Reset returns and clears all retained slots.
func (w *Window) Reset() []*Slot {
	slots := w.slots
	w.slots = make([]*Slot, 0, w.config.WindowSize)
	return slots
}
