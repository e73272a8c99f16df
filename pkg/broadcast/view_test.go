package broadcast

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestViewLoadStoreUint64(t *testing.T) {
	region, err := NewHeapRegion(32)
	qt.Assert(t, qt.IsNil(err))
	view := NewView(region, 0, 32)

	view.StoreUint64(0, 0xFF00FF)
	qt.Assert(t, qt.Equals(view.LoadUint64(0), uint64(0xFF00FF)))

	bytes := view.Bytes()
	qt.Assert(t, qt.Equals(bytes[0], byte(0xFF)))
	qt.Assert(t, qt.Equals(bytes[1], byte(0x00)))
	qt.Assert(t, qt.Equals(bytes[2], byte(0xFF)))
}

func TestViewLoadStoreMixedWidths(t *testing.T) {
	region, err := NewHeapRegion(32)
	qt.Assert(t, qt.IsNil(err))
	view := NewView(region, 0, 32)

	view.StoreUint64(0, 0xF000FF)
	view.StoreUint32(8, 0xF000FF)
	view.StoreUint16(12, 0xF0FF)
	view.StoreUint8(14, 0x7A)
	view.StoreBool(15, true)

	qt.Assert(t, qt.Equals(view.LoadUint64(0), uint64(0xF000FF)))
	qt.Assert(t, qt.Equals(view.LoadUint32(8), uint32(0xF000FF)))
	qt.Assert(t, qt.Equals(view.LoadUint16(12), uint16(0xF0FF)))
	qt.Assert(t, qt.Equals(view.LoadUint8(14), uint8(0x7A)))
	qt.Assert(t, qt.Equals(view.LoadBool(15), true))
}

func TestSubView(t *testing.T) {
	region, err := NewHeapRegion(32)
	qt.Assert(t, qt.IsNil(err))
	view := NewView(region, 0, 16)

	view.StoreUint64(8, 8)
	sub := view.SubView(8, 8)
	qt.Assert(t, qt.Equals(sub.LoadUint64(0), view.LoadUint64(8)))
}

func TestViewPanicsOnOutOfBoundsSubView(t *testing.T) {
	region, err := NewHeapRegion(32)
	qt.Assert(t, qt.IsNil(err))
	view := NewView(region, 0, 16)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for out-of-bounds sub-view")
		}
	}()
	view.SubView(8, 16)
}

func TestNewViewPanicsOnUnalignedOffset(t *testing.T) {
	region, err := NewHeapRegion(32)
	qt.Assert(t, qt.IsNil(err))

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for misaligned view offset")
		}
	}()
	NewView(region, 3, 8)
}
