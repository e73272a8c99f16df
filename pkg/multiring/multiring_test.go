package multiring

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unvariance/broadcastring/pkg/broadcast"
)

func newRing(t *testing.T, dataCapacity int) broadcast.View {
	t.Helper()
	region, err := broadcast.NewHeapRegion(dataCapacity + 128)
	require.NoError(t, err)
	return broadcast.NewView(region, 0, dataCapacity+128)
}

func tsWriter(ts uint64) func(broadcast.View) int {
	return func(v broadcast.View) int {
		buf := v.BytesMut()
		binary.LittleEndian.PutUint64(buf[:8], ts)
		return len(buf)
	}
}

func TestReaderMergesInTimestampOrder(t *testing.T) {
	viewA := newRing(t, 1024)
	viewB := newRing(t, 1024)

	txA, err := broadcast.NewTransmitter(viewA)
	require.NoError(t, err)
	txB, err := broadcast.NewTransmitter(viewB)
	require.NoError(t, err)

	// Receivers start at latest, so they must exist before the transmits
	// to see every record rather than only the newest one per ring.
	rxA, err := broadcast.NewReceiver(viewA)
	require.NoError(t, err)
	rxB, err := broadcast.NewReceiver(viewB)
	require.NoError(t, err)

	_, err = txA.Transmit(8, 1, tsWriter(100))
	require.NoError(t, err)
	_, err = txA.Transmit(8, 1, tsWriter(300))
	require.NoError(t, err)
	_, err = txB.Transmit(8, 2, tsWriter(200))
	require.NoError(t, err)
	_, err = txB.Transmit(8, 2, tsWriter(400))
	require.NoError(t, err)

	r := NewReader()
	require.NoError(t, r.AddReceiver(rxA))
	require.NoError(t, r.AddReceiver(rxB))
	require.NoError(t, r.Start())

	var order []uint64
	for !r.Empty() {
		e, err := r.Next()
		require.NoError(t, err)
		order = append(order, e.Timestamp)
		require.NoError(t, r.Pop())
	}

	require.Equal(t, []uint64{100, 200, 300, 400}, order)
}

func TestStartFailsWithNoReceivers(t *testing.T) {
	r := NewReader()
	require.ErrorIs(t, r.Start(), ErrNoRings)
}

func TestNextBeforeStartIsNotActive(t *testing.T) {
	r := NewReader()
	_, err := r.Next()
	require.ErrorIs(t, err, ErrNotActive)
}

func TestEmptyReaderAfterDraining(t *testing.T) {
	view := newRing(t, 1024)
	tx, err := broadcast.NewTransmitter(view)
	require.NoError(t, err)
	_, err = tx.Transmit(8, 1, tsWriter(1))
	require.NoError(t, err)

	rx, err := broadcast.NewReceiver(view)
	require.NoError(t, err)

	r := NewReader()
	require.NoError(t, r.AddReceiver(rx))
	require.NoError(t, r.Start())

	require.False(t, r.Empty())
	_, err = r.Next()
	require.NoError(t, err)
	require.NoError(t, r.Pop())
	require.True(t, r.Empty())

	_, err = r.Next()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestLappedReceiverIsSkippedNotSurfaced(t *testing.T) {
	view := newRing(t, 32)
	tx, err := broadcast.NewTransmitter(view)
	require.NoError(t, err)
	rx, err := broadcast.NewReceiver(view)
	require.NoError(t, err)

	for i := uint32(1); i <= 4; i++ {
		_, err := tx.Transmit(0, i, func(v broadcast.View) int { return 0 })
		require.NoError(t, err)
	}

	r := NewReader()
	require.NoError(t, r.AddReceiver(rx))
	require.NoError(t, r.Start())

	require.False(t, r.Empty())
	e, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, uint32(4), e.TypeID)
	require.Equal(t, uint64(1), r.LappedCount(0))
}
