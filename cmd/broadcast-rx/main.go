// Command broadcast-rx polls a shared-memory broadcast ring for records,
// backing off between empty polls, mirroring the original
// examples/broadcast_rx.rs and examples/agronabroadcast_rx.rs drivers.
package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unvariance/broadcastring/pkg/broadcast"
	"github.com/unvariance/broadcastring/pkg/ringmetrics"
	"github.com/unvariance/broadcastring/pkg/shmfile"
)

func main() {
	ringPath := flag.String("ring", "/dev/shm/broadcast-test.dat", "path to the backing file for the ring")
	ringSize := flag.Int("size", 1024, "ring data capacity in bytes (must be a power of two)")
	duration := flag.Duration("duration", 0, "stop after this long (0 = run until interrupted)")
	flag.Parse()

	region, err := shmfile.Open(*ringPath, int64(*ringSize+128))
	if err != nil {
		log.Fatalf("opening ring file: %v", err)
	}
	br, err := broadcast.NewMappedRegion(region.Data(), func([]byte) error { return region.Close() })
	if err != nil {
		log.Fatalf("mapping region: %v", err)
	}
	defer br.Close()

	view := broadcast.NewView(br, 0, br.Capacity())
	rx, err := broadcast.NewReceiver(view)
	if err != nil {
		log.Fatalf("creating receiver: %v", err)
	}

	metrics := ringmetrics.NewRxMetrics(prometheus.DefaultRegisterer)

	stopper := make(chan os.Signal, 1)
	signal.Notify(stopper, os.Interrupt)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Microsecond * 100
	b.MaxInterval = 50 * time.Millisecond

	var count, gapCount uint64
	var lastMsgID uint32
	var lastVal uint64
	log.Printf("receiving from %s, %d byte ring", *ringPath, *ringSize)

	for {
		select {
		case <-stopper:
			log.Printf("interrupted, read %d messages, lapped=%d, gaps=%d", count, rx.LappedCount(), gapCount)
			return
		case <-deadline:
			log.Printf("duration elapsed, read %d messages, lapped=%d, gaps=%d", count, rx.LappedCount(), gapCount)
			return
		default:
		}

		var currentID uint32
		var va0, va1 uint64
		var payloadLen int
		_, err := rx.ReceiveNextTyped(func(typeID uint32, v broadcast.View) {
			currentID = typeID
			payloadLen = v.Len()
			if v.Len() >= 16 {
				va0 = v.LoadUint64(0)
				va1 = v.LoadUint64(8)
			}
		})

		switch {
		case errors.Is(err, broadcast.ErrNoElement):
			d := b.NextBackOff()
			metrics.ObserveNoElement()
			time.Sleep(d)
			continue
		case errors.Is(err, broadcast.ErrOverwritten):
			metrics.SetLapped(rx.LappedCount())
			b.Reset()
			continue
		case err != nil:
			log.Printf("receive failed: %v", err)
			continue
		}

		b.Reset()
		count++
		metrics.Observe(strconv.FormatUint(uint64(currentID), 10), payloadLen)
		if lastMsgID == currentID {
			log.Printf("unexpected repeated type_id %d", currentID)
		}
		if va0 > lastVal {
			if gap := va0 - lastVal; gap > 1 {
				gapCount++
			}
		}
		lastMsgID = currentID
		lastVal = va0
		_ = va1
	}
}
