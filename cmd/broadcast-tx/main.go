// Command broadcast-tx transmits monotone two-counter payloads into a
// shared-memory broadcast ring at a fixed rate, mirroring the original
// examples/broadcast_tx.rs driver.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unvariance/broadcastring/pkg/broadcast"
	"github.com/unvariance/broadcastring/pkg/ringmetrics"
	"github.com/unvariance/broadcastring/pkg/shmfile"
)

func main() {
	ringPath := flag.String("ring", "/dev/shm/broadcast-test.dat", "path to the backing file for the ring")
	ringSize := flag.Int("size", 1024, "ring data capacity in bytes (must be a power of two)")
	payloadBytes := flag.Int("payload-bytes", 16, "payload size per transmitted record")
	rate := flag.Duration("rate", 10*time.Millisecond, "interval between transmissions")
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
	tx, err := broadcast.NewTransmitter(view)
	if err != nil {
		log.Fatalf("creating transmitter: %v", err)
	}

	metrics := ringmetrics.NewTxMetrics(prometheus.DefaultRegisterer)

	stopper := make(chan os.Signal, 1)
	signal.Notify(stopper, os.Interrupt)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	ticker := time.NewTicker(*rate)
	defer ticker.Stop()

	var count uint64
	var transmitValue uint64
	log.Printf("transmitting to %s, %d byte ring, %d byte payloads, every %s", *ringPath, *ringSize, *payloadBytes, *rate)

	for {
		select {
		case <-stopper:
			log.Printf("interrupted, published %d messages", count)
			return
		case <-deadline:
			log.Printf("duration elapsed, published %d messages", count)
			return
		case <-ticker.C:
			typeID := uint32(count%0x7FFFFFFF) + 1
			_, err := tx.Transmit(*payloadBytes, typeID, func(v broadcast.View) int {
				if v.Len() >= 16 {
					v.StoreUint64(0, transmitValue)
					v.StoreUint64(8, transmitValue+1)
				}
				return v.Len()
			})
			if err != nil {
				log.Printf("transmit failed: %v", err)
				return
			}
			metrics.Observe(strconv.FormatUint(uint64(typeID), 10), *payloadBytes)
			count++
			transmitValue++
		}
	}
}
