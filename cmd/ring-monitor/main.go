// Command ring-monitor exposes a Prometheus /metrics endpoint tracking a
// receiver's consumption of a broadcast ring, grounded on the teacher's
// cmd/prometheus_metrics exporter.
package main

import (
	"flag"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unvariance/broadcastring/pkg/broadcast"
	"github.com/unvariance/broadcastring/pkg/ringmetrics"
	"github.com/unvariance/broadcastring/pkg/ringwindow"
	"github.com/unvariance/broadcastring/pkg/shmfile"
)

func main() {
	ringPath := flag.String("ring", "/dev/shm/broadcast-test.dat", "path to the backing file for the ring")
	ringSize := flag.Int("size", 1024, "ring data capacity in bytes (must be a power of two)")
	addr := flag.String("addr", ":2112", "address to serve /metrics on")
	slotLength := flag.Duration("slot-length", time.Second, "ringwindow slot length")
	windowSize := flag.Uint("window-size", 60, "number of slots retained")
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

	registry := prometheus.NewRegistry()
	metrics := ringmetrics.NewRxMetrics(registry)

	window, err := ringwindow.New(ringwindow.Config{
		SlotLength: uint64(slotLength.Nanoseconds()),
		WindowSize: *windowSize,
	})
	if err != nil {
		log.Fatalf("creating window: %v", err)
	}

	go pollReceiver(rx, metrics, window)

	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	log.Printf("serving /metrics on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func pollReceiver(rx *broadcast.Receiver, metrics *ringmetrics.RxMetrics, window *ringwindow.Window) {
	for {
		var seenType uint32
		var payloadLen int
		_, err := rx.ReceiveNextTyped(func(typeID uint32, v broadcast.View) {
			seenType = typeID
			payloadLen = v.Len()
			window.Record(ringwindow.Delivery{
				TypeID:    typeID,
				Bytes:     v.Len(),
				Timestamp: uint64(time.Now().UnixNano()),
			})
		})
		switch {
		case err == broadcast.ErrNoElement:
			time.Sleep(time.Millisecond)
		case err == broadcast.ErrOverwritten:
			metrics.SetLapped(rx.LappedCount())
		case err != nil:
			log.Printf("receive failed: %v", err)
		default:
			metrics.Observe(strconv.FormatUint(uint64(seenType), 10), payloadLen)
		}
	}
}
