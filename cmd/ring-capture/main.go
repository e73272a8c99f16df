// Command ring-capture archives every record delivered from a broadcast
// ring into a Parquet file, one row per record, for offline analysis.
package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/unvariance/broadcastring/pkg/broadcast"
	"github.com/unvariance/broadcastring/pkg/shmfile"
)

// CapturedRecord is one row of the capture file.
type CapturedRecord struct {
	CapturedAtNanos int64  `parquet:"name=captured_at_nanos, type=INT64"`
	TypeID          int32  `parquet:"name=type_id, type=INT32"`
	Payload         []byte `parquet:"name=payload, type=BYTE_ARRAY"`
	LappedCount     int64  `parquet:"name=lapped_count, type=INT64"`
}

func main() {
	ringPath := flag.String("ring", "/dev/shm/broadcast-test.dat", "path to the backing file for the ring")
	ringSize := flag.Int("size", 1024, "ring data capacity in bytes (must be a power of two)")
	outPath := flag.String("out", "capture.parquet", "output Parquet file path")
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

	fw, err := local.NewLocalFileWriter(*outPath)
	if err != nil {
		log.Fatalf("opening output file %s: %v", *outPath, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(CapturedRecord), 4)
	if err != nil {
		log.Fatalf("creating parquet writer: %v", err)
	}

	stopper := make(chan os.Signal, 1)
	signal.Notify(stopper, os.Interrupt)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	var rowCount uint64
	log.Printf("capturing from %s into %s", *ringPath, *outPath)

capture:
	for {
		select {
		case <-stopper:
			break capture
		case <-deadline:
			break capture
		default:
		}

		var row CapturedRecord
		_, err := rx.ReceiveNextTyped(func(typeID uint32, v broadcast.View) {
			row = CapturedRecord{
				CapturedAtNanos: time.Now().UnixNano(),
				TypeID:          int32(typeID),
				Payload:         append([]byte(nil), v.Bytes()...),
				LappedCount:     int64(rx.LappedCount()),
			}
		})
		if errors.Is(err, broadcast.ErrNoElement) {
			time.Sleep(time.Millisecond)
			continue
		}
		if errors.Is(err, broadcast.ErrOverwritten) {
			continue
		}
		if err != nil {
			log.Printf("receive failed: %v", err)
			continue
		}

		if err := pw.Write(row); err != nil {
			log.Printf("writing row: %v", err)
			continue
		}
		rowCount++
	}

	if err := pw.WriteStop(); err != nil {
		log.Fatalf("finalizing parquet file: %v", err)
	}
	log.Printf("captured %d records to %s", rowCount, *outPath)
}
