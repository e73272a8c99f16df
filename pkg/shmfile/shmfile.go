// Package shmfile opens and maps the backing file for a broadcast ring.
//
// It is the collaborator spec.md carves out of the core broadcast package:
// the core only ever takes ownership of an already-mapped byte slice, and
// never touches a file descriptor, a path, or the operating system's mmap
// call directly. shmfile does that work, mirroring how the teacher's
// pkg/perf separates RingStorage (the mmap/file-descriptor machinery) from
// the ring reader that only consumes the resulting []byte.
package shmfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a memory-mapped file backing a broadcast ring. Close unmaps the
// memory and closes the underlying file descriptor.
type Region struct {
	data []byte
	fd   int
}

// Open opens (creating if necessary) the file at path, truncates it to
// size bytes, and maps it MAP_SHARED so every process mapping the same
// path observes the same bytes. size must already include the ring's
// trailer; callers pick dataCapacity+128.
//
// A typical path lives under /dev/shm so the mapping survives process
// restarts without touching persistent storage.
func Open(path string, size int64) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmfile: size must be positive, got %d", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shmfile: open %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		return nil, fmt.Errorf("shmfile: truncate %s to %d: %w", path, size, err)
	}

	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("shmfile: dup fd for %s: %w", path, err)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmfile: mmap %s: %w", path, err)
	}

	return &Region{data: data, fd: fd}, nil
}

// Data returns the mapped bytes. The returned slice is valid until Close.
func (r *Region) Data() []byte { return r.data }

// Close unmaps the region and closes its file descriptor. It is not safe
// to call Close concurrently with use of the slice returned by Data.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("shmfile: munmap: %w", err)
	}
	r.data = nil

	if err := unix.Close(r.fd); err != nil {
		return fmt.Errorf("shmfile: close fd: %w", err)
	}
	r.fd = -1
	return nil
}
