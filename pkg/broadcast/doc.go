// Package broadcast implements a single-producer, multi-consumer
// broadcast ring over a shared byte region: a Transmitter appends
// framed records into a power-of-two ring, and any number of
// independent Receivers observe the same stream, detecting and
// resynchronizing past loss when they fall behind.
package broadcast
