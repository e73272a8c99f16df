//go:build !broadcastdebug

package broadcast

// debugAssert is a no-op in release builds. Build with -tags broadcastdebug
// to turn invariant breaches (two consecutive padding records, tail <
// cursor, misaligned counters) into panics instead of undefined behavior.
func debugAssert(cond bool, format string, args ...any) {}
