//go:build broadcastdebug

package broadcast

import "fmt"

func debugAssert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("broadcast: invariant violated: "+format, args...))
	}
}
