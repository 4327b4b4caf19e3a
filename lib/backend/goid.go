//go:build !ppc && !ppc64

package backend

import "github.com/timandy/routine"

// goid returns the calling goroutine's id. On the architectures supported by
// the routine library this reads the id straight out of the runtime's
// goroutine struct.
func goid() int64 {
	return routine.Goid()
}
