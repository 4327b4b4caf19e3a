//go:build ppc || ppc64

package backend

import (
	"runtime"
	"strconv"
	"strings"
)

// goid returns the calling goroutine's id. Fallback for architectures the
// routine library does not support: the id is parsed out of the stack trace
// header, which always starts with "goroutine <id> [".
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	idx := strings.IndexByte(header, ' ')
	if idx < 0 {
		return -1
	}

	id, err := strconv.ParseInt(header[:idx], 10, 64)
	if err != nil {
		return -1
	}
	return id
}
