//go:build !ppc && !ppc64

package backend

// NewDefaultBackend creates the backend for the current platform: the
// native, runtime-backed backend wherever the routine library is available.
func NewDefaultBackend() IKeyBackend {
	return NewNativeBackend()
}
