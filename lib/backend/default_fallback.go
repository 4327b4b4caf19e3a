//go:build ppc || ppc64

package backend

// NewDefaultBackend creates the backend for the current platform: on
// architectures without the runtime-backed facility the emulated key table
// takes its place.
func NewDefaultBackend() IKeyBackend {
	return NewEmulatedBackend()
}
