// Package testing provides a conformance test suite for implementations of
// the backend.IKeyBackend interface. Every backend, native or emulated,
// must pass the same suite; implementation-specific behavior (such as key
// recycling internals) is tested white-box in the backend package itself.
//
// Usage from an implementation's test file:
//
//	func Test(t *testing.T) {
//		backendtesting.RunKeyBackendTests(t, "Emulated", backend.NewEmulatedBackend)
//	}
package testing
