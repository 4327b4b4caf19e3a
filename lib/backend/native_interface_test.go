//go:build !ppc && !ppc64

package backend_test

import (
	"testing"

	"github.com/ValentinKolb/gLS/lib/backend"
	backendtesting "github.com/ValentinKolb/gLS/lib/backend/testing"
)

func TestNative(t *testing.T) {
	backendtesting.RunKeyBackendTests(t, "Native", backend.NewNativeBackend)
}

func BenchmarkNative(b *testing.B) {
	backendtesting.RunKeyBackendBenchmarks(b, "Native", backend.NewNativeBackend)
}
