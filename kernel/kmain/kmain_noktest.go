//go:build !ktest

package kmain

// runKernelTests is a no-op in ordinary builds; the ktest registry and
// runner only exist when built with -tags ktest.
func runKernelTests() {}
