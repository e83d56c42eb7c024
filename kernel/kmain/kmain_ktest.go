//go:build ktest

package kmain

import (
	"kernel"
	"kernel/ktest"
)

// runKernelTests runs every registered ktest check and reports failures.
// Only linked in when the kernel is built with -tags ktest, the Go
// equivalent of the original's KERNEL_TESTS compile-time guard around its
// ktest_run_all call site.
func runKernelTests() {
	if failed := ktest.RunAll(); failed != 0 {
		kernel.Panic("kmain: ktest failures")
	}
}
