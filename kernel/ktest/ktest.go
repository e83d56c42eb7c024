// Package ktest is the build-time kernel test harness: a fixed-size
// registry of self-contained checks that run at boot when the kernel is
// built with the ktest tag, printing PASS/FAIL through whatever sink
// kmain wires in. Grounded on the original core/ktest.c's
// __start_ktests/__stop_ktests linker-section registry, generalized from
// that section-scanning trick (which has no portable Go equivalent
// without linker-script surgery this kernel doesn't otherwise need) to a
// package-level array filled by Register calls from each subsystem's own
// ktest-tagged file — the same "no dynamic allocation" constraint the
// original's fixed struct array satisfies, just built at init time
// instead of link time.
package ktest

import "kernel/kfmt"

// Result is a test's outcome.
type Result int

const (
	Pass Result = iota
	Fail
)

// Func is a single check: self-contained, no arguments, reports pass/fail
// via its return value the way the original's ktest_fn does.
type Func func() Result

// entry pairs a registered test with the subsystem name it belongs to.
type entry struct {
	subsystem string
	name      string
	fn        Func
}

// maxTests bounds the registry the same way pmm bounds its bitmap: a
// static array sized generously above what this kernel's subsystems
// actually register, with no dynamic growth.
const maxTests = 64

var (
	registry [maxTests]entry
	count    int
)

// Register adds fn to the registry under subsystem/name. Called from each
// subsystem's ktest-tagged init() function; panics if the registry is
// full rather than silently dropping a test, since a full registry at
// this fixed size signals a build-time mistake, not a runtime condition.
func Register(subsystem, name string, fn Func) {
	if count >= maxTests {
		panic("ktest: registry full")
	}
	registry[count] = entry{subsystem: subsystem, name: name, fn: fn}
	count++
}

// RunAll runs every registered test in registration order and returns the
// number that failed (0 means every test passed).
func RunAll() int {
	kfmt.Printf("\n========================================\n")
	kfmt.Printf("  KERNEL TEST SUITE\n")
	kfmt.Printf("========================================\n\n")

	failed := 0
	for i := 0; i < count; i++ {
		e := registry[i]
		kfmt.Printf("[TEST] %s::%s ... ", e.subsystem, e.name)
		if e.fn() == Pass {
			kfmt.Printf("PASS\n")
		} else {
			kfmt.Printf("FAIL\n")
			failed++
		}
	}

	kfmt.Printf("\n========================================\n")
	kfmt.Printf("Tests run: %d\n", count)
	kfmt.Printf("Passed:    %d\n", count-failed)
	kfmt.Printf("Failed:    %d\n", failed)
	kfmt.Printf("========================================\n\n")

	return failed
}

// RunSubsystem runs only the tests registered under subsystem and returns
// the number that failed.
func RunSubsystem(subsystem string) int {
	kfmt.Printf("\n[TEST] Running tests for subsystem: %s\n", subsystem)

	total, failed := 0, 0
	for i := 0; i < count; i++ {
		e := registry[i]
		if e.subsystem != subsystem {
			continue
		}
		total++
		kfmt.Printf("  %s ... ", e.name)
		if e.fn() == Pass {
			kfmt.Printf("PASS\n")
		} else {
			kfmt.Printf("FAIL\n")
			failed++
		}
	}

	kfmt.Printf("[TEST] %s: %d/%d passed\n\n", subsystem, total-failed, total)
	return failed
}

// Count reports how many tests are currently registered.
func Count() int { return count }
