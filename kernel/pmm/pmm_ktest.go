//go:build ktest

package pmm

import "kernel/ktest"

// Registered under the ktest build tag so production kernel builds never
// carry these checks; kmain runs them via ktest.RunAll when built with
// -tags ktest. Grounded on spec scenario S1's alloc/free expectations,
// adapted to run against whatever memory map this boot actually has
// rather than a fixed synthetic one.
func init() {
	ktest.Register("pmm", "alloc_returns_nonzero_frame", func() ktest.Result {
		f, code := Alloc()
		if code != 0 {
			return ktest.Fail
		}
		defer Free(f)
		if f.Address() == 0 {
			return ktest.Fail
		}
		return ktest.Pass
	})

	ktest.Register("pmm", "alloc_free_roundtrip_preserves_stats", func() ktest.Result {
		before := GetStats().FreeFrames
		f, code := Alloc()
		if code != 0 {
			return ktest.Fail
		}
		if GetStats().FreeFrames != before-1 {
			Free(f)
			return ktest.Fail
		}
		Free(f)
		if GetStats().FreeFrames != before {
			return ktest.Fail
		}
		return ktest.Pass
	})

	ktest.Register("pmm", "null_frame_never_allocated", func() ktest.Result {
		seen := false
		var frames [64]Frame
		n := 0
		for i := 0; i < len(frames); i++ {
			f, code := Alloc()
			if code != 0 {
				break
			}
			frames[i] = f
			n++
			if f == 0 {
				seen = true
			}
		}
		for i := 0; i < n; i++ {
			Free(frames[i])
		}
		if seen {
			return ktest.Fail
		}
		return ktest.Pass
	})
}
