//go:build ktest

package syscall

import (
	"kernel/idt"
	"kernel/kerr"
	"kernel/ktest"
	"kernel/sched"
)

// Grounded on spec scenario S3: an out-of-range syscall number must come
// back as kerr.NotImplemented (-38), not a crash or a silent zero.
func init() {
	ktest.Register("syscall", "unknown_number_returns_not_implemented", func() ktest.Result {
		f := &idt.Frame{EAX: 999}
		dispatch(f)
		if int32(f.EAX) != int32(kerr.NotImplemented) {
			return ktest.Fail
		}
		return ktest.Pass
	})

	ktest.Register("syscall", "getpid_matches_current_task_id", func() ktest.Result {
		f := &idt.Frame{EAX: Getpid}
		dispatch(f)
		want := int32(-1)
		if cur := sched.Current(); cur != nil {
			want = int32(cur.ID)
		}
		if int32(f.EAX) != want {
			return ktest.Fail
		}
		return ktest.Pass
	})
}
