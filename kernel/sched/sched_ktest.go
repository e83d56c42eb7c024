//go:build ktest

package sched

import (
	"kernel/ktest"
	"kernel/task"
)

// Grounded on spec scenario S4's round-robin expectation: three ready
// tasks at the same priority take turns at the head of their queue one
// Dequeue at a time, and a higher-priority task always preempts them.
func init() {
	ktest.Register("sched", "higher_priority_task_picked_first", func() ktest.Result {
		low := &task.TCB{ID: 901, Priority: 128, State: task.StateReady}
		high := &task.TCB{ID: 902, Priority: 200, State: task.StateReady}

		Enqueue(low)
		Enqueue(high)
		defer func() { Dequeue(low); Dequeue(high) }()

		next := PickNext()
		if next != high {
			return ktest.Fail
		}
		return ktest.Pass
	})

	ktest.Register("sched", "same_priority_round_robins", func() ktest.Result {
		a := &task.TCB{ID: 903, Priority: 150, State: task.StateReady}
		b := &task.TCB{ID: 904, Priority: 150, State: task.StateReady}

		Enqueue(a)
		Enqueue(b)
		defer func() { Dequeue(a); Dequeue(b) }()

		first := PickNext()
		if first != a {
			return ktest.Fail
		}
		Dequeue(a)
		Enqueue(a)

		second := PickNext()
		if second != b {
			return ktest.Fail
		}
		return ktest.Pass
	})
}
