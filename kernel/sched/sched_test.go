package sched

import (
	"testing"

	"kernel/task"
)

// resetSchedState clears package-level state between tests and swaps the
// two hardware-touching seams (context switch, CLI/STI) for no-ops. Unlike
// mmu/timer/task's tests, this package never needs a real frame allocator
// behind it: Enqueue/Dequeue/Schedule only ever touch exported TCB fields,
// so tests build *task.TCB values directly, the same way the original's
// host-side scheduler_test.c tests its queue/bitmap logic against a bare
// mock struct instead of a fully constructed kernel task.
func resetSchedState(t *testing.T) {
	t.Helper()

	contextSwitchFn = func(old, new *task.Context) {}
	disableInterruptsFn = func() uint32 { return 0 }
	restoreInterruptsFn = func(token uint32) {}

	ready = [NumPriorities]queue{}
	priorityBitmap = [8]uint32{}
	contextSwitches = 0
	ticks = 0
	needResched = false
	currentTask = nil
	bootstrapTask = task.TCB{}
	zombieToReap = nil

	t.Cleanup(func() {
		contextSwitchFn = task.ContextSwitch
	})
}

func newTCB(id uint32, priority uint8, state task.State) *task.TCB {
	return &task.TCB{ID: id, Priority: priority, State: state}
}

func TestEnqueueDequeueUpdatesBitmapAndCount(t *testing.T) {
	resetSchedState(t)
	tk := newTCB(1, 50, task.StateReady)

	Enqueue(tk)
	if priorityBitmap[50/32]&(1<<(50%32)) == 0 {
		t.Fatal("expected priority bit set after Enqueue")
	}
	if ready[50].count != 1 {
		t.Fatalf("expected count 1; got %d", ready[50].count)
	}

	Dequeue(tk)
	if priorityBitmap[50/32]&(1<<(50%32)) != 0 {
		t.Fatal("expected priority bit cleared once queue empties")
	}
	if ready[50].count != 0 {
		t.Fatalf("expected count 0; got %d", ready[50].count)
	}
}

func TestEnqueueIgnoresNonReadyTask(t *testing.T) {
	resetSchedState(t)
	tk := newTCB(1, 50, task.StateBlocked)

	Enqueue(tk)
	if ready[50].count != 0 {
		t.Fatal("expected Enqueue to refuse a non-Ready task")
	}
}

func TestDequeueOfUnlinkedTaskIsNoop(t *testing.T) {
	resetSchedState(t)
	tk := newTCB(1, 50, task.StateReady)
	Dequeue(tk) // never enqueued; must not panic or touch the bitmap
	if ready[50].count != 0 {
		t.Fatal("expected queue to remain empty")
	}
}

func TestDequeueRemovesMiddleOfThreeWithoutBreakingLinks(t *testing.T) {
	resetSchedState(t)
	a := newTCB(1, 50, task.StateReady)
	b := newTCB(2, 50, task.StateReady)
	c := newTCB(3, 50, task.StateReady)
	Enqueue(a)
	Enqueue(b)
	Enqueue(c)

	Dequeue(b)

	if ready[50].count != 2 {
		t.Fatalf("expected count 2 after removing middle task; got %d", ready[50].count)
	}
	if a.Next != c || c.Prev != a {
		t.Fatal("expected a and c to be linked directly after removing b")
	}
}

func TestPickNextReturnsHighestPriority(t *testing.T) {
	resetSchedState(t)
	low := newTCB(1, 10, task.StateReady)
	high := newTCB(2, 200, task.StateReady)

	Enqueue(low)
	Enqueue(high)

	if PickNext() != high {
		t.Fatal("expected PickNext to return the higher-priority task")
	}
}

func TestPickNextFallsBackToIdleWhenNothingReady(t *testing.T) {
	resetSchedState(t)
	if PickNext() != task.Idle() {
		t.Fatal("expected PickNext to fall back to task.Idle() when no queue has entries")
	}
}

func TestPickNextReturnsQueueOrderWithinSamePriority(t *testing.T) {
	resetSchedState(t)
	a := newTCB(1, 75, task.StateReady)
	b := newTCB(2, 75, task.StateReady)

	Enqueue(a)
	Enqueue(b)

	if PickNext() != a {
		t.Fatal("expected PickNext to return the first-enqueued task at a tied priority")
	}
}

func TestInitRejectsNilIdleTask(t *testing.T) {
	resetSchedState(t)
	if code := Init(nil); code == 0 {
		t.Fatal("expected Init(nil) to fail without an idle task")
	}
}

func TestInitEnqueuesIdleAndInstallsBootstrapAsCurrent(t *testing.T) {
	resetSchedState(t)
	idle := newTCB(0, IdlePriority, task.StateBlocked)

	if code := Init(idle); code != 0 {
		t.Fatalf("unexpected error: %v", code)
	}

	if currentTask.ID != 0xFFFFFFFF {
		t.Fatalf("expected bootstrap sentinel as current task; got ID %d", currentTask.ID)
	}
	if currentTask.State != task.StateZombie {
		t.Fatal("expected bootstrap task to be Zombie so it is never rescheduled")
	}
	if idle.State != task.StateReady {
		t.Fatal("expected Init to mark idle task Ready")
	}
	if PickNext() != idle {
		t.Fatal("expected idle task to be enqueued and pickable")
	}
}

func TestScheduleSwitchesToHigherPriorityTask(t *testing.T) {
	resetSchedState(t)
	idle := newTCB(0, IdlePriority, task.StateBlocked)
	Init(idle)

	worker := newTCB(5, 200, task.StateReady)
	Enqueue(worker)

	Schedule()

	if currentTask != worker {
		t.Fatal("expected Schedule to switch current task to the ready worker")
	}
	if worker.State != task.StateRunning {
		t.Fatalf("expected worker to be Running; got %v", worker.State)
	}
	if task.Current() != worker {
		t.Fatal("expected task.SetCurrent to be called with the new task")
	}
	if GetStats().ContextSwitches != 1 {
		t.Fatalf("expected 1 context switch; got %d", GetStats().ContextSwitches)
	}
}

func TestScheduleRequeuesPreviousRunningTaskAsReady(t *testing.T) {
	resetSchedState(t)
	idle := newTCB(0, IdlePriority, task.StateBlocked)
	Init(idle)

	first := newTCB(1, 200, task.StateReady)
	Enqueue(first)
	Schedule() // bootstrap -> first

	second := newTCB(2, 200, task.StateReady)
	Enqueue(second)
	first.State = task.StateRunning
	Schedule() // first -> second (round robin within same priority)

	if currentTask != second {
		t.Fatal("expected Schedule to move on to the second same-priority task")
	}
	if first.State != task.StateReady {
		t.Fatalf("expected preempted task to return to Ready; got %v", first.State)
	}
	if ready[200].count != 1 {
		t.Fatalf("expected first to be re-enqueued; queue count = %d", ready[200].count)
	}
}

func TestScheduleIsNoopWhenCurrentIsOnlyCandidate(t *testing.T) {
	resetSchedState(t)
	idle := newTCB(0, IdlePriority, task.StateBlocked)
	Init(idle)
	currentTask = idle

	before := GetStats().ContextSwitches
	Schedule() // only idle is ready and it's already current

	if GetStats().ContextSwitches != before {
		t.Fatal("expected no context switch when the same task is picked again")
	}
}

func TestScheduleDequeuesZombieCurrentInsteadOfReenqueuing(t *testing.T) {
	resetSchedState(t)
	idle := newTCB(0, IdlePriority, task.StateBlocked)
	Init(idle)

	dying := newTCB(1, 200, task.StateReady)
	Enqueue(dying)
	Schedule() // bootstrap -> dying

	next := newTCB(2, 200, task.StateReady)
	Enqueue(next)
	dying.State = task.StateZombie
	Schedule()

	if currentTask != next {
		t.Fatal("expected Schedule to move off a Zombie current task")
	}
	if ready[200].count != 0 {
		t.Fatalf("expected the zombie task not to be re-enqueued; count=%d", ready[200].count)
	}
}

func TestTickSetsNeedReschedWhenSamePriorityTaskIsReady(t *testing.T) {
	resetSchedState(t)
	idle := newTCB(0, IdlePriority, task.StateBlocked)
	Init(idle)

	worker := newTCB(1, 200, task.StateReady)
	Enqueue(worker)
	Schedule() // current is now worker, priority 200

	other := newTCB(2, 200, task.StateReady)
	Enqueue(other)

	if !Tick() {
		t.Fatal("expected Tick to request a reschedule with a same-priority peer ready")
	}
	if !NeedResched() {
		t.Fatal("expected NeedResched to reflect Tick's request")
	}
	if worker.CPUTimeTicks != 1 {
		t.Fatalf("expected current task's tick accounting to increment; got %d", worker.CPUTimeTicks)
	}
}

func TestTickDoesNotRequestRescheduleWhenAlone(t *testing.T) {
	resetSchedState(t)
	idle := newTCB(0, IdlePriority, task.StateBlocked)
	Init(idle)
	Schedule() // idle becomes current; nothing else is ready at its priority

	if Tick() {
		t.Fatal("expected Tick not to request a reschedule with no peer ready")
	}
}

func TestRequestRescheduleSetsFlag(t *testing.T) {
	resetSchedState(t)
	needResched = false
	RequestReschedule()
	if !NeedResched() {
		t.Fatal("expected RequestReschedule to set the flag")
	}
}
