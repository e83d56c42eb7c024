// Package sched is the O(1) priority scheduler: 256 ready queues, an
// 8-word bitmap for constant-time highest-priority lookup, and the
// context-switch path task.Yield/task.Exit ultimately reach through the
// scheduler hook this package's Init installs into task. Grounded on the original
// core/scheduler.c and its header, generalized from its global
// g_scheduler struct to package-level state (this kernel targets one CPU
// only, so there is exactly one scheduler instance either way).
package sched

import (
	"kernel/gdt"
	"kernel/hal"
	"kernel/kerr"
	"kernel/task"
)

// NumPriorities is the number of distinct priority levels, 0 (lowest) to
// 255 (highest).
const NumPriorities = 256

// IdlePriority is the priority the idle task runs at.
const IdlePriority = 0

// DefaultPriority is what CreateKernelThread callers get unless they ask
// for something else explicitly.
const DefaultPriority = 128

// queue is a priority level's ready list: a doubly-linked list through
// each TCB's own Next/Prev fields, so enqueue/dequeue never allocate.
type queue struct {
	head, tail *task.TCB
	count      uint32
}

var (
	ready          [NumPriorities]queue
	priorityBitmap [8]uint32

	currentTask *task.TCB

	// bootstrapTask stands in for the code executing before the
	// scheduler takes over: never enqueued, permanently Zombie so
	// nothing ever tries to resume it once the first real switch away
	// from it happens.
	bootstrapTask task.TCB

	contextSwitches uint64
	ticks           uint64
	needResched     bool
)

// contextSwitchFn is swappable the same way the other packages' hardware
// seams are: tests replace it with a no-op so Schedule never actually
// swaps the test process's own stack out from under it.
var contextSwitchFn = task.ContextSwitch

// disableInterruptsFn/restoreInterruptsFn mirror the same seam package
// timer uses: CLI/STI are privileged instructions that fault outside ring
// 0, so tests redirect these at no-ops instead of touching hal directly.
var (
	disableInterruptsFn = hal.DisableInterrupts
	restoreInterruptsFn = hal.RestoreInterrupts
)

func setPriorityBit(priority uint8) {
	priorityBitmap[priority/32] |= 1 << (priority % 32)
}

func clearPriorityBit(priority uint8) {
	priorityBitmap[priority/32] &^= 1 << (priority % 32)
}

// findHighestPriority scans the bitmap from the top word down and returns
// the position of its highest set bit, or IdlePriority if every word is
// zero. The original uses __builtin_clz for this; Go's bits.LeadingZeros32
// in package math/bits is the direct equivalent, but this core stays off
// anything beyond the small stdlib surface already in use elsewhere, so
// the scan below does the same job with a simple bit-by-bit search — it
// is still O(1) in the number of priorities (8 words, at most 32 bits
// each, independent of how many tasks are ready).
func findHighestPriority() uint8 {
	for i := 7; i >= 0; i-- {
		word := priorityBitmap[i]
		if word == 0 {
			continue
		}
		for bit := 31; bit >= 0; bit-- {
			if word&(1<<uint(bit)) != 0 {
				return uint8(i*32 + bit)
			}
		}
	}
	return IdlePriority
}

// Enqueue adds t to its priority's ready queue. t must be in StateReady;
// callers that just created or unblocked a task set that state first.
func Enqueue(t *task.TCB) {
	if t == nil || t.State != task.StateReady {
		return
	}

	q := &ready[t.Priority]
	if q.head == nil {
		q.head = t
		q.tail = t
		t.Next = nil
		t.Prev = nil
	} else {
		t.Prev = q.tail
		t.Next = nil
		q.tail.Next = t
		q.tail = t
	}
	q.count++
	setPriorityBit(t.Priority)
}

// Dequeue removes t from whatever ready queue it is linked into, if any.
func Dequeue(t *task.TCB) {
	if t == nil {
		return
	}

	q := &ready[t.Priority]
	if q.count == 0 {
		return
	}
	if q.head != t && q.tail != t && t.Prev == nil && t.Next == nil {
		return // not linked into this queue
	}

	if t.Prev != nil {
		t.Prev.Next = t.Next
	} else {
		q.head = t.Next
	}
	if t.Next != nil {
		t.Next.Prev = t.Prev
	} else {
		q.tail = t.Prev
	}
	t.Next = nil
	t.Prev = nil
	q.count--

	if q.count == 0 {
		clearPriorityBit(t.Priority)
	}
}

// PickNext returns the head of the highest-priority non-empty queue, or
// the idle task if every queue is empty (which should only happen
// transiently, since idle itself is always kept ready).
func PickNext() *task.TCB {
	priority := findHighestPriority()
	q := &ready[priority]
	if q.head == nil {
		return task.Idle()
	}
	return q.head
}

// Current returns the task the scheduler believes is running.
func Current() *task.TCB { return currentTask }

// Init wires the scheduler into package task (SetCurrent/SetSchedulerHook)
// and into the bootstrap sentinel, then enqueues idle so it shows up in
// the bitmap/queues. idle is task.Idle()'s result; kmain passes it
// explicitly (rather than Init reaching for the global itself) since
// kmain already holds it from sequencing task.Init() first, and it keeps
// this package's tests from needing a real task subsystem behind it.
func Init(idle *task.TCB) kerr.Code {
	if idle == nil {
		return kerr.ResourceExhausted
	}

	ready = [NumPriorities]queue{}
	priorityBitmap = [8]uint32{}
	contextSwitches = 0
	ticks = 0
	needResched = false

	bootstrapTask = task.TCB{}
	bootstrapTask.ID = 0xFFFFFFFF
	bootstrapTask.State = task.StateZombie
	bootstrapTask.Priority = IdlePriority
	currentTask = &bootstrapTask

	idle.State = task.StateReady
	Enqueue(idle)

	task.SetCurrent(currentTask)
	task.SetSchedulerHook(Schedule)

	return 0
}

// zombieToReap holds the last task Schedule switched away from while it
// was StateZombie. It can't be destroyed at the moment it's dequeued,
// since Schedule is still executing on that task's own kernel stack;
// freeing KernelStack out from under the running CPU would corrupt the
// very call it's part of. Instead it's reaped on the next call to
// Schedule, by which point execution is on a different task's stack.
var zombieToReap *task.TCB

// Schedule picks the highest-priority ready task and switches to it if it
// differs from the one currently running. The caller's own context is
// saved as part of the switch, so Schedule "returns" only once this task
// is chosen to run again by some future Schedule call.
func Schedule() {
	token := disableInterruptsFn()

	if zombieToReap != nil {
		task.Destroy(zombieToReap)
		zombieToReap = nil
	}

	current := currentTask
	next := PickNext()

	if current == next {
		needResched = false
		restoreInterruptsFn(token)
		return
	}

	switch current.State {
	case task.StateRunning:
		current.State = task.StateReady
	case task.StateZombie:
		Dequeue(current)
		zombieToReap = current
	}

	Dequeue(next)
	next.State = task.StateRunning

	if current.State == task.StateReady {
		Enqueue(current)
	}

	currentTask = next
	contextSwitches++
	needResched = false
	task.SetCurrent(next)

	// The TSS's ring-0 stack pointer must point at next's kernel stack
	// before the switch, since a ring-3 task re-entering via INT 0x80 or
	// a hardware IRQ lands on whatever stack esp0 names.
	gdt.SetKernelStack(next.KernelStack + next.KernelStackSize)

	contextSwitchFn(&current.Context, &next.Context)

	restoreInterruptsFn(token)
}

// Tick is the scheduler's timer-tick callback: it updates the running
// task's accounting and, if another task at the same priority is also
// ready (simple round-robin within a priority level), flags that a
// reschedule is needed. It returns that flag so the caller (package timer,
// via the hook wired in kmain) can request the IDT's deferred reschedule
// path instead of switching contexts from inside interrupt context.
func Tick() bool {
	ticks++

	if currentTask != nil {
		currentTask.CPUTimeTicks++
	}

	if currentTask == nil {
		return false
	}

	if ready[currentTask.Priority].count > 0 {
		needResched = true
		return true
	}
	return false
}

// NeedResched reports whether the last Tick call asked for a reschedule.
func NeedResched() bool { return needResched }

// RequestReschedule sets the reschedule flag directly, for callers (e.g.
// a newly-woken higher-priority task's unblock path) outside the timer
// tick.
func RequestReschedule() {
	needResched = true
}

// Stats summarizes scheduler activity, mirroring the counters the
// original keeps inline in g_scheduler.
type Stats struct {
	ContextSwitches uint64
	Ticks           uint64
}

// GetStats returns the current scheduler counters.
func GetStats() Stats {
	return Stats{ContextSwitches: contextSwitches, Ticks: ticks}
}
