// Package task is the Task Control Block subsystem: creation, the
// wrapper trampoline every new thread resumes into, and exit/yield.
// Grounded on the original core/task.c, generalized from its cdecl stack
// layout to the Go calling convention this kernel's context switch uses.
package task

import (
	"unsafe"

	"kernel/kerr"
	"kernel/layout"
	"kernel/mmu"
	"kernel/pmm"
)

// State is a task's scheduling state.
type State int32

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateZombie
)

// MaxNameLen bounds the task name, copied the way strlcpy bounds it.
const MaxNameLen = 32

// Context is the register state context_switch saves and restores,
// mirroring cpu_context_t field-for-field so the assembly ContextSwitch in
// asm_386.s can address it by fixed offsets.
type Context struct {
	EDI, ESI, EBX, EBP, ESP uint32
	EIP                     uint32
	CS, SS, DS, ES, FS, GS  uint32
	EFlags                  uint32
}

// TCB is a task control block. One is allocated per task from a whole
// physical frame, zeroed, and filled in by Create*; the scheduler links
// tasks of equal priority through Next/Prev.
type TCB struct {
	ID       uint32
	name     [MaxNameLen]byte
	State    State
	ExitCode int32

	Context Context

	AddressSpace    *mmu.AddressSpace
	KernelStack     uintptr
	KernelStackSize uintptr

	// selfFrame is this TCB's own physical frame address, recorded at
	// creation since a TCB can't recover its own physical address from
	// a Go pointer to itself the way the original recovers it via a
	// direct cast (tcbAtFn's test seam breaks that identity).
	selfFrame uintptr

	Priority     uint8
	CPUTimeTicks uint64
	LastRunTick  uint64

	Next, Prev *TCB
}

// Name returns the task's name as a Go string, stopping at the first NUL.
func (t *TCB) Name() string {
	n := 0
	for n < len(t.name) && t.name[n] != 0 {
		n++
	}
	return string(t.name[:n])
}

func setName(t *TCB, name string) {
	n := copy(t.name[:len(t.name)-1], name)
	t.name[n] = 0
}

// EntryFunc is a kernel-thread entry point, taking one untyped argument.
type EntryFunc func(arg uintptr)

const (
	kernelSegmentFlags = 0x202 // EFLAGS with IF set: interrupts enabled on first resume
)

var nextID uint32 = 1

var idleTask *TCB

// Swappable the same way mmu's tableAtFn is: tests redirect these at
// real Go-allocated backing arrays instead of raw physical memory.
var (
	tcbAtFn         = tcbAt
	wordAtFn        = wordAt
	byteAtFn        = byteAt
	wrapperArgsAtFn = wrapperArgsAt
	allocFrameFn    = pmm.Alloc
	freeFrameFn     = pmm.Free
)

func tcbAt(addr uintptr) *TCB          { return (*TCB)(unsafe.Pointer(addr)) }
func wordAt(addr uintptr) *uint32      { return (*uint32)(unsafe.Pointer(addr)) }
func byteAt(addr uintptr) *byte        { return (*byte)(unsafe.Pointer(addr)) }
func wrapperArgsAt(addr uintptr) *wrapperArgs { return (*wrapperArgs)(unsafe.Pointer(addr)) }

// entryAddr recovers the code address a zero-capture EntryFunc value
// points at. A Go func value with no captured variables is itself a
// pointer to a single-word closure record whose only word is the code
// pointer; dereferencing twice yields that address. Entry points handed
// to Create* are always package-level functions, never closures, so this
// holds.
func entryAddr(fn EntryFunc) uint32 {
	return uint32(**(**uintptr)(unsafe.Pointer(&fn)))
}

// primeStack lays out the two words below argRecordAddr per the original
// cdecl wrapper convention: argRecordAddr itself pushed as the wrapper's
// sole argument, then a dummy zero return address below that. sp starts
// at argRecordAddr, the address left over once the wrapperArgs record's
// own space has already been carved out of the stack. Returns the
// resulting stack pointer.
func primeStack(argRecordAddr uintptr) uintptr {
	sp := argRecordAddr

	sp -= 4
	*wordAtFn(sp) = uint32(argRecordAddr)

	sp -= 4
	*wordAtFn(sp) = 0 // dummy return address, never used

	return sp
}

// wrapperArgs mirrors task_wrapper_args_t: the real entry point and its
// argument, stashed just above the primed stack frame so the wrapper
// trampoline can recover them on first resume.
type wrapperArgs struct {
	entry EntryFunc
	arg   uintptr
}

func newTask(name string, priority uint8, as *mmu.AddressSpace, stackSize uintptr) (*TCB, kerr.Code) {
	if stackSize != layout.KernelStackSize {
		return nil, kerr.InvalidArgument
	}

	tcbFrame, code := allocFrameFn()
	if code != 0 {
		return nil, code
	}
	t := tcbAtFn(tcbFrame.Address())
	*t = TCB{}
	t.selfFrame = tcbFrame.Address()

	stackFrame, code := allocFrameFn()
	if code != 0 {
		freeFrameFn(tcbFrame)
		return nil, code
	}

	t.ID = nextID
	nextID++
	setName(t, name)
	t.State = StateReady
	t.Priority = priority
	t.AddressSpace = as
	t.KernelStack = stackFrame.Address()
	t.KernelStackSize = stackSize

	t.Context.CS = uint32(layout.SelectorKernelCode)
	t.Context.SS = uint32(layout.SelectorKernelData)
	t.Context.DS = uint32(layout.SelectorKernelData)
	t.Context.ES = uint32(layout.SelectorKernelData)
	t.Context.FS = uint32(layout.SelectorKernelData)
	t.Context.GS = uint32(layout.SelectorKernelData)
	t.Context.EFlags = kernelSegmentFlags

	return t, 0
}

// CreateKernelThread allocates a TCB and a 4 KiB kernel stack, primes the
// stack so the first resume lands in the wrapper trampoline, and returns
// the task in the ready state. stackSize must currently be exactly
// layout.KernelStackSize; a configurable larger stack is an open item
// upstream too.
func CreateKernelThread(name string, entry EntryFunc, arg uintptr, priority uint8, stackSize uintptr) (*TCB, kerr.Code) {
	if entry == nil {
		return nil, kerr.InvalidArgument
	}

	t, code := newTask(name, priority, mmu.KernelAddressSpace(), stackSize)
	if code != 0 {
		return nil, code
	}

	stackTop := t.KernelStack + t.KernelStackSize
	argRecordAddr := stackTop - uintptr(unsafe.Sizeof(wrapperArgs{}))
	argRecord := wrapperArgsAtFn(argRecordAddr)
	argRecord.entry = entry
	argRecord.arg = arg

	t.Context.ESP = uint32(primeStack(argRecordAddr))
	t.Context.EBP = t.Context.ESP
	t.Context.EIP = entryAddr(taskWrapper)

	return t, 0
}

// CreateUserTask builds a ring-3 task from a flat code image: its own
// address space, a code mapping at layout.UserCodeBase holding a copy of
// code, and a user stack mapping just below layout.UserStackTop. Unlike
// CreateKernelThread there is no wrapper trampoline — the primed context
// resumes directly at the code's first byte in ring 3, since there is no
// Go-side entry function to call into.
func CreateUserTask(name string, code []byte, priority uint8) (*TCB, kerr.Code) {
	if uintptr(len(code)) > layout.UserCodeLimit {
		return nil, kerr.InvalidArgument
	}

	as, asCode := mmu.CreateAddressSpace()
	if asCode != 0 {
		return nil, asCode
	}

	t, taskCode := newTask(name, priority, as, layout.KernelStackSize)
	if taskCode != 0 {
		mmu.DestroyAddressSpace(as)
		return nil, taskCode
	}

	codeFrame, code1 := allocFrameFn()
	if code1 != 0 {
		mmu.DestroyAddressSpace(as)
		return nil, code1
	}
	stackFrame, code2 := allocFrameFn()
	if code2 != 0 {
		freeFrameFn(codeFrame)
		mmu.DestroyAddressSpace(as)
		return nil, code2
	}

	userFlags := mmu.FlagPresent | mmu.FlagUser | mmu.FlagWritable
	if c := mmu.Map(as, codeFrame.Address(), layout.UserCodeBase, userFlags); c != 0 {
		freeFrameFn(codeFrame)
		freeFrameFn(stackFrame)
		mmu.DestroyAddressSpace(as)
		return nil, c
	}
	userStackBase := layout.UserStackTop - layout.PageSize
	if c := mmu.Map(as, stackFrame.Address(), userStackBase, userFlags); c != 0 {
		freeFrameFn(codeFrame)
		freeFrameFn(stackFrame)
		mmu.DestroyAddressSpace(as)
		return nil, c
	}

	dst := codeFrame.Address()
	for i, b := range code {
		*byteAtFn(dst + uintptr(i)) = b
	}

	t.Context.EIP = uint32(layout.UserCodeBase)
	t.Context.ESP = uint32(layout.UserStackTop)
	t.Context.EBP = t.Context.ESP
	t.Context.CS = uint32(layout.SelectorUserCode)
	t.Context.SS = uint32(layout.SelectorUserData)
	t.Context.DS = uint32(layout.SelectorUserData)
	t.Context.ES = uint32(layout.SelectorUserData)
	t.Context.FS = uint32(layout.SelectorUserData)
	t.Context.GS = uint32(layout.SelectorUserData)
	t.Context.EFlags = kernelSegmentFlags

	return t, 0
}

// taskWrapper is the trampoline every kernel thread's context first
// resumes into. It is never called directly from Go; its address is what
// gets planted as the primed context's EIP.
func taskWrapper(argRecordAddr uintptr) {
	args := wrapperArgsAtFn(argRecordAddr)
	args.entry(args.arg)
	Exit(0)
}

// idleEntry halts forever; the idle task only ever runs when nothing
// else is ready.
func idleEntry(arg uintptr) {
	for {
		haltFn()
	}
}

var haltFn = func() {}

// Init creates the idle task (ID 0, lowest priority, kernel address
// space) by hand, since the scheduler that CreateKernelThread ultimately
// needs isn't initialized yet at this point in bring-up.
func Init() (*TCB, kerr.Code) {
	t, code := newTask("idle", 0, mmu.KernelAddressSpace(), layout.KernelStackSize)
	if code != 0 {
		return nil, code
	}
	t.ID = 0 // idle always has ID 0, overriding the monotonic counter newTask used

	stackTop := t.KernelStack + t.KernelStackSize
	argRecordAddr := stackTop - uintptr(unsafe.Sizeof(wrapperArgs{}))
	argRecord := wrapperArgsAtFn(argRecordAddr)
	argRecord.entry = idleEntry
	argRecord.arg = 0

	t.Context.ESP = uint32(primeStack(argRecordAddr))
	t.Context.EBP = t.Context.ESP
	t.Context.EIP = entryAddr(taskWrapper)

	idleTask = t
	return t, 0
}

// Idle returns the idle task created by Init.
func Idle() *TCB { return idleTask }

// current is read by Current() and written by package sched via
// SetCurrent whenever it switches tasks. It lives here (rather than in
// sched) purely to avoid a sched<->task import cycle; sched still owns
// the decision of what value it holds.
var current *TCB

// Current returns the task currently executing.
func Current() *TCB { return current }

// SetCurrent installs t as the currently executing task. Only package
// sched calls this, at the point it commits to a context switch.
func SetCurrent(t *TCB) { current = t }

// Destroy frees task's kernel stack, TCB frame, and — for a user task —
// its address space (page tables and directory), since a user task's
// address space has exactly one owner. Kernel threads share
// mmu.KernelAddressSpace() and must never tear it down on exit, so Destroy
// only destroys an address space that isn't the kernel's own. Must never
// be called on the currently running task.
func Destroy(t *TCB) {
	if t == nil {
		return
	}
	if t.AddressSpace != nil && t.AddressSpace != mmu.KernelAddressSpace() {
		mmu.DestroyAddressSpace(t.AddressSpace)
	}
	if t.KernelStack != 0 {
		freeFrameFn(pmm.FrameForAddress(t.KernelStack))
	}
	// selfFrame is zero for the scheduler's bootstrap sentinel, which
	// never came from newTask/allocFrameFn and must never be handed back
	// to the PMM as if frame 0 (the permanently reserved NULL guard page)
	// had been allocated to it.
	if t.selfFrame != 0 {
		freeFrameFn(pmm.FrameForAddress(t.selfFrame))
	}
}

// rescheduleFn is called by Exit/Yield to hand control to the scheduler.
// Installed by package sched at boot to avoid a task<->sched import
// cycle, mirroring how package idt's reschedule hook is wired by kmain.
var rescheduleFn func()

// SetSchedulerHook installs the function Exit and Yield call to invoke
// the scheduler.
func SetSchedulerHook(fn func()) {
	rescheduleFn = fn
}

// Exit marks the current task ZOMBIE and yields to the scheduler. It
// never returns to its caller in a real boot; on the host, where
// rescheduleFn may be nil or a stub, it returns normally so tests can
// observe the state change.
func Exit(exitCode int32) {
	t := Current()
	if t == nil {
		return
	}
	t.State = StateZombie
	t.ExitCode = exitCode
	if rescheduleFn != nil {
		rescheduleFn()
	}
}

// Yield keeps the current task READY but invokes the scheduler, which
// may pick a different task to run.
func Yield() {
	if rescheduleFn != nil {
		rescheduleFn()
	}
}

// ContextSwitch saves the caller's register state into old and loads
// new's, transferring execution to wherever new was last switched out
// from. Implemented in asm_386.s; package sched is its only caller.
func ContextSwitch(old, new *Context)
