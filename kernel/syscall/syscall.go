// Package syscall is the INT 0x80 dispatch table: the classic
// number-in-EAX, args-in-EBX/ECX/EDX/ESI/EDI, result-in-EAX ABI. Grounded
// on the original core/syscall.c's syscall_table/syscall_handler, adapted
// from its C function-pointer array to a Go slice of typed entries and
// from five separate long arguments to a fixed-size Args array.
package syscall

import (
	"kernel/idt"
	"kernel/kerr"
	"kernel/sched"
	"kernel/task"
)

// Syscall numbers. 0 is reserved for "invalid syscall", matching the
// original's table layout.
const (
	Exit    = 1
	Yield   = 2
	Getpid  = 3
	SleepUs = 4
)

// MaxSyscalls bounds the dispatch table, matching the original's
// MAX_SYSCALLS so syscall numbers and table indices stay interchangeable.
const MaxSyscalls = 256

// Args is the fixed argument record every syscall function receives,
// regardless of how many of the five it actually uses.
type Args struct {
	A0, A1, A2, A3, A4 int32
}

// Func is a syscall implementation's signature: take the argument record,
// return a value (placed in EAX) and an error code (a negative kerr.Code,
// which the dispatcher places in EAX instead of the value when non-zero,
// like the original's -ENOSYS).
type Func func(args Args) (int32, kerr.Code)

var table [MaxSyscalls]Func

func init() {
	table[Exit] = sysExit
	table[Yield] = sysYield
	table[Getpid] = sysGetpid
	table[SleepUs] = sysSleepUs
}

// Init registers the INT 0x80 handler with package idt. Must run after
// idt.Init, mirroring the original's syscall_init ordering requirement.
func Init() {
	idt.SetSyscallHook(dispatch)
}

// dispatch reads the syscall number and arguments out of the interrupt
// frame, calls the matching table entry, and writes the result back into
// f.EAX for IRET to hand back to the caller. An out-of-range or
// unregistered number returns kerr.NotImplemented (-38), the Go-taxonomy
// equivalent of the original's -ENOSYS.
func dispatch(f *idt.Frame) {
	num := f.EAX
	args := Args{
		A0: int32(f.EBX),
		A1: int32(f.ECX),
		A2: int32(f.EDX),
		A3: int32(f.ESI),
		A4: int32(f.EDI),
	}

	if num >= MaxSyscalls || table[num] == nil {
		code := kerr.NotImplemented
		f.EAX = uint32(int32(code))
		return
	}

	result, code := table[num](args)
	if code != 0 {
		f.EAX = uint32(int32(code))
		return
	}
	f.EAX = uint32(result)
}

func sysExit(args Args) (int32, kerr.Code) {
	task.Exit(args.A0)
	return 0, 0
}

func sysYield(args Args) (int32, kerr.Code) {
	task.Yield()
	return 0, 0
}

func sysGetpid(args Args) (int32, kerr.Code) {
	current := sched.Current()
	if current == nil {
		return -1, 0
	}
	return int32(current.ID), 0
}

// sysSleepUs is not implemented: a real sleep needs a blocked-task queue
// and timer-driven wakeup this kernel doesn't have yet, the same gap the
// original flags for its own sys_sleep_us.
func sysSleepUs(args Args) (int32, kerr.Code) {
	return 0, kerr.NotImplemented
}
