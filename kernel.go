// Package kernel holds the few symbols shared by every subsystem: the
// error type used instead of the stdlib error interface, and a couple of
// memory primitives that stand in for functions the Go runtime would
// normally provide once its allocator is up.
package kernel

import (
	"reflect"
	"unsafe"

	"kernel/hal"
	"kernel/kfmt"
)

// haltFn is swapped out in tests so TestPanic doesn't actually stop the
// host process.
var haltFn = hal.Halt

// Error describes a kernel error. All kernel errors are defined as global
// variables holding a pointer to this structure, since errors.New requires
// a working heap allocator and this kernel never bootstraps one (dynamic
// kmalloc is out of scope for this core).
type Error struct {
	// Module names the subsystem where the error originated.
	Module string

	// Message is a human readable description.
	Message string

	// Code is the numeric taxonomy value from package kerr. Zero means
	// the error predates the taxonomy and carries no numeric code.
	Code int32
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

var errUnknownPanic = &Error{Module: "rt", Message: "unknown cause"}

// Panic prints e to the active kfmt sink and halts the CPU; it never
// returns. kmain calls this instead of the builtin panic for every
// unrecoverable condition during bring-up, matching the original's own
// Panic(interface{}) redirection target — this kernel has no recover
// chain behind it either, so there is nothing a builtin panic would add.
func Panic(e interface{}) {
	var err *Error
	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errUnknownPanic.Message = t
		err = errUnknownPanic
	case error:
		errUnknownPanic.Message = t.Error()
		err = errUnknownPanic
	default:
		err = errUnknownPanic
	}

	kfmt.Printf("\n-----------------------------------\n")
	kfmt.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	kfmt.Printf("*** kernel panic: system halted ***\n")
	kfmt.Printf("-----------------------------------\n")

	for {
		haltFn()
	}
}

// Memset sets size bytes at addr to value using a doubling copy strategy
// instead of a byte-at-a-time loop.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: addr,
	}))

	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst.
func Memcopy(src, dst uintptr, size uintptr) {
	if size == 0 {
		return
	}

	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: src,
	}))
	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: dst,
	}))

	copy(dstSlice, srcSlice)
}
