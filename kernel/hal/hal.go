// Package hal isolates the rest of the kernel from the x86-specific
// instructions needed to talk to interrupt controllers, I/O ports and the
// timestamp counter. It mirrors the split the original hal_ops vtable drew
// between architecture-neutral callers and the arch/x86 implementation,
// but expresses it as a package boundary instead of a struct of function
// pointers: every exported function here is backed by a handful of
// assembly instructions in asm_386.s.
package hal

import "kernel/kerr"

// MaxVector is one past the highest interrupt vector the kernel installs a
// handler for (256 IDT entries).
const MaxVector = 256

// Handler is invoked by the common interrupt dispatch path (see package
// idt) when its vector fires. vector and errCode let a single handler serve
// more than one exception if it needs to distinguish them.
type Handler func(vector uint8, errCode uint32)

var handlers [MaxVector]Handler

// nestDepth counts nested DisableInterrupts/RestoreInterrupts pairs so that
// an inner critical section cannot accidentally re-enable interrupts that
// an outer one is still relying on being off.
var nestDepth uint32

// Init performs one-time HAL bring-up. It holds no state beyond zeroing the
// handler table, since GDT/IDT construction live in their own packages and
// are sequenced explicitly by kmain.
func Init() {
	for i := range handlers {
		handlers[i] = nil
	}
	nestDepth = 0
}

// Halt stops instruction execution until the next interrupt arrives. kmain
// calls this in the idle loop once scheduling is live.
func Halt() { halt() }

// EnableInterrupts unconditionally enables interrupts. Most callers should
// prefer DisableInterrupts/RestoreInterrupts, which nest correctly; this is
// for the one-shot case at the end of boot.
func EnableInterrupts() {
	nestDepth = 0
	sti()
}

// DisableInterrupts disables interrupts and returns an opaque token that
// must be passed to RestoreInterrupts. Calls may nest: only the outermost
// RestoreInterrupts actually re-enables interrupts.
func DisableInterrupts() uint32 {
	wasEnabled := flagsInterruptsEnabled()
	cli()
	nestDepth++
	if wasEnabled {
		return 1
	}
	return 0
}

// RestoreInterrupts undoes one DisableInterrupts call. Interrupts are
// re-enabled only once nesting unwinds back to zero and the outermost
// caller's token says they were enabled beforehand.
func RestoreInterrupts(token uint32) {
	if nestDepth > 0 {
		nestDepth--
	}
	if nestDepth == 0 && token != 0 {
		sti()
	}
}

// RegisterHandler installs handler for vector, replacing any handler that
// was previously registered there. It returns kerr.InvalidArgument if
// handler is nil; every uint8 vector has a slot in the table.
func RegisterHandler(vector uint8, handler Handler) kerr.Code {
	if handler == nil {
		return kerr.InvalidArgument
	}
	handlers[vector] = handler
	return 0
}

// UnregisterHandler removes whatever handler is installed at vector.
func UnregisterHandler(vector uint8) {
	handlers[vector] = nil
}

// Dispatch is called by the assembly interrupt stubs (via package idt) to
// invoke whatever handler is registered for vector. Vectors with no
// registered handler are silently ignored; idt still sends EOI.
func Dispatch(vector uint8, errCode uint32) {
	if h := handlers[vector]; h != nil {
		h(vector, errCode)
	}
}

// HasHandler reports whether a handler is currently registered for vector.
// Package idt uses this to distinguish an unhandled CPU exception (which
// must panic) from an unhandled IRQ (which is silently acked).
func HasHandler(vector uint8) bool {
	return handlers[vector] != nil
}

// Inb reads a byte from an I/O port.
func Inb(port uint16) uint8 { return inb(port) }

// Outb writes a byte to an I/O port.
func Outb(port uint16, value uint8) { outb(port, value) }

// Inw reads a 16-bit word from an I/O port.
func Inw(port uint16) uint16 { return inw(port) }

// Outw writes a 16-bit word to an I/O port.
func Outw(port uint16, value uint16) { outw(port, value) }

// Inl reads a 32-bit long from an I/O port.
func Inl(port uint16) uint32 { return inl(port) }

// Outl writes a 32-bit long to an I/O port.
func Outl(port uint16, value uint32) { outl(port, value) }

// ReadTSC returns the current value of the timestamp counter, used by
// package timer to calibrate the PIT against wall-clock time.
func ReadTSC() uint64 { return rdtsc() }

// Reboot triples-faults the CPU via the keyboard controller's pulse-reset
// line, the standard bare-metal reboot trick when no ACPI is available.
func Reboot() {
	for Inb(0x64)&0x02 != 0 {
	}
	Outb(0x64, 0xFE)
	for {
		halt()
	}
}
