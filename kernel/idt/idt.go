// Package idt builds the 256-entry Interrupt Descriptor Table, remaps the
// 8259 PIC pair so hardware IRQs land on vectors 32-47, and runs the
// common dispatch path every exception/IRQ/syscall stub funnels into. It
// generalizes the teacher's gate/irq split (Registers+Frame structs,
// table-driven HandleInterrupt) from amd64's IST-based gates down to the
// simpler i386 interrupt-gate model the frame in original_source's
// interrupt_frame describes.
package idt

import (
	"kernel"
	"kernel/hal"
	"kernel/layout"
)

// Frame is the interrupt frame a handler observes on entry: the general
// registers and data selector pushed by the common stub, the vector and
// error code, and the hardware-pushed return frame. When entry came from
// ring 3, UserESP and UserSS are populated; otherwise they are zero.
type Frame struct {
	DS                         uint32
	EDI, ESI, EBP, ESP         uint32
	EBX, EDX, ECX, EAX         uint32
	Vector, ErrCode            uint32
	EIP, CS, EFlags            uint32
	UserESP, UserSS            uint32
}

// gate attributes (Intel SDM 3.4.5 / 6.11).
const (
	gatePresent        = 1 << 7
	gateDPL3           = 3 << 5
	gateType32BitIntr  = 0x0E
)

// entry is the on-the-wire 8-byte IDT gate format.
type entry struct {
	offsetLow  uint16
	selector   uint16
	zero       uint8
	typeAttr   uint8
	offsetHigh uint16
}

var (
	table [layout.VectorCount]entry

	// needReschedule is set by RequestReschedule (which kmain's timer tick
	// hook calls) and consulted only at the common return path, never from within a
	// handler, per the spec's "never call the scheduler itself" rule.
	needReschedule bool

	// reschedule is invoked at the end of IRQ dispatch if needReschedule
	// is set. kmain wires this to the scheduler once it exists, avoiding
	// an import cycle between idt and sched.
	reschedule func()

	// syscallHook handles layout.VectorSyscall specially: unlike every
	// other vector, its handler needs the full register frame (the
	// syscall number and up to five arguments live in EAX/EBX/ECX/EDX/
	// ESI/EDI) rather than just the vector and error code hal.Handler
	// carries, and must write its result back into f.EAX before dispatch
	// returns so IRET resumes the caller with that value in EAX. Package
	// syscall installs this at Init, avoiding an idt<->syscall import
	// cycle the same way reschedule avoids one with sched.
	syscallHook func(f *Frame)
)

// SetSyscallHook installs the function dispatch calls for
// layout.VectorSyscall instead of the normal hal.Handler path.
func SetSyscallHook(fn func(f *Frame)) {
	syscallHook = fn
}

func setGate(vector uint8, handlerAddr uint32, selector uint16, flags uint8) {
	table[vector] = entry{
		offsetLow:  uint16(handlerAddr & 0xFFFF),
		offsetHigh: uint16(handlerAddr >> 16),
		selector:   selector,
		zero:       0,
		typeAttr:   flags,
	}
}

// hasErrCode reports whether the CPU pushes a hardware error code for this
// exception vector (8, and 10-14, 17); every other vector gets a
// zero-filled slot so the frame layout stays uniform.
func hasErrCode(vector uint8) bool {
	switch vector {
	case 8, 10, 11, 12, 13, 14, 17:
		return true
	default:
		return false
	}
}

// Init builds the IDT, remaps the PIC to vectors 32-47 and loads the
// table. GDT.Init must have already run so SelectorKernelCode is valid.
func Init() {
	for i := 0; i < layout.VectorCount; i++ {
		table[i] = entry{}
	}

	picRemap()

	for v := 0; v < 32; v++ {
		setGate(uint8(v), exceptionStubAddr(uint8(v)), layout.SelectorKernelCode,
			gatePresent|gateType32BitIntr)
	}
	for irq := 0; irq < layout.IRQCount; irq++ {
		v := layout.IRQBase + irq
		setGate(uint8(v), irqStubAddr(uint8(irq)), layout.SelectorKernelCode,
			gatePresent|gateType32BitIntr)
	}

	// DPL=3 is what makes INT 0x80 a legal ring-3 -> ring-0 edge; every
	// other gate stays at DPL 0 so a user attempt at INT faults with #GP.
	setGate(layout.VectorSyscall, syscallStubAddr(), layout.SelectorKernelCode,
		gatePresent|gateDPL3|gateType32BitIntr)

	loadIDT(&table[0], uint16(len(table)*8-1))
}

// picRemap reprograms the master/slave 8259 pair so IRQ 0-15 land on
// vectors 32-47 instead of colliding with CPU exceptions 8-15, then masks
// every line until its driver unmasks it explicitly.
func picRemap() {
	const (
		picMasterCmd  = 0x20
		picMasterData = 0x21
		picSlaveCmd   = 0xA0
		picSlaveData  = 0xA1

		icw1Init     = 0x11
		icw4Mode8086 = 0x01
	)

	hal.Outb(picMasterCmd, icw1Init)
	hal.Outb(picSlaveCmd, icw1Init)

	hal.Outb(picMasterData, layout.IRQBase)
	hal.Outb(picSlaveData, layout.IRQBase+8)

	hal.Outb(picMasterData, 0x04) // tell master: slave sits on IRQ2
	hal.Outb(picSlaveData, 0x02)  // tell slave its cascade identity

	hal.Outb(picMasterData, icw4Mode8086)
	hal.Outb(picSlaveData, icw4Mode8086)

	hal.Outb(picMasterData, 0xFF)
	hal.Outb(picSlaveData, 0xFF)
}

// UnmaskIRQ clears an IRQ line's mask bit so the PIC starts delivering it.
func UnmaskIRQ(irq uint8) {
	port, bit := irqMaskPort(irq)
	hal.Outb(port, hal.Inb(port)&^(1<<bit))
}

// MaskIRQ sets an IRQ line's mask bit so the PIC stops delivering it.
func MaskIRQ(irq uint8) {
	port, bit := irqMaskPort(irq)
	hal.Outb(port, hal.Inb(port)|(1<<bit))
}

func irqMaskPort(irq uint8) (port uint16, bit uint8) {
	if irq < 8 {
		return 0x21, irq
	}
	return 0xA1, irq - 8
}

// SetRescheduleHook installs the function the common IRQ return path calls
// when needReschedule is set. kmain wires this to sched.Schedule once the
// scheduler is initialized.
func SetRescheduleHook(fn func()) {
	reschedule = fn
}

// RequestReschedule is called by the timer tick hook to flag that
// preemption should happen at the next common-path return, never from
// inside the handler itself.
func RequestReschedule() {
	needReschedule = true
}

// dispatch is the common routine every assembly stub calls after pushing a
// Frame. It is the Go analogue of isr_handler/irq_handler: look up the
// per-vector handler, panic on a missing exception handler, silently ack a
// missing IRQ handler, send EOI, then check the deferred reschedule flag.
func dispatch(f *Frame) {
	vector := uint8(f.Vector)

	if vector == layout.VectorSyscall {
		if syscallHook != nil {
			syscallHook(f)
		}
		return
	}

	if hal.HasHandler(vector) {
		hal.Dispatch(vector, f.ErrCode)
	} else if vector < 32 {
		kernel.Panic(unhandledExceptionMessage(vector))
	}

	if vector >= layout.IRQBase && vector < layout.IRQBase+layout.IRQCount {
		if vector >= layout.IRQBase+8 {
			hal.Outb(0xA0, 0x20)
		}
		hal.Outb(0x20, 0x20)

		if needReschedule {
			needReschedule = false
			if reschedule != nil {
				reschedule()
			}
		}
	}
}

func unhandledExceptionMessage(vector uint8) string {
	if int(vector) < len(exceptionNames) {
		return exceptionNames[vector]
	}
	return "Unknown Exception"
}

var exceptionNames = [32]string{
	"Division By Zero", "Debug", "Non Maskable Interrupt", "Breakpoint",
	"Overflow", "Bound Range Exceeded", "Invalid Opcode", "Device Not Available",
	"Double Fault", "Coprocessor Segment Overrun", "Invalid TSS", "Segment Not Present",
	"Stack-Segment Fault", "General Protection Fault", "Page Fault", "Reserved",
	"x87 Floating-Point Exception", "Alignment Check", "Machine Check", "SIMD Floating-Point Exception",
	"Virtualization Exception", "Reserved", "Reserved", "Reserved",
	"Reserved", "Reserved", "Reserved", "Reserved",
	"Reserved", "Reserved", "Security Exception", "Reserved",
}
