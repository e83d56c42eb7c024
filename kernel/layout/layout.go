// Package layout collects the fixed architectural constants shared across
// the kernel: GDT selector values, the IDT vector map and the userspace
// virtual-memory layout. Centralizing them here (rather than letting gdt,
// idt and mmu each define their own copies) is the same discipline the
// teacher's mem package applies to page size and pointer-shift constants.
package layout

// GDT segment selectors. The low two bits of each value encode the
// requested privilege level; user selectors are the matching ring-0
// selector OR'd with 3.
const (
	SelectorKernelCode uint16 = 0x08
	SelectorKernelData uint16 = 0x10
	SelectorUserCode   uint16 = 0x1B
	SelectorUserData   uint16 = 0x23
	SelectorTSS        uint16 = 0x28
)

// GDT entry count: null, kernel code, kernel data, user code, user data, TSS.
const GDTEntries = 6

// IDT vector map.
const (
	// VectorCount is the fixed size of the IDT: one slot per possible
	// interrupt vector.
	VectorCount = 256

	// IRQBase is the vector the master PIC's IRQ 0 is remapped to.
	// IRQ N arrives on vector IRQBase+N, covering 32-47.
	IRQBase = 32

	// IRQCount is the number of IRQ lines across both 8259 controllers.
	IRQCount = 16

	// IRQPIT is the IRQ line the PIT timer raises (IRQ 0).
	IRQPIT = 0

	// VectorSyscall is the software-interrupt vector the ring-3 syscall
	// gate is installed on (INT 0x80).
	VectorSyscall = 0x80
)

// Userspace virtual-memory layout.
const (
	// UserCodeBase is the fixed virtual address every user task's code
	// segment is mapped at.
	UserCodeBase uintptr = 0x00400000

	// UserCodeLimit bounds how large a single user code mapping may be.
	UserCodeLimit uintptr = 0x00400000

	// UserStackTop is the virtual address the user stack's first byte
	// below is mapped at; the stack grows down from here.
	UserStackTop uintptr = 0xC0000000

	// KernelSpaceBase is the first virtual address reserved for the
	// kernel; nothing above this boundary is ever user-mapped.
	KernelSpaceBase uintptr = 0xC0000000

	// NullGuardLimit is the address below which no mapping is ever
	// permitted, catching null-pointer dereferences as page faults.
	NullGuardLimit uintptr = 0x00400000
)

// PageSize is the fixed x86 page size used throughout pmm and mmu.
const PageSize uintptr = 4096

// KernelStackSize is the fixed size of every task's kernel stack. A larger
// configurable stack size is an open item in the upstream design.
const KernelStackSize uintptr = PageSize
