package hal

// The functions below have no Go body: they are implemented in asm_386.s.
// This mirrors how the teacher's cpu package declares CPUID and friends —
// a thin Go-visible signature backed by a handful of instructions that Go
// cannot express directly.

// cli disables interrupts (CLI).
func cli()

// sti enables interrupts (STI).
func sti()

// halt executes HLT, suspending the CPU until the next interrupt.
func halt()

// flagsInterruptsEnabled reports whether EFLAGS.IF was set at the time of
// the call (PUSHF, test bit 9, POPF to restore).
func flagsInterruptsEnabled() bool

// inb reads a byte from the given I/O port.
func inb(port uint16) uint8

// outb writes a byte to the given I/O port.
func outb(port uint16, value uint8)

// inw reads a 16-bit word from the given I/O port.
func inw(port uint16) uint16

// outw writes a 16-bit word to the given I/O port.
func outw(port uint16, value uint16)

// inl reads a 32-bit long from the given I/O port.
func inl(port uint16) uint32

// outl writes a 32-bit long to the given I/O port.
func outl(port uint16, value uint32)

// rdtsc returns the 64-bit timestamp counter (RDTSC, EDX:EAX combined).
func rdtsc() uint64
