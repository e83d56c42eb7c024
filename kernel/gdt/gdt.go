// Package gdt builds the flat-memory-model Global Descriptor Table: a
// null descriptor, ring-0 code/data segments, ring-3 code/data segments
// and a TSS, matching the selector layout fixed by package layout. It
// mirrors the structuring of the teacher's gate/irq packages — a plain
// Go struct description of hardware state, loaded via a handful of
// assembly-backed primitives — generalized from amd64 interrupt gates to
// i386 segment descriptors.
package gdt

import (
	"unsafe"

	"kernel/layout"
)

// access byte bits (Intel SDM 3.4.5).
const (
	accessPresent     = 1 << 7
	accessDPL3        = 3 << 5
	accessDescType    = 1 << 4 // 1 = code/data, 0 = system
	accessExecutable  = 1 << 3
	accessDirConform  = 1 << 2 // direction (data) / conforming (code)
	accessReadWrite   = 1 << 1
	accessTSSAvail32  = 0x9 // 32-bit TSS (available) system-segment type
	flagGranularity4K = 1 << 3
	flagSize32        = 1 << 2
)

// entry is the on-the-wire 8-byte GDT descriptor format.
type entry struct {
	limitLow  uint16
	baseLow   uint16
	baseMid   uint8
	access    uint8
	flagsLim  uint8 // high nibble: flags, low nibble: limit bits 16-19
	baseHigh  uint8
}

func makeEntry(base uint32, limit uint32, access, flags uint8) entry {
	return entry{
		limitLow: uint16(limit & 0xFFFF),
		baseLow:  uint16(base & 0xFFFF),
		baseMid:  uint8((base >> 16) & 0xFF),
		access:   access,
		flagsLim: (flags << 4) | uint8((limit>>16)&0x0F),
		baseHigh: uint8((base >> 24) & 0xFF),
	}
}

// TSS is the 32-bit Task State Segment. Only the fields the kernel actually
// uses (ss0/esp0, for ring-3 -> ring-0 stack switches) are ever written;
// the rest stay zero since hardware task-switching is never used.
type TSS struct {
	prevTask uint32
	esp0     uint32
	ss0      uint32
	_        [23]uint32 // esp1..io map base, unused
}

var (
	entries [layout.GDTEntries]entry
	tss     TSS
)

// table builds the six descriptors described in package layout: null,
// kernel code (DPL 0, 4 GiB limit, 4 KiB granularity), kernel data (DPL 0,
// writable), user code (DPL 3), user data (DPL 3), and the TSS descriptor
// (system type, DPL 0).
func table() [layout.GDTEntries]entry {
	var t [layout.GDTEntries]entry

	t[0] = entry{} // null descriptor

	codeFlags := uint8(flagGranularity4K | flagSize32)
	dataFlags := codeFlags

	t[1] = makeEntry(0, 0xFFFFF,
		accessPresent|accessDescType|accessExecutable|accessReadWrite, codeFlags)
	t[2] = makeEntry(0, 0xFFFFF,
		accessPresent|accessDescType|accessReadWrite, dataFlags)
	t[3] = makeEntry(0, 0xFFFFF,
		accessPresent|accessDPL3|accessDescType|accessExecutable|accessReadWrite, codeFlags)
	t[4] = makeEntry(0, 0xFFFFF,
		accessPresent|accessDPL3|accessDescType|accessReadWrite, dataFlags)

	tssBase := uint32(uintptr(unsafe.Pointer(&tss)))
	tssLimit := uint32(unsafe.Sizeof(tss) - 1)
	t[5] = makeEntry(tssBase, tssLimit, accessPresent|accessTSSAvail32, 0)

	return t
}

// Init builds the GDT, loads it with LGDT and reloads every segment
// register plus the task register. It must run before the IDT is built,
// since exception/IRQ gates reference SelectorKernelCode.
func Init() {
	entries = table()
	loadGDT(&entries[0], uint16(len(entries)*8-1))
	reloadSegments(layout.SelectorKernelCode, layout.SelectorKernelData)
	loadTaskRegister(layout.SelectorTSS)
}

// SetKernelStack rewrites the TSS's ring-0 stack pointer. context_switch
// must call this before resuming any task that might re-enter the kernel
// via the INT 0x80 gate or a hardware interrupt while at ring 3; otherwise
// the next ring transition pushes its frame onto the previous task's
// stack.
func SetKernelStack(esp0 uintptr) {
	tss.esp0 = uint32(esp0)
	tss.ss0 = uint32(layout.SelectorKernelData)
}

