// Package multiboot parses the fixed-field multiboot-1 info structure a
// compliant loader hands off in EBX at kernel entry. It plays the same
// role as the teacher's hal/multiboot package but targets the simpler
// multiboot-1 ABI (fixed struct offsets) rather than multiboot2's
// tag-stream format, since that is what this kernel's boot contract uses.
package multiboot

import "unsafe"

// ExpectedMagic is the value the bootloader must leave in EAX; kmain
// passes it straight through from the entry trampoline.
const ExpectedMagic uint32 = 0x2BADB002

// Flag bits in info.flags indicating which optional fields are valid.
const (
	flagMem    = 1 << 0
	flagMemMap = 1 << 6
)

// info mirrors the subset of the multiboot-1 information structure this
// kernel reads: presence flags, the BIOS-reported lower/upper memory
// sizes, and the memory map length/address pair.
type info struct {
	flags      uint32
	memLower   uint32
	memUpper   uint32
	bootDevice uint32
	cmdline    uint32
	modsCount  uint32
	modsAddr   uint32
	_          [4]uint32 // syms union, unused
	mmapLength uint32
	mmapAddr   uint32
}

// mmapEntryHeader is the fixed layout of one memory-map entry. size does
// not include itself, so the stride between successive entries is
// size+4.
type mmapEntryHeader struct {
	size uint32
	addr uint64
	length uint64
	typ  uint32
}

// EntryType classifies a memory-map region.
type EntryType uint32

const (
	Available      EntryType = 1
	Reserved       EntryType = 2
	ACPIReclaimable EntryType = 3
	ACPINVS        EntryType = 4
	Bad            EntryType = 5
)

func (t EntryType) String() string {
	switch t {
	case Available:
		return "available"
	case Reserved:
		return "reserved"
	case ACPIReclaimable:
		return "ACPI (reclaimable)"
	case ACPINVS:
		return "ACPI NVS"
	case Bad:
		return "bad"
	default:
		return "unknown"
	}
}

// Entry describes one memory-map region.
type Entry struct {
	Addr   uint64
	Length uint64
	Type   EntryType
}

// fallbackMemBytes is what the PMM is told to assume when the loader's
// magic doesn't match or it didn't provide a memory map: 128 MiB starting
// at physical address 0.
const fallbackMemBytes = 128 * 1024 * 1024

// MemRegionVisitor is called once per memory-map entry by VisitMemRegions.
// Returning false stops the scan early.
type MemRegionVisitor func(Entry) bool

// Info holds the parsed result of Parse: whether a valid boot info
// structure was found and, if so, where it lives. The fallback region is
// not stored here; VisitMemRegions synthesizes it when needed.
type Info struct {
	Valid bool
	ptr   uintptr
}

// Parse validates magic and locates the multiboot info structure at
// infoAddr. If magic doesn't match ExpectedMagic, Valid is false and
// VisitMemRegions will synthesize a single fallback entry instead of
// reading any further pointers — infoAddr is untrusted in that case and is
// never dereferenced.
func Parse(magic uint32, infoAddr uintptr) Info {
	if magic != ExpectedMagic {
		return Info{Valid: false}
	}
	return Info{Valid: true, ptr: infoAddr}
}

// VisitMemRegions invokes visitor once per memory-map entry. If the boot
// info was invalid, or the loader didn't set flagMemMap, it invokes
// visitor exactly once with the 128 MiB fallback region and logs nothing
// itself — the caller is expected to warn, since multiboot has no logging
// dependency of its own.
func (mi Info) VisitMemRegions(visitor MemRegionVisitor) {
	if !mi.Valid {
		visitor(Entry{Addr: 0, Length: fallbackMemBytes, Type: Available})
		return
	}

	hdr := (*info)(unsafe.Pointer(mi.ptr))
	if hdr.flags&flagMemMap == 0 {
		visitor(Entry{Addr: 0, Length: fallbackMemBytes, Type: Available})
		return
	}

	cur := uintptr(hdr.mmapAddr)
	end := cur + uintptr(hdr.mmapLength)
	for cur < end {
		e := (*mmapEntryHeader)(unsafe.Pointer(cur))
		typ := EntryType(e.typ)
		if typ < Available || typ > Bad {
			typ = Reserved
		}
		if !visitor(Entry{Addr: e.addr, Length: e.length, Type: typ}) {
			return
		}
		cur += uintptr(e.size) + 4
	}
}

// UsesFallback reports whether VisitMemRegions will synthesize the 128 MiB
// fallback region rather than reading the loader-provided map.
func (mi Info) UsesFallback() bool {
	if !mi.Valid {
		return true
	}
	hdr := (*info)(unsafe.Pointer(mi.ptr))
	return hdr.flags&flagMemMap == 0
}
