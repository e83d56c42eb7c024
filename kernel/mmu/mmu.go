// Package mmu implements x86 two-level paging: a page directory of 1024
// entries, each covering 4 MiB via a page table of 1024 4 KiB entries.
// It is grounded directly on the original arch/x86/mmu.c's direct-index
// model (PD_INDEX/PT_INDEX, lazy page-table allocation on first map) in
// preference to the teacher's amd64 four-level recursive-mapping scheme,
// since a flat 32-bit two-level table needs none of that indirection.
package mmu

import (
	"unsafe"

	"kernel/kerr"
	"kernel/layout"
	"kernel/pmm"
)

const entriesPerTable = 1024

// Flag is a generic (architecture-neutral) page-mapping permission,
// matching the HAL_PAGE_* bits in the original header.
type Flag uint32

const (
	FlagPresent  Flag = 1 << 0
	FlagWritable Flag = 1 << 1
	FlagUser     Flag = 1 << 2
	FlagNoCache  Flag = 1 << 3

	// FlagExecutable is a no-op on 32-bit x86: there is no NX bit without
	// PAE, so every present page is already executable. Callers can still
	// express the documented flag set; flagsToX86 just never looks at it.
	FlagExecutable Flag = 1 << 4
)

// x86 page directory/table entry bits.
const (
	pdePresent  = 1 << 0
	pdeWritable = 1 << 1
	pdeUser     = 1 << 2

	ptePresent  = 1 << 0
	pteWritable = 1 << 1
	pteUser     = 1 << 2
	pteNoCache  = 1 << 4
)

func flagsToX86(f Flag) uint32 {
	var x uint32
	if f&FlagPresent != 0 {
		x |= ptePresent
	}
	if f&FlagWritable != 0 {
		x |= pteWritable
	}
	if f&FlagUser != 0 {
		x |= pteUser
	}
	if f&FlagNoCache != 0 {
		x |= pteNoCache
	}
	return x
}

func pdIndex(virt uintptr) uintptr { return (virt >> 22) & 0x3FF }
func ptIndex(virt uintptr) uintptr { return (virt >> 12) & 0x3FF }
func pageFrame(entry uint32) uintptr { return uintptr(entry &^ 0xFFF) }

// AddressSpace is a single page directory plus the physical address CR3
// must be loaded with to activate it. Low memory is identity-mapped, so
// the page directory's own virtual and physical addresses coincide.
type AddressSpace struct {
	pdPhys uintptr
}

// tableAtFn resolves a physical address to the page table/directory
// living there. It is a package-level function variable (rather than a
// direct unsafe cast everywhere) so tests can redirect it at a real
// Go-allocated array instead of dereferencing raw physical memory, the
// same seam the teacher's vmm tests use for activePDTFn/mapTemporaryFn.
var tableAtFn = tableAt

func tableAt(phys uintptr) *[entriesPerTable]uint32 {
	return (*[entriesPerTable]uint32)(unsafe.Pointer(phys))
}

// CreateAddressSpace allocates and zeroes a fresh page directory.
func CreateAddressSpace() (*AddressSpace, kerr.Code) {
	if !pmm.Initialized() {
		return nil, kerr.InvalidArgument
	}

	frame, code := pmm.Alloc()
	if code != 0 {
		return nil, code
	}

	pd := tableAtFn(frame.Address())
	for i := range pd {
		pd[i] = 0
	}

	return &AddressSpace{pdPhys: frame.Address()}, 0
}

// DestroyAddressSpace frees every page table the directory references,
// then the directory itself. O(number of page tables) — not meant for a
// real-time path, only process teardown.
func DestroyAddressSpace(as *AddressSpace) {
	if as == nil {
		return
	}

	pd := tableAtFn(as.pdPhys)
	for i := range pd {
		if pd[i]&pdePresent != 0 {
			pmm.Free(pmm.FrameForAddress(pageFrame(pd[i])))
		}
	}
	pmm.Free(pmm.FrameForAddress(as.pdPhys))
}

// Map installs a mapping from virt to phys with the given permissions,
// allocating a page table on first use in this 4 MiB region. Both
// addresses must be page-aligned. O(1): direct two-level indexing, at
// most one page-table allocation.
func Map(as *AddressSpace, phys, virt uintptr, flags Flag) kerr.Code {
	if as == nil {
		return kerr.InvalidArgument
	}
	if phys&(layout.PageSize-1) != 0 || virt&(layout.PageSize-1) != 0 {
		return kerr.InvalidArgument
	}

	pd := tableAtFn(as.pdPhys)
	pdi, pti := pdIndex(virt), ptIndex(virt)

	if pd[pdi]&pdePresent == 0 {
		ptFrame, code := pmm.Alloc()
		if code != 0 {
			return code
		}
		pt := tableAtFn(ptFrame.Address())
		for i := range pt {
			pt[i] = 0
		}
		pd[pdi] = uint32(ptFrame.Address()) | pdePresent | pdeWritable | pdeUser
	}

	pt := tableAtFn(pageFrame(pd[pdi]))
	pt[pti] = uint32(phys) | flagsToX86(flags)

	flushTLBSingleFn(virt)
	return 0
}

// Unmap clears whatever mapping covers virt, if any, and invalidates its
// TLB entry. The underlying page table is left allocated — freeing empty
// page tables is not implemented, matching the boot-sequence scenario
// that expects net PMM allocation from a map+unmap pair to be exactly one
// frame (the page table, which outlives the unmap).
func Unmap(as *AddressSpace, virt uintptr) {
	if as == nil || virt&(layout.PageSize-1) != 0 {
		return
	}

	pd := tableAtFn(as.pdPhys)
	pdi, pti := pdIndex(virt), ptIndex(virt)

	if pd[pdi]&pdePresent == 0 {
		return
	}

	pt := tableAtFn(pageFrame(pd[pdi]))
	pt[pti] = 0
	flushTLBSingleFn(virt)
}

// kernelAS is the address space every kernel-only task (including idle)
// runs in, built once at bring-up by InitKernelAddressSpace. There is no
// per-CPU "current address space" register to read on this single-CPU
// core, so, like the original's mmu_get_current_address_space stub, a
// package-level pointer stands in for it; task.Current()'s address space
// field is the actual source of truth once tasks exist.
var kernelAS *AddressSpace

// InitKernelAddressSpace builds the kernel's own address space and
// identity-maps the low 16 MiB into it (skipping the NULL page), per the
// bring-up order spec: paging must never be enabled before this mapping
// is in place and loaded into CR3.
func InitKernelAddressSpace() (*AddressSpace, kerr.Code) {
	as, code := CreateAddressSpace()
	if code != 0 {
		return nil, code
	}

	const identityMapLimit = 16 * 1024 * 1024
	for addr := layout.PageSize; addr < identityMapLimit; addr += layout.PageSize {
		if code := Map(as, addr, addr, FlagPresent|FlagWritable); code != 0 {
			return nil, code
		}
	}

	kernelAS = as
	return as, 0
}

// KernelAddressSpace returns the address space built by
// InitKernelAddressSpace, or nil before bring-up reaches that point.
func KernelAddressSpace() *AddressSpace { return kernelAS }

// SwitchTo loads CR3 with as's page directory, activating it.
func SwitchTo(as *AddressSpace) {
	if as == nil {
		return
	}
	loadCR3Fn(uint32(as.pdPhys))
}

// loadCR3Fn and flushTLBSingleFn are swappable the same way tableAtFn is,
// so tests never execute MOV-to-CR3 or INVLPG on the test host.
var loadCR3Fn = loadCR3
var flushTLBSingleFn = flushTLBSingle

func flushTLBSingle(virt uintptr) { invlpg(uint32(virt)) }

// loadCR3 and invlpg are implemented in asm_386.s; see package hal for
// the same declared-only-function convention.
func loadCR3(pdPhys uint32)
func invlpg(virt uint32)
