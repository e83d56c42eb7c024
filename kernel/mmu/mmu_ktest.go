//go:build ktest

package mmu

import (
	"kernel/ktest"
	"kernel/pmm"
)

// Grounded on spec scenario S6: a single map+unmap pair against a fresh
// address space must cost at most one net PMM frame (the page table,
// which Unmap deliberately leaves allocated) and must leave the mapping
// gone afterward.
func init() {
	ktest.Register("mmu", "map_unmap_nets_one_frame", func() ktest.Result {
		phys, code := pmm.Alloc()
		if code != 0 {
			return ktest.Fail
		}
		defer pmm.Free(phys)

		as, code := CreateAddressSpace()
		if code != 0 {
			return ktest.Fail
		}
		defer DestroyAddressSpace(as)

		before := pmm.GetStats().FreeFrames

		const virt = 0x00400000
		if code := Map(as, phys.Address(), virt, FlagPresent|FlagWritable); code != 0 {
			return ktest.Fail
		}
		afterMap := pmm.GetStats().FreeFrames
		if before-afterMap != 1 {
			return ktest.Fail
		}

		Unmap(as, virt)
		afterUnmap := pmm.GetStats().FreeFrames
		if afterUnmap != afterMap {
			return ktest.Fail
		}

		return ktest.Pass
	})

	ktest.Register("mmu", "unmapped_region_has_no_translation", func() ktest.Result {
		as, code := CreateAddressSpace()
		if code != 0 {
			return ktest.Fail
		}
		defer DestroyAddressSpace(as)

		const virt = 0x00800000
		pd := tableAtFn(as.pdPhys)
		if pd[pdIndex(virt)]&pdePresent != 0 {
			return ktest.Fail
		}
		return ktest.Pass
	})
}
