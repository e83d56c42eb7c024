package gdt

import "testing"

func TestTableEntryCount(t *testing.T) {
	tbl := table()
	if len(tbl) != 6 {
		t.Fatalf("expected 6 descriptors; got %d", len(tbl))
	}
}

func TestNullDescriptorIsZero(t *testing.T) {
	tbl := table()
	if tbl[0] != (entry{}) {
		t.Fatalf("expected null descriptor to be all-zero; got %+v", tbl[0])
	}
}

func TestKernelCodeDescriptorIsRing0Executable(t *testing.T) {
	tbl := table()
	d := tbl[1]
	if d.access&accessDPL3 != 0 {
		t.Fatal("expected kernel code descriptor to have DPL 0")
	}
	if d.access&accessExecutable == 0 {
		t.Fatal("expected kernel code descriptor to be executable")
	}
	if d.access&accessPresent == 0 {
		t.Fatal("expected kernel code descriptor to be present")
	}
}

func TestUserDescriptorsHaveDPL3(t *testing.T) {
	tbl := table()
	for _, idx := range []int{3, 4} {
		if tbl[idx].access&accessDPL3 != accessDPL3 {
			t.Fatalf("expected entry %d to have DPL 3; access=%#x", idx, tbl[idx].access)
		}
	}
}

func TestUserDataDescriptorIsNotExecutable(t *testing.T) {
	tbl := table()
	if tbl[4].access&accessExecutable != 0 {
		t.Fatal("expected user data descriptor to not be executable")
	}
}

func TestTSSDescriptorIsSystemType(t *testing.T) {
	tbl := table()
	d := tbl[5]
	if d.access&accessDescType != 0 {
		t.Fatal("expected TSS descriptor to be a system segment (descType bit clear)")
	}
	if d.access&0x0F != accessTSSAvail32 {
		t.Fatalf("expected TSS type nibble %#x; got %#x", accessTSSAvail32, d.access&0x0F)
	}
}

func TestSetKernelStackUpdatesTSS(t *testing.T) {
	SetKernelStack(0xABCD1000)
	if tss.esp0 != 0xABCD1000 {
		t.Fatalf("expected tss.esp0 to be updated; got %#x", tss.esp0)
	}
}
