package pmm

import (
	"bytes"
	"testing"

	"kernel/kerr"
	"kernel/kfmt"
	"kernel/multiboot"
)

func resetState(t *testing.T) {
	t.Helper()
	for i := range bitmap {
		bitmap[i] = 0
	}
	totalFrames, freeFrames, reservedFrames = 0, 0, 0
	initialized = false
}

// TestAllocFirstFrameSkipsReservedNullPage drives Init through the public
// multiboot.Info returned by Parse with an intentionally bad magic, so Init
// sees the 128 MiB fallback region, then checks that the first Alloc skips
// the reserved NULL page and returns frame 1.
func TestAllocFirstFrameSkipsReservedNullPage(t *testing.T) {
	resetState(t)

	mi := multiboot.Parse(0xbad, 0) // forces the 128 MiB fallback region
	Init(mi, 0x100000, 0x108000)    // pretend kernel image is 32 KiB at 1 MiB

	f, code := Alloc()
	if code != 0 {
		t.Fatalf("expected successful alloc; got code %v", code)
	}
	if f != 1 {
		t.Fatalf("expected first alloc to return frame 1 (NULL page reserved); got frame %d (addr %#x)", f, f.Address())
	}
	if f.Address() != 0x1000 {
		t.Fatalf("expected frame 1 to map to address 0x1000; got %#x", f.Address())
	}
}

func TestFrameAddressRoundTrip(t *testing.T) {
	f := Frame(33)
	if f.Address() != 0x21000 {
		t.Fatalf("expected frame 33 to map to 0x21000; got %#x", f.Address())
	}
	if FrameForAddress(f.Address()) != f {
		t.Fatalf("expected FrameForAddress to invert Address")
	}
}

func TestAllocExhaustion(t *testing.T) {
	resetState(t)

	mi := multiboot.Parse(0xbad, 0)
	Init(mi, 0x100000, 0x100000+4096)

	for {
		_, code := Alloc()
		if code == kerr.ResourceExhausted {
			break
		}
		if code != 0 {
			t.Fatalf("unexpected error code during drain: %v", code)
		}
	}

	if _, code := Alloc(); code != kerr.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted on further alloc; got %v", code)
	}
}

func TestFreeThenReallocReturnsSameFrame(t *testing.T) {
	resetState(t)
	mi := multiboot.Parse(0xbad, 0)
	Init(mi, 0x100000, 0x100000+4096)

	f, _ := Alloc()
	if code := Free(f); code != 0 {
		t.Fatalf("unexpected error freeing frame: %v", code)
	}

	f2, _ := Alloc()
	if f2 != f {
		t.Fatalf("expected reallocation to return the freed frame %d; got %d", f, f2)
	}
}

func TestDoubleFreeReturnsBusy(t *testing.T) {
	resetState(t)
	mi := multiboot.Parse(0xbad, 0)
	Init(mi, 0x100000, 0x100000+4096)

	f, _ := Alloc()
	Free(f)
	if code := Free(f); code != kerr.Busy {
		t.Fatalf("expected Busy on double free; got %v", code)
	}
}

func TestReserveRegionMarksFramesUnavailable(t *testing.T) {
	resetState(t)
	mi := multiboot.Parse(0xbad, 0)
	Init(mi, 0x100000, 0x100000+4096)

	before := GetStats().FreeFrames
	ReserveRegion(0x10000, 4096)
	after := GetStats().FreeFrames

	if after != before-1 {
		t.Fatalf("expected reserving one frame to drop FreeFrames by 1; before=%d after=%d", before, after)
	}
}

func TestPrintMapReportsFallbackRegionAndCounts(t *testing.T) {
	resetState(t)
	mi := multiboot.Parse(0xbad, 0)
	Init(mi, 0x100000, 0x100000+4096)

	var buf bytes.Buffer
	defer kfmt.SetSink(kfmt.Sink())
	kfmt.SetSink(&buf)

	PrintMap(mi)

	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("available")) {
		t.Fatalf("expected the fallback region to print as available; got %q", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte("total frames")) {
		t.Fatalf("expected a frame-count summary line; got %q", out)
	}
}
