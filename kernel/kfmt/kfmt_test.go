package kfmt

import (
	"bytes"
	"testing"
)

func TestPrintfVerbs(t *testing.T) {
	var buf bytes.Buffer
	defer func() { sink = nil }()

	specs := []struct {
		fn  func()
		exp string
	}{
		{func() { Fprintf(&buf, "no args") }, "no args"},
		{func() { Fprintf(&buf, "%t", true) }, "true"},
		{func() { Fprintf(&buf, "%t", false) }, "false"},
		{func() { Fprintf(&buf, "%s arg", "STRING") }, "STRING arg"},
		{func() { Fprintf(&buf, "%s arg", []byte("BYTES")) }, "BYTES arg"},
		{func() { Fprintf(&buf, "'%4s'", "AB") }, "'  AB'"},
		{func() { Fprintf(&buf, "uint: %d", uint8(10)) }, "uint: 10"},
		{func() { Fprintf(&buf, "uint: %o", uint16(0777)) }, "uint: 777"},
		{func() { Fprintf(&buf, "uint: %x", uint32(0xbadf00d)) }, "uint: badf00d"},
		{func() { Fprintf(&buf, "int: %d", -10) }, "int: -10"},
		{func() { Fprintf(&buf, "%08x", uint32(0xf0)) }, "000000f0"},
		{func() { Fprintf(&buf, "missing %d") }, "missing (MISSING)"},
		{func() { Fprintf(&buf, "extra", 1) }, "extra%!(EXTRA)"},
		{func() { Fprintf(&buf, "%z") }, "%!(NOVERB)"},
		{func() { Fprintf(&buf, "%s", 3.14) }, "%!(WRONGTYPE)"},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()
		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestPrintfBuffersBeforeSinkAttached(t *testing.T) {
	defer func() { sink = nil; preConsole = ringBuffer{} }()

	sink = nil
	Printf("buffered")

	var out bytes.Buffer
	SetSink(&out)
	if got := out.String(); got != "buffered" {
		t.Fatalf("expected pre-console buffer to flush to new sink; got %q", got)
	}

	Printf(" live")
	if got := out.String(); got != "buffered live" {
		t.Fatalf("expected live writes after SetSink; got %q", got)
	}
}
