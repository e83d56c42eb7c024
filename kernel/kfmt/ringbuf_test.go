package kfmt

import (
	"io"
	"testing"
)

func TestRingBufferWriteRead(t *testing.T) {
	var rb ringBuffer

	n, err := rb.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("unexpected write result: %d, %v", n, err)
	}

	got := make([]byte, 5)
	n, err = rb.Read(got)
	if err != nil || n != 5 || string(got) != "hello" {
		t.Fatalf("unexpected read result: %d, %q, %v", n, got, err)
	}

	if _, err = rb.Read(got); err != io.EOF {
		t.Fatalf("expected io.EOF on empty buffer; got %v", err)
	}
}

func TestRingBufferWrapsWhenFull(t *testing.T) {
	var rb ringBuffer

	filler := make([]byte, ringBufferSize)
	for i := range filler {
		filler[i] = 'a'
	}
	rb.Write(filler)

	// Writing past capacity should overwrite the oldest bytes rather
	// than grow or block.
	rb.Write([]byte("bb"))

	out := make([]byte, ringBufferSize)
	n, _ := rb.Read(out)
	if n == 0 {
		t.Fatal("expected to read back buffered contents after wraparound")
	}
}
