package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"
)

func TestMirrorEmitsOneTimestampedLinePerNewline(t *testing.T) {
	r, w := io.Pipe()
	go func() {
		w.Write([]byte("kernel32: booting\n"))
		w.Write([]byte("hal: GDT and IDT installed\n"))
		w.Close()
	}()

	var out bytes.Buffer
	mirror(&out, r)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 mirrored lines; got %d (%q)", len(lines), out.String())
	}
	for i, want := range []string{"kernel32: booting", "hal: GDT and IDT installed"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("line %d: expected suffix %q; got %q", i, want, lines[i])
		}
		if !strings.HasPrefix(lines[i], "[") {
			t.Errorf("line %d: expected a timestamp prefix; got %q", i, lines[i])
		}
	}
}

func TestMirrorStopsCleanlyOnEOF(t *testing.T) {
	r, w := io.Pipe()
	w.Close()

	done := make(chan struct{})
	go func() {
		var out bytes.Buffer
		mirror(&out, r)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mirror did not return after the source closed")
	}
}

func TestMirrorBuffersPartialLineUntilNewline(t *testing.T) {
	r, w := io.Pipe()
	go func() {
		w.Write([]byte("partial"))
		w.Write([]byte(" line\n"))
		w.Close()
	}()

	var out bytes.Buffer
	mirror(&out, r)

	if !strings.Contains(out.String(), "partial line") {
		t.Fatalf("expected the split writes to join into one line; got %q", out.String())
	}
}
