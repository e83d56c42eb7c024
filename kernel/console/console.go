// Package console implements the boundary collaborators spec.md §2 keeps
// outside the core: a VGA text-mode sink and a 16550 UART sink. The core
// never imports this package directly — it only ever sees the one-method
// Sink interface, passed in by kmain during bring-up — matching gopheros's
// split between kernel/hal (consumer of an interface) and
// kernel/driver/video/console (the concrete implementation).
package console

import "io"

// Sink is the single capability the core consumes from any console
// implementation: the ability to emit a byte. Writer wraps a Sink in an
// io.Writer adapter, which is what kfmt.SetSink takes.
type Sink interface {
	PutChar(c byte)
}

// sinkWriter adapts a Sink to io.Writer so it can be passed to kfmt.SetSink.
type sinkWriter struct{ Sink }

// Write implements io.Writer by emitting each byte through the Sink.
func (w sinkWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		w.PutChar(b)
	}
	return len(p), nil
}

// Writer wraps a Sink as an io.Writer.
func Writer(s Sink) io.Writer {
	return sinkWriter{s}
}
