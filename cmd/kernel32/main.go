// Command kernel32 is the trampoline the boot loader's rt0 stub jumps
// into once a minimal stack is set up. It exists only to call
// kmain.Kmain without the compiler optimizing the call away: main is
// the single Go symbol the assembly entry point invokes directly, so it
// can never look like dead code to the linker. Grounded on the teacher's
// own stub.go/boot.go trampoline mains.
package main

import "kernel/kmain"

// multibootMagic and multibootInfoPtr are package-level so the compiler
// can't prove Kmain's arguments are always zero and fold the call away;
// the real values are patched in by the assembly entry point before
// jumping here, the same trick the teacher's stub.go plays with its own
// multibootInfoPtr global.
var (
	multibootMagic   uint32
	multibootInfoPtr uintptr
	kernelStart      uintptr
	kernelEnd        uintptr
)

func main() {
	kmain.Kmain(multibootMagic, multibootInfoPtr, kernelStart, kernelEnd)
}
