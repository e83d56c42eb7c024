package console

import "unsafe"

// vgaBufferPtr returns a pointer to the fixed physical-memory window the
// VGA text-mode framebuffer lives at. Identity-mapped low memory means the
// physical and linear addresses coincide here.
func vgaBufferPtr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(vgaMemory))
}
