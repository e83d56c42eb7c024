package gdt

// loadGDT issues LGDT against a descriptor built from base/limit. It does
// not reload CS.
func loadGDT(base *entry, limit uint16)

// reloadSegments reloads DS/ES/FS/GS/SS with dataSel. CS is not reloaded:
// codeSel is accepted but unused, so CS keeps the selector it held before
// the call.
func reloadSegments(codeSel, dataSel uint16)

// loadTaskRegister issues LTR with the given TSS selector.
func loadTaskRegister(sel uint16)
