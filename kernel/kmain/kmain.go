// Package kmain is the only Go symbol the entry trampoline calls into. It
// sequences every subsystem's bring-up in the fixed order the rest of the
// kernel depends on and never returns. Grounded on the teacher's own
// kmain.Kmain, generalized from its allocator/vmm/goruntime bring-up list
// to this kernel's HAL/GDT/IDT/timer/PMM/MMU/task/scheduler/syscall
// sequence.
package kmain

import (
	"kernel"
	"kernel/console"
	"kernel/gdt"
	"kernel/hal"
	"kernel/idt"
	"kernel/kfmt"
	"kernel/layout"
	"kernel/mmu"
	"kernel/multiboot"
	"kernel/pmm"
	"kernel/sched"
	"kernel/syscall"
	"kernel/task"
	"kernel/timer"
)

var (
	errInitKernelAS = &kernel.Error{Module: "mmu", Message: "InitKernelAddressSpace failed"}
	errTaskInit     = &kernel.Error{Module: "task", Message: "Init failed"}
	errSchedInit    = &kernel.Error{Module: "sched", Message: "Init failed"}
)

// timerFrequencyHz is the PIT tick rate the scheduler's round-robin
// quantum is built on.
const timerFrequencyHz = 1000

// testTaskCount/testTaskPriority ground spec scenario S4: three threads
// at DefaultPriority plus one at a higher priority, so round-robin and
// priority preemption both have something to exercise at boot.
const (
	testTaskCount    = 3
	testTaskPriority = sched.DefaultPriority
	highPriorityTask = 200
)

// Kmain is invoked by the entry trampoline after it has built a minimal
// stack and jumped into Go code. multibootInfoPtr, kernelStart and
// kernelEnd come straight from the boot loader's handoff; magic is the
// EAX value the loader left identifying multiboot-1 compliance.
//
// Kmain is not expected to return; if every subsystem comes up cleanly it
// ends in an infinite yield/halt loop. Any bring-up step that fails calls
// kernel.Panic instead of returning an error up the stack, the same way a
// returning Kmain was a fatal condition in the teacher.
//
//go:noinline
func Kmain(magic uint32, multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	vga := console.NewVGA()
	vga.Clear()
	kfmt.SetSink(console.Writer(vga))

	kfmt.Printf("kernel32: booting\n")

	hal.Init()
	gdt.Init()
	idt.Init()
	kfmt.Printf("hal: GDT and IDT installed\n")

	timer.Init(timerFrequencyHz)
	timer.SetTickHook(func() {
		if sched.Tick() {
			idt.RequestReschedule()
		}
	})
	kfmt.Printf("timer: %d Hz, TSC calibrated at %d Hz\n", timerFrequencyHz, timer.TSCFreqHz())

	mi := multiboot.Parse(magic, multibootInfoPtr)
	if mi.UsesFallback() {
		kfmt.Printf("multiboot: no valid info structure, using fallback memory map\n")
	}

	pmm.Init(mi, kernelStart, kernelEnd)
	pmm.PrintMap(mi)

	kas, code := mmu.InitKernelAddressSpace()
	if code != 0 {
		kernel.Panic(errInitKernelAS)
	}
	mmu.SwitchTo(kas)
	kfmt.Printf("mmu: kernel address space loaded into CR3 (CR0 paging bit not set)\n")

	idle, code := task.Init()
	if code != 0 {
		kernel.Panic(errTaskInit)
	}
	kfmt.Printf("task: idle task ready (id %d)\n", idle.ID)

	if code := sched.Init(idle); code != 0 {
		kernel.Panic(errSchedInit)
	}
	idt.SetRescheduleHook(sched.Schedule)

	syscall.Init()
	kfmt.Printf("syscall: INT 0x80 gate installed\n")

	spawnTestTasks()
	runKernelTests()

	kfmt.Printf("kernel32: entering scheduler\n")
	hal.EnableInterrupts()

	for {
		task.Yield()
		hal.Halt()
	}
}

// spawnTestTasks creates the scenario-S4 population: three kernel threads
// at the default priority and one above it, all spinning on task.Yield so
// the scheduler's round-robin and preemption behavior has ready work to
// exercise immediately at boot.
func spawnTestTasks() {
	for i := 0; i < testTaskCount; i++ {
		t, code := task.CreateKernelThread("worker", spinAndYield, 0, testTaskPriority, layout.KernelStackSize)
		if code != 0 {
			kfmt.Printf("kmain: failed to create worker task: %d\n", int32(code))
			continue
		}
		sched.Enqueue(t)
	}

	t, code := task.CreateKernelThread("priority-worker", spinAndYield, 0, highPriorityTask, layout.KernelStackSize)
	if code != 0 {
		kfmt.Printf("kmain: failed to create priority worker task: %d\n", int32(code))
		return
	}
	sched.Enqueue(t)
}

func spinAndYield(arg uintptr) {
	for {
		task.Yield()
	}
}
