// Package timer programs the 8254 PIT and calibrates the TSC against it,
// grounded on the original arch/x86/timer.c driver. The PIT supplies a
// periodic IRQ 0 at a chosen rate; the TSC supplies a free-running cycle
// counter whose frequency this package measures once at boot so later
// reads can be converted to microseconds in O(1).
package timer

import (
	"kernel/hal"
	"kernel/idt"
	"kernel/layout"
)

// pitInputHz is the fixed input frequency of the 8254's channel 0 clock.
const pitInputHz = 1193182

const (
	pitChannel0Data = 0x40
	pitCommand      = 0x43

	// Channel 0, access lo/hi byte, mode 2 (rate generator), binary count.
	pitCmdRateGenerator = 0x34
	// Channel 0, latch command (mode/access bits zero).
	pitCmdLatch = 0x00
)

var (
	ticks     uint64
	tscFreqHz uint64
	tickHook  func()
)

// Swappable seams so tests never touch real I/O ports, the TSC, or the
// interrupt-enable flag; mirrors the tableAtFn convention in package mmu.
var (
	outbFn              = hal.Outb
	inbFn               = hal.Inb
	readTSCFn           = hal.ReadTSC
	disableInterruptsFn = hal.DisableInterrupts
	restoreInterruptsFn = hal.RestoreInterrupts
	registerHandlerFn   = hal.RegisterHandler
	unmaskIRQFn         = idt.UnmaskIRQ
)

// divisorFor computes the 16-bit PIT reload value for freqHz, clamped to
// the range a 16-bit counter can hold. A divisor of 0 means 65536 to the
// hardware; this driver never requests one (the clamp below never lets
// freqHz request a computed divisor of 0 either).
func divisorFor(freqHz uint32) uint16 {
	if freqHz == 0 {
		return 0xFFFF
	}
	d := uint64(pitInputHz) / uint64(freqHz)
	if d == 0 {
		d = 1
	}
	if d > 0xFFFF {
		d = 0xFFFF
	}
	return uint16(d)
}

// programPIT loads channel 0 with the divisor for freqHz in rate-generator
// mode, producing a periodic IRQ 0 at (roughly) freqHz.
func programPIT(freqHz uint32) {
	divisor := divisorFor(freqHz)
	outbFn(pitCommand, pitCmdRateGenerator)
	outbFn(pitChannel0Data, byte(divisor&0xFF))
	outbFn(pitChannel0Data, byte(divisor>>8))
}

// latchCount reads channel 0's current countdown value without disturbing
// it, via the PIT's latch command.
func latchCount() uint16 {
	outbFn(pitCommand, pitCmdLatch)
	lo := inbFn(pitChannel0Data)
	hi := inbFn(pitChannel0Data)
	return uint16(lo) | uint16(hi)<<8
}

// calibrationWaitTicks is how many PIT rollovers calibrate busy-waits for.
// Larger values average out jitter from the latch reads themselves at the
// cost of a longer boot stall; at the 1000 Hz rate kmain programs this
// value stalls boot for about 16 ms.
const calibrationWaitTicks = 16

// calibrate measures TSC cycles per microsecond by latching the PIT
// counter, busy-waiting for it to roll over calibrationWaitTicks times
// (the counter counts down from the programmed divisor and reloads on
// reaching zero), and comparing TSC deltas across the interval.
// Interrupts are disabled for the duration so nothing else perturbs the
// TSC-to-PIT correspondence, matching the original calibration routine.
func calibrate(freqHz uint32) uint64 {
	token := disableInterruptsFn()
	defer restoreInterruptsFn(token)

	last := latchCount()
	tscStart := readTSCFn()

	var rollovers uint32
	for rollovers < calibrationWaitTicks {
		cur := latchCount()
		if cur > last {
			rollovers++
		}
		last = cur
	}

	tscEnd := readTSCFn()
	elapsedCycles := tscEnd - tscStart

	elapsedUs := uint64(calibrationWaitTicks) * 1000000 / uint64(freqHz)
	if elapsedUs == 0 {
		elapsedUs = 1
	}

	return elapsedCycles * 1000000 / elapsedUs
}

// Init programs the PIT at frequencyHz, calibrates the TSC against it,
// registers the tick handler on vector 32 and unmasks IRQ 0. Interrupts
// must still be globally disabled when Init returns; the caller enables
// them once every subsystem is ready, per the boot sequence.
func Init(frequencyHz uint32) {
	programPIT(frequencyHz)
	tscFreqHz = calibrate(frequencyHz)

	registerHandlerFn(layout.IRQBase+layout.IRQPIT, tickHandler)
	unmaskIRQFn(layout.IRQPIT)
}

// SetTickHook installs the function the tick handler calls on every
// interrupt, after incrementing the tick counter. The scheduler uses this
// to set its preemption-pending flag; the hook itself must never touch
// the scheduler directly, only flag that it should run at the next
// common IRQ return.
func SetTickHook(hook func()) {
	tickHook = hook
}

// tickHandler is the IRQ 0 handler: increment the tick counter, call the
// hook if one is installed, and return. EOI and the deferred reschedule
// check happen in the IDT's common dispatch path, not here, keeping this
// handler within the documented cycle budget.
func tickHandler(vector uint8, errCode uint32) {
	ticks++
	if tickHook != nil {
		tickHook()
	}
}

// Ticks returns the number of timer interrupts observed since Init.
func Ticks() uint64 { return ticks }

// TSCFreqHz returns the calibrated TSC frequency, or 0 before Init runs.
func TSCFreqHz() uint64 { return tscFreqHz }

// ReadTSC returns the raw cycle counter. O(1): a single RDTSC.
func ReadTSC() uint64 { return readTSCFn() }

// ReadMicros converts the current TSC reading to microseconds since boot
// using the calibrated frequency. Returns 0 if Init has not calibrated
// yet, since dividing by an uncalibrated frequency would be meaningless.
func ReadMicros() uint64 {
	if tscFreqHz == 0 {
		return 0
	}
	return readTSCFn() * 1000000 / tscFreqHz
}
