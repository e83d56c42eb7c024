package console

import "kernel/hal"

const (
	vgaMemory = 0xB8000
	vgaWidth  = 80
	vgaHeight = 25

	vgaCtrlReg = 0x3D4
	vgaDataReg = 0x3D5
)

// Color is a 4-bit VGA text-mode color index.
type Color uint8

const (
	ColorBlack      Color = 0
	ColorBlue       Color = 1
	ColorGreen      Color = 2
	ColorCyan       Color = 3
	ColorRed        Color = 4
	ColorMagenta    Color = 5
	ColorBrown      Color = 6
	ColorLightGrey  Color = 7
	ColorDarkGrey   Color = 8
	ColorLightBlue  Color = 9
	ColorLightGreen Color = 10
	ColorLightCyan  Color = 11
	ColorLightRed   Color = 12
	ColorPink       Color = 13
	ColorYellow     Color = 14
	ColorWhite      Color = 15
)

// buffer abstracts the raw 0xB8000 framebuffer so tests can substitute an
// in-memory slice instead of poking physical memory.
type buffer interface {
	set(index int, ch byte, color uint8)
	get(index int) (ch byte, color uint8)
}

// memBuffer reads and writes the real VGA text framebuffer window.
type memBuffer struct{}

func (memBuffer) set(index int, ch byte, color uint8) {
	ptr := (*[vgaWidth * vgaHeight]uint16)(vgaBufferPtr())
	ptr[index] = uint16(ch) | uint16(color)<<8
}

func (memBuffer) get(index int) (byte, uint8) {
	ptr := (*[vgaWidth * vgaHeight]uint16)(vgaBufferPtr())
	entry := ptr[index]
	return byte(entry & 0xFF), uint8(entry >> 8)
}

// VGA is a Sink writing to the VGA text-mode framebuffer window the PMM
// reserves at boot (spec.md's "text-mode framebuffer window"). It tracks
// its own cursor and scrolls the screen up a line on overflow, mirroring
// the original vga_text driver's putchar/scroll pair but without its
// hardware-cursor bookkeeping's dependency on a driver-ops vtable.
type VGA struct {
	buf     buffer
	cursorX int
	cursorY int
	color   uint8

	// touchHardware is false only in tests, where there is no real VGA
	// controller behind ports 0x3D4/0x3D5 to program.
	touchHardware bool
}

// NewVGA constructs a VGA sink writing to the real framebuffer, with the
// classic light-grey-on-black color and a cleared screen.
func NewVGA() *VGA {
	return newVGA(memBuffer{}, true)
}

func newVGA(buf buffer, touchHardware bool) *VGA {
	v := &VGA{buf: buf, color: makeColor(ColorLightGrey, ColorBlack), touchHardware: touchHardware}
	v.Clear()
	v.enableCursor()
	return v
}

func makeColor(fg, bg Color) uint8 {
	return uint8(fg) | uint8(bg)<<4
}

// SetColor changes the color used for subsequently written characters.
func (v *VGA) SetColor(fg, bg Color) {
	v.color = makeColor(fg, bg)
}

// Clear blanks the screen and resets the cursor to the top-left corner.
func (v *VGA) Clear() {
	for i := 0; i < vgaWidth*vgaHeight; i++ {
		v.buf.set(i, ' ', v.color)
	}
	v.cursorX, v.cursorY = 0, 0
	v.updateHardwareCursor()
}

// PutChar implements Sink. It handles \n, \r, \t and \b the way the
// original vga_text_putchar did; printable ASCII advances the cursor,
// wrapping and scrolling the screen as needed.
func (v *VGA) PutChar(c byte) {
	switch {
	case c == '\n':
		v.cursorX = 0
		v.cursorY++
	case c == '\r':
		v.cursorX = 0
	case c == '\t':
		v.cursorX = (v.cursorX + 8) &^ 7
	case c == '\b':
		if v.cursorX > 0 {
			v.cursorX--
			v.putAt(' ', v.cursorX, v.cursorY)
		}
	case c >= ' ' && c <= '~':
		v.putAt(c, v.cursorX, v.cursorY)
		v.cursorX++
	}

	if v.cursorX >= vgaWidth {
		v.cursorX = 0
		v.cursorY++
	}
	if v.cursorY >= vgaHeight {
		v.scroll()
		v.cursorY = vgaHeight - 1
	}
	v.updateHardwareCursor()
}

func (v *VGA) putAt(c byte, x, y int) {
	if x >= vgaWidth || y >= vgaHeight {
		return
	}
	v.buf.set(y*vgaWidth+x, c, v.color)
}

func (v *VGA) scroll() {
	for y := 0; y < vgaHeight-1; y++ {
		for x := 0; x < vgaWidth; x++ {
			ch, color := v.buf.get((y+1)*vgaWidth + x)
			v.buf.set(y*vgaWidth+x, ch, color)
		}
	}
	for x := 0; x < vgaWidth; x++ {
		v.buf.set((vgaHeight-1)*vgaWidth+x, ' ', v.color)
	}
}

func (v *VGA) enableCursor() {
	if !v.touchHardware {
		return
	}
	hal.Outb(vgaCtrlReg, 0x0A)
	hal.Outb(vgaDataReg, 0x00)
	hal.Outb(vgaCtrlReg, 0x0B)
	hal.Outb(vgaDataReg, 0x0F)
}

func (v *VGA) updateHardwareCursor() {
	if !v.touchHardware {
		return
	}
	pos := uint16(v.cursorY*vgaWidth + v.cursorX)
	hal.Outb(vgaCtrlReg, 0x0F)
	hal.Outb(vgaDataReg, byte(pos&0xFF))
	hal.Outb(vgaCtrlReg, 0x0E)
	hal.Outb(vgaDataReg, byte(pos>>8&0xFF))
}
