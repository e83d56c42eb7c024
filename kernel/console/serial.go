package console

import "kernel/hal"

// 16550 UART register offsets, relative to the port base.
const (
	uartData        = 0
	uartIntEnable   = 1
	uartFIFOCtrl    = 2
	uartLineCtrl    = 3
	uartModemCtrl   = 4
	uartLineStatus  = 5
	uartModemStatus = 6
)

const (
	uartLSRDataReady     = 1 << 0
	uartLSRTransmitEmpty = 1 << 5

	uartLCRDLAB   = 1 << 7
	uartLCR8Bits  = 0x03
	uartFCREnable = 0x01
	uartFCRClearR = 0x02
	uartFCRClearT = 0x04
	uartMCRDTR    = 0x01
	uartMCRRTS    = 0x02
	uartMCROut2   = 0x08

	uartBaud115200 = 1
)

// Standard COM port base addresses.
const (
	COM1 uint16 = 0x3F8
	COM2 uint16 = 0x2F8
	COM3 uint16 = 0x3E8
	COM4 uint16 = 0x2E8
)

// Serial is a Sink backed by an 8250/16550-compatible UART, the fallback
// console when no VGA framebuffer is available (or as a second, loggable
// sink alongside it). It programs the port for 115200 8N1 at construction
// time, matching the original serial_init default configuration.
type Serial struct {
	port uint16
}

// NewSerial initializes the UART at port and returns a Sink writing to it.
func NewSerial(port uint16) *Serial {
	s := &Serial{port: port}

	hal.Outb(port+uartIntEnable, 0x00)
	hal.Outb(port+uartLineCtrl, uartLCRDLAB)
	hal.Outb(port+uartData, uartBaud115200)
	hal.Outb(port+uartIntEnable, 0x00)
	hal.Outb(port+uartLineCtrl, uartLCR8Bits)
	hal.Outb(port+uartFIFOCtrl, uartFCREnable|uartFCRClearR|uartFCRClearT)
	hal.Outb(port+uartModemCtrl, uartMCRDTR|uartMCRRTS|uartMCROut2)

	return s
}

// transmitEmpty reports whether the UART is ready to accept another byte.
func (s *Serial) transmitEmpty() bool {
	return hal.Inb(s.port+uartLineStatus)&uartLSRTransmitEmpty != 0
}

// PutChar implements Sink. It busy-waits for the transmit buffer to drain,
// then writes c, translating a bare \n into \r\n the way the original
// serial_write did so a plain terminal renders output correctly.
func (s *Serial) PutChar(c byte) {
	if c == '\n' {
		s.putRaw('\r')
	}
	s.putRaw(c)
}

func (s *Serial) putRaw(c byte) {
	for !s.transmitEmpty() {
	}
	hal.Outb(s.port+uartData, c)
}

// DataAvailable reports whether a received byte is waiting to be read.
func (s *Serial) DataAvailable() bool {
	return hal.Inb(s.port+uartLineStatus)&uartLSRDataReady != 0
}

// GetChar reads one received byte, or returns ok=false if none is waiting.
func (s *Serial) GetChar() (c byte, ok bool) {
	if !s.DataAvailable() {
		return 0, false
	}
	return hal.Inb(s.port + uartData), true
}
