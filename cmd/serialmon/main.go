// Command serialmon is a host-side tool that opens a serial device (a
// real UART or a QEMU-exposed pty) and mirrors every byte the kernel's
// serial console writes to stdout, each line timestamped. It is ordinary
// hosted Go, independent of the kernel module's freestanding build
// constraints, grounded file-for-file on exer/cex/dev/arduino.go's
// EINTR-retry read loop and serial.Mode setup.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"
)

const (
	defaultBaudRate = 115200
	readTimeout     = 200 * time.Millisecond
)

func main() {
	device := flag.String("device", "", "serial device to open (e.g. /dev/ttyUSB0)")
	baud := flag.Int("baud", defaultBaudRate, "baud rate")
	flag.Parse()

	if *device == "" {
		fmt.Fprintln(os.Stderr, "serialmon: -device is required")
		os.Exit(2)
	}

	mode := &serial.Mode{
		BaudRate: *baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(*device, mode)
	if err != nil {
		log.Fatalf("serialmon: open %s: %v", *device, err)
	}
	defer port.Close()
	port.SetReadTimeout(readTimeout)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		port.Close()
		os.Exit(0)
	}()

	mirror(os.Stdout, port)
}

// mirror reads bytes off src until it hits a permanent error, printing
// each completed line to dst prefixed with the time it was received. The
// retry loop exists solely to absorb EINTR, which read syscalls on a
// serial fd surface constantly once signal.Notify is installed.
func mirror(dst io.Writer, src io.Reader) {
	w := bufio.NewWriter(dst)
	defer w.Flush()

	line := make([]byte, 0, 256)
	b := make([]byte, 1)

	for {
		n, err := readByte(src, b)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		if b[0] == '\n' {
			fmt.Fprintf(w, "[%s] %s\n", time.Now().Format(time.RFC3339Nano), line)
			w.Flush()
			line = line[:0]
			continue
		}
		line = append(line, b[0])
	}
}

// readByte performs one Read, retrying transparently on EINTR the same
// way arduino.go's readByte/writeBytes loops do.
func readByte(src io.Reader, b []byte) (int, error) {
	for {
		n, err := src.Read(b)
		if !isRetryableSyscallError(err) {
			return n, err
		}
		if n != 0 {
			panic("serialmon: bytes returned despite EINTR")
		}
	}
}

func isRetryableSyscallError(err error) bool {
	const eIntr = 4
	if errno, ok := err.(syscall.Errno); ok {
		return errno == eIntr
	}
	return false
}
