// Package tty is the host console on a serial line.
//
// Every frame is printed as one line: the RSSI as three decimal digits, a
// blank and the frame bytes in hex. Every line received is a message to send,
// written in hex.
package tty

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tarm/serial"
	"github.com/womat/debug"

	"swmodem/pkg/message"
)

// Console is the serial host console.
type Console struct {
	port io.ReadWriteCloser
	// wl serialises writes of frames and answers.
	wl sync.Mutex
}

// Open opens the serial port name.
func Open(name string, baud int) (*Console, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return New(p), nil
}

// New returns a console on an open port.
func New(port io.ReadWriteCloser) *Console {
	return &Console{port: port}
}

// Print writes a frame line.
func (c *Console) Print(f message.Frame) error {
	return c.writeLine(f.String())
}

// Serve reads message lines and passes the bytes to send until the port is
// closed. Errors are answered with a line starting with "!".
func (c *Console) Serve(send func([]byte) error) error {
	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		line := scanner.Text()

		data, err := message.ParseHex(line)
		if errors.Is(err, message.ErrEmpty) {
			continue
		}
		if err == nil {
			err = send(data)
		}
		if err != nil {
			debug.ErrorLog.Printf("console %q: %v", line, err)
			_ = c.writeLine("! " + err.Error())
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Close closes the port, Serve returns.
func (c *Console) Close() error {
	return c.port.Close()
}

func (c *Console) writeLine(s string) error {
	c.wl.Lock()
	defer c.wl.Unlock()

	_, err := io.WriteString(c.port, s+"\r\n")
	return err
}
