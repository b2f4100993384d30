// Copyright (c) 2025 The UFT Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package scp

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// ErrPortTimeout is returned when an exact read does not complete within
// the port's deadline.
var ErrPortTimeout = errors.New("serial read timeout")

// Port is the transport a Device talks through. Reads are exact: the
// implementation fills buf completely or fails with ErrPortTimeout.
type Port interface {
	ReadFull(buf []byte) error
	Write(buf []byte) error
	Close() error
}

// serialPort wraps a VCP/FTDI serial link. The SCP ignores the baud rate
// in VCP mode; 8N1 framing is what matters.
type serialPort struct {
	p serial.Port
}

// OpenPort opens a named serial port with a per-read timeout.
func OpenPort(name string, timeout time.Duration) (Port, error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, errors.Wrapf(err, "set timeout on %s", name)
	}
	return &serialPort{p: p}, nil
}

// ListPorts enumerates candidate serial ports for device scanning.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (s *serialPort) ReadFull(buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := s.p.Read(buf[got:])
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Wrapf(ErrPortTimeout, "after %d of %d bytes", got, len(buf))
		}
		got += n
	}
	return nil
}

func (s *serialPort) Write(buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, err := s.p.Write(buf[sent:])
		if err != nil {
			return err
		}
		sent += n
	}
	return nil
}

func (s *serialPort) Close() error { return s.p.Close() }
