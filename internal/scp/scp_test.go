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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/pkg/binio"
)

// fakePort scripts the device side of the conversation.
type fakePort struct {
	in     bytes.Buffer // device -> host
	out    bytes.Buffer // host -> device
	closed bool
}

func (f *fakePort) ReadFull(buf []byte) error {
	n, _ := f.in.Read(buf)
	if n < len(buf) {
		return ErrPortTimeout
	}
	return nil
}

func (f *fakePort) Write(buf []byte) error {
	f.out.Write(buf)
	return nil
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

// queue appends device bytes for the host to read.
func (f *fakePort) queue(b ...byte) { f.in.Write(b) }

// ack scripts a successful echo/status pair.
func (f *fakePort) ack(cmd Cmd) { f.queue(uint8(cmd), uint8(RespOk)) }

func TestPacketFraming(t *testing.T) {
	// The SCPINFO probe packet is exactly [0xD0, 0x00, 0x4A+0xD0].
	pkt := buildPacket(CmdScpInfo, nil)
	require.Equal(t, []byte{0xD0, 0x00, 0x1A}, pkt)

	pkt = buildPacket(CmdStepTo, []byte{40})
	require.Equal(t, []byte{0x89, 0x01, 40, 0x4A + 0x89 + 0x01 + 40}, pkt)
}

func TestInfoProbe(t *testing.T) {
	port := &fakePort{}
	port.queue(0xD0, uint8(RespOk), 0x21, 0x13)

	dev := NewDevice(port, nil)
	hw, fw, err := dev.Info()
	require.NoError(t, err)
	require.Equal(t, uint8(0x21), hw)
	require.Equal(t, uint8(0x13), fw)
	require.Equal(t, []byte{0xD0, 0x00, 0x1A}, port.out.Bytes())
}

func TestBadEchoAndErrorCodes(t *testing.T) {
	port := &fakePort{}
	port.queue(0x88, uint8(RespOk)) // echo for a different command
	dev := NewDevice(port, nil)
	_, _, err := dev.Info()
	require.Error(t, err)

	port = &fakePort{}
	port.queue(uint8(CmdSeek0), uint8(RespNoTrack0))
	dev = NewDevice(port, nil)
	err = dev.Seek0()
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, RespNoTrack0, devErr.Code)
	require.Equal(t, CmdSeek0, devErr.Cmd)
}

func TestParamsRoundTrip(t *testing.T) {
	p := Params{
		SelectDelay:  1000,
		StepDelay:    5000,
		MotorOnDelay: 750,
		Seek0Delay:   15000,
		AutoOffDelay: 20000,
	}

	port := &fakePort{}
	port.ack(CmdSetParams)
	dev := NewDevice(port, nil)
	require.NoError(t, dev.SetParams(p))

	// The packet carries five big-endian words after CMD and LEN.
	sent := port.out.Bytes()
	require.Equal(t, uint8(CmdSetParams), sent[0])
	require.Equal(t, uint8(10), sent[1])
	require.Equal(t, uint16(1000), binio.U16BE(sent[2:]))
	require.Equal(t, uint16(20000), binio.U16BE(sent[10:]))

	// Echo the same words back through GetParams.
	port2 := &fakePort{}
	port2.ack(CmdGetParams)
	port2.queue(sent[2:12]...)
	dev2 := NewDevice(port2, nil)
	got, err := dev2.GetParams()
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestStatusWord(t *testing.T) {
	port := &fakePort{}
	port.ack(CmdStatus)
	port.queue(0x00, uint8(StatusWriteProtect|StatusReady))

	dev := NewDevice(port, nil)
	st, err := dev.Status()
	require.NoError(t, err)
	require.NotZero(t, st&StatusWriteProtect)
	require.NotZero(t, st&StatusReady)
}

func TestWriteRefusedWhenProtected(t *testing.T) {
	port := &fakePort{}
	port.ack(CmdStatus)
	port.queue(0x00, uint8(StatusWriteProtect))

	dev := NewDevice(port, nil)
	_, err := dev.Status()
	require.NoError(t, err)

	err = dev.WriteTrack(0, 0, []uint16{100, 200}, 0)
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, RespWriteProtect, devErr.Code)
}

func TestReadTrackProtocol(t *testing.T) {
	port := &fakePort{}
	port.ack(CmdStepTo)
	port.ack(CmdSelectSide)
	port.ack(CmdReadFlux)

	// Flux info: two revolutions, then a zero-cell terminator.
	port.ack(CmdGetFluxInfo)
	var info [40]byte
	binio.PutU32BE(info[0:], 8000000) // rev 1 index time
	binio.PutU32BE(info[4:], 3)       // rev 1 cells
	binio.PutU32BE(info[8:], 8000100)
	binio.PutU32BE(info[12:], 2)
	port.queue(info[:]...)

	// RAM transfer: 5 cells, big-endian 16-bit each, then deferred OK.
	var ram [10]byte
	for i, v := range []uint16{100, 200, 300, 400, 500} {
		binio.PutU16BE(ram[i*2:], v)
	}
	port.queue(ram[:]...)
	port.ack(CmdSendRamUsb)

	dev := NewDevice(port, nil)
	track, err := dev.ReadTrack(7, 1, 2)
	require.NoError(t, err)

	require.Equal(t, []uint16{100, 200, 300, 400, 500}, track.Flux)
	require.Len(t, track.Revs, 2)
	require.Equal(t, uint32(3), track.Revs[0].CellCount)
	require.Equal(t, uint32(8000100), track.Revs[1].IndexTime)

	// The host must have requested exactly total*2 bytes from offset 0.
	sent := port.out.Bytes()
	idx := bytes.LastIndexByte(sent, uint8(CmdSendRamUsb))
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, uint32(0), binio.U32BE(sent[idx+2:]))
	require.Equal(t, uint32(10), binio.U32BE(sent[idx+6:]))
}

func TestWriteTrackProtocol(t *testing.T) {
	port := &fakePort{}
	port.ack(CmdStepTo)
	port.ack(CmdSelectSide)
	port.ack(CmdLoadRamUsb)
	port.ack(CmdWriteFlux)

	dev := NewDevice(port, nil)
	require.NoError(t, dev.WriteTrack(3, 0, []uint16{0x1234, 0x00FF}, 0))

	sent := port.out.Bytes()
	// The staged bulk stream is big-endian.
	require.True(t, bytes.Contains(sent, []byte{0x12, 0x34, 0x00, 0xFF}))

	idx := bytes.LastIndexByte(sent, uint8(CmdWriteFlux))
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, uint32(2), binio.U32BE(sent[idx+2:]))
}

func TestCloseQuiescesDrive(t *testing.T) {
	port := &fakePort{}
	port.ack(CmdSelectA)
	port.ack(CmdMotorAOn)
	port.ack(CmdMotorAOff)
	port.ack(CmdDeselectA)

	dev := NewDevice(port, nil)
	require.NoError(t, dev.SelectDrive(DriveA))
	require.NoError(t, dev.MotorOn(DriveA))
	require.NoError(t, dev.Close())
	require.True(t, port.closed)

	sent := port.out.Bytes()
	require.Equal(t, uint8(CmdDeselectA), sent[len(sent)-3])
	motorOffIdx := bytes.LastIndexByte(sent, uint8(CmdMotorAOff))
	require.GreaterOrEqual(t, motorOffIdx, 0)
}

func TestTicksNanoseconds(t *testing.T) {
	require.Equal(t, 25.0, TicksToNs(1))
	require.Equal(t, uint64(40), NsToTicks(1000))
	require.Equal(t, uint64(1), NsToTicks(25))
}
