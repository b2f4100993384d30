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

// Package scp drives a SuperCard Pro flux capture device over a serial
// link. Commands are checksummed packets answered by a two-byte echo and
// status; flux data is staged through the device's onboard RAM.
package scp

import "fmt"

// SampleClock is the device's flux sample rate: 40 MHz, 25 ns per tick.
const (
	SampleClock = 40_000_000
	TickNs      = 25.0
)

// TicksToNs converts device ticks to nanoseconds.
func TicksToNs(ticks uint64) float64 { return float64(ticks) * TickNs }

// NsToTicks converts nanoseconds to device ticks, rounding to nearest.
func NsToTicks(ns float64) uint64 { return uint64(ns/TickNs + 0.5) }

// Cmd is a device command byte.
type Cmd uint8

const (
	CmdSelectA       Cmd = 0x80
	CmdSelectB       Cmd = 0x81
	CmdDeselectA     Cmd = 0x82
	CmdDeselectB     Cmd = 0x83
	CmdMotorAOn      Cmd = 0x84
	CmdMotorBOn      Cmd = 0x85
	CmdMotorAOff     Cmd = 0x86
	CmdMotorBOff     Cmd = 0x87
	CmdSeek0         Cmd = 0x88
	CmdStepTo        Cmd = 0x89
	CmdStepIn        Cmd = 0x8A
	CmdStepOut       Cmd = 0x8B
	CmdSelectDensity Cmd = 0x8C
	CmdSelectSide    Cmd = 0x8D
	CmdStatus        Cmd = 0x8E
	CmdGetParams     Cmd = 0x90
	CmdSetParams     Cmd = 0x91
	CmdRamTest       Cmd = 0x92
	CmdReadFlux      Cmd = 0xA0
	CmdGetFluxInfo   Cmd = 0xA1
	CmdWriteFlux     Cmd = 0xA2
	CmdSendRamUsb    Cmd = 0xA9
	CmdLoadRamUsb    Cmd = 0xAA
	CmdScpInfo       Cmd = 0xD0
)

// Response is the device's status byte.
type Response uint8

const (
	RespBadCommand   Response = 0x01
	RespCommandErr   Response = 0x02
	RespChecksumErr  Response = 0x03
	RespTimeout      Response = 0x04
	RespNoTrack0     Response = 0x05
	RespNoDriveSel   Response = 0x06
	RespNoMotorSel   Response = 0x07
	RespNotReady     Response = 0x08
	RespNoIndex      Response = 0x09
	RespZeroRevs     Response = 0x0A
	RespReadTooLong  Response = 0x0B
	RespBadLength    Response = 0x0C
	RespBadData      Response = 0x0D
	RespBoundaryOdd  Response = 0x0E
	RespWriteProtect Response = 0x0F
	RespBadRam       Response = 0x10
	RespNoDisk       Response = 0x11
	RespBadBaud      Response = 0x12
	RespBadCmdOnPort Response = 0x13
	RespOk           Response = 0x4F
)

var responseText = map[Response]string{
	RespBadCommand:   "bad command",
	RespCommandErr:   "command error",
	RespChecksumErr:  "packet checksum error",
	RespTimeout:      "command timeout",
	RespNoTrack0:     "track 0 not found",
	RespNoDriveSel:   "no drive selected",
	RespNoMotorSel:   "motor not enabled",
	RespNotReady:     "drive not ready",
	RespNoIndex:      "no index pulse",
	RespZeroRevs:     "zero revolutions requested",
	RespReadTooLong:  "read exceeded RAM",
	RespBadLength:    "bad length",
	RespBadData:      "bad data",
	RespBoundaryOdd:  "odd transfer boundary",
	RespWriteProtect: "disk is write protected",
	RespBadRam:       "RAM test failed",
	RespNoDisk:       "no disk in drive",
	RespBadBaud:      "bad baud rate",
	RespBadCmdOnPort: "command not valid on this port",
	RespOk:           "ok",
}

func (r Response) String() string {
	if t, ok := responseText[r]; ok {
		return t
	}
	return fmt.Sprintf("response 0x%02X", uint8(r))
}

// DeviceError is a non-OK response to a command.
type DeviceError struct {
	Cmd  Cmd
	Code Response
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("command 0x%02X: %s", uint8(e.Cmd), e.Code)
}

// Read-flux flag bits.
const (
	FluxFlagIndex = 1 << 0 // wait for the index pulse before sampling
	FluxFlagWipe  = 1 << 1 // erase before write
)

// checksumSeed starts every packet checksum.
const checksumSeed = 0x4A

// packetChecksum folds the seed, command, length, and payload modulo 256.
func packetChecksum(cmd Cmd, payload []byte) uint8 {
	sum := uint8(checksumSeed) + uint8(cmd) + uint8(len(payload))
	for _, b := range payload {
		sum += b
	}
	return sum
}

// buildPacket frames a command: [CMD][LEN][PAYLOAD...][CHECKSUM].
func buildPacket(cmd Cmd, payload []byte) []byte {
	pkt := make([]byte, 0, len(payload)+3)
	pkt = append(pkt, uint8(cmd), uint8(len(payload)))
	pkt = append(pkt, payload...)
	pkt = append(pkt, packetChecksum(cmd, payload))
	return pkt
}
