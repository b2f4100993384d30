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
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/uftool/uft/pkg/binio"
)

// MaxRevolutions is the most revolutions one read can capture; the flux
// info response always describes five slots.
const MaxRevolutions = 5

// onboardRam is the device's staging memory.
const onboardRam = 512 * 1024

// StatusWord is the 2-byte big-endian drive status.
type StatusWord uint16

const (
	StatusTrack0       StatusWord = 1 << 0
	StatusReady        StatusWord = 1 << 1
	StatusWriteProtect StatusWord = 1 << 2
	StatusIndex        StatusWord = 1 << 3
	StatusMotor        StatusWord = 1 << 4
	StatusDiskIn       StatusWord = 1 << 5
)

// Params are the five drive timing words, big-endian on the wire, in this
// order: select, step, motor-on, seek-to-0, auto-off delay. Firmware
// revisions disagree on the first two; SetParams sends them in this order
// and does not read them back.
type Params struct {
	SelectDelay  uint16
	StepDelay    uint16
	MotorOnDelay uint16
	Seek0Delay   uint16
	AutoOffDelay uint16
}

// Drive selects one of the two drive connectors.
type Drive int

const (
	DriveNone Drive = iota - 1
	DriveA
	DriveB
)

// RevInfo describes one captured revolution.
type RevInfo struct {
	IndexTime uint32 // index-to-index duration in ticks
	CellCount uint32 // bit cells captured
}

// FluxTrack is the outcome of one track read.
type FluxTrack struct {
	Track uint8
	Side  uint8
	Flux  []uint16 // flux intervals in ticks, host order
	Revs  []RevInfo
}

// Device is an open SuperCard Pro. Commands are strictly serialized; no
// command is issued while another's response is pending.
type Device struct {
	port Port
	log  *slog.Logger

	selected   Drive
	motorOn    bool
	lastStatus StatusWord
	haveStatus bool
}

func NewDevice(port Port, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{port: port, log: logger, selected: DriveNone}
}

// command sends one packet and verifies the two-byte response: the command
// echo must match and the status must be OK.
func (d *Device) command(cmd Cmd, payload []byte) error {
	if err := d.port.Write(buildPacket(cmd, payload)); err != nil {
		return errors.Wrapf(err, "command 0x%02X", uint8(cmd))
	}
	return d.readResponse(cmd)
}

func (d *Device) readResponse(cmd Cmd) error {
	var resp [2]byte
	if err := d.port.ReadFull(resp[:]); err != nil {
		return errors.Wrapf(err, "response to 0x%02X", uint8(cmd))
	}
	if resp[0] != uint8(cmd) {
		return errors.Errorf("response echo 0x%02X for command 0x%02X", resp[0], uint8(cmd))
	}
	if Response(resp[1]) != RespOk {
		return &DeviceError{Cmd: cmd, Code: Response(resp[1])}
	}
	return nil
}

// Info probes the device: a real SCP echoes the command, reports OK, and
// follows with hardware and firmware version bytes.
func (d *Device) Info() (hw, fw uint8, err error) {
	if err := d.command(CmdScpInfo, nil); err != nil {
		return 0, 0, err
	}
	var ver [2]byte
	if err := d.port.ReadFull(ver[:]); err != nil {
		return 0, 0, errors.Wrap(err, "version bytes")
	}
	return ver[0], ver[1], nil
}

func (d *Device) SelectDrive(drv Drive) error {
	cmd := CmdSelectA
	if drv == DriveB {
		cmd = CmdSelectB
	}
	if err := d.command(cmd, nil); err != nil {
		return err
	}
	d.selected = drv
	return nil
}

func (d *Device) DeselectDrive(drv Drive) error {
	cmd := CmdDeselectA
	if drv == DriveB {
		cmd = CmdDeselectB
	}
	if err := d.command(cmd, nil); err != nil {
		return err
	}
	if d.selected == drv {
		d.selected = DriveNone
	}
	return nil
}

func (d *Device) MotorOn(drv Drive) error {
	cmd := CmdMotorAOn
	if drv == DriveB {
		cmd = CmdMotorBOn
	}
	if err := d.command(cmd, nil); err != nil {
		return err
	}
	d.motorOn = true
	return nil
}

func (d *Device) MotorOff(drv Drive) error {
	cmd := CmdMotorAOff
	if drv == DriveB {
		cmd = CmdMotorBOff
	}
	if err := d.command(cmd, nil); err != nil {
		return err
	}
	d.motorOn = false
	return nil
}

func (d *Device) Seek0() error { return d.command(CmdSeek0, nil) }

func (d *Device) StepTo(track uint8) error {
	return d.command(CmdStepTo, []byte{track})
}

func (d *Device) SelectSide(side uint8) error {
	return d.command(CmdSelectSide, []byte{side})
}

func (d *Device) SelectDensity(density uint8) error {
	return d.command(CmdSelectDensity, []byte{density})
}

// Status reads the drive status word and caches it for the write-protect
// gate on WriteTrack.
func (d *Device) Status() (StatusWord, error) {
	if err := d.command(CmdStatus, nil); err != nil {
		return 0, err
	}
	var raw [2]byte
	if err := d.port.ReadFull(raw[:]); err != nil {
		return 0, errors.Wrap(err, "status word")
	}
	d.lastStatus = StatusWord(binio.U16BE(raw[:]))
	d.haveStatus = true
	return d.lastStatus, nil
}

func (d *Device) GetParams() (Params, error) {
	if err := d.command(CmdGetParams, nil); err != nil {
		return Params{}, err
	}
	var raw [10]byte
	if err := d.port.ReadFull(raw[:]); err != nil {
		return Params{}, errors.Wrap(err, "parameter words")
	}
	return Params{
		SelectDelay:  binio.U16BE(raw[0:]),
		StepDelay:    binio.U16BE(raw[2:]),
		MotorOnDelay: binio.U16BE(raw[4:]),
		Seek0Delay:   binio.U16BE(raw[6:]),
		AutoOffDelay: binio.U16BE(raw[8:]),
	}, nil
}

func (d *Device) SetParams(p Params) error {
	var raw [10]byte
	binio.PutU16BE(raw[0:], p.SelectDelay)
	binio.PutU16BE(raw[2:], p.StepDelay)
	binio.PutU16BE(raw[4:], p.MotorOnDelay)
	binio.PutU16BE(raw[6:], p.Seek0Delay)
	binio.PutU16BE(raw[8:], p.AutoOffDelay)
	return d.command(CmdSetParams, raw[:])
}

func (d *Device) readFlux(revs uint8, flags uint8) error {
	return d.command(CmdReadFlux, []byte{revs, flags})
}

// fluxInfo reads the 40-byte revolution table; a zero cell count
// terminates the list.
func (d *Device) fluxInfo() ([]RevInfo, error) {
	if err := d.command(CmdGetFluxInfo, nil); err != nil {
		return nil, err
	}
	var raw [40]byte
	if err := d.port.ReadFull(raw[:]); err != nil {
		return nil, errors.Wrap(err, "flux info")
	}
	var revs []RevInfo
	for i := 0; i < MaxRevolutions; i++ {
		r := RevInfo{
			IndexTime: binio.U32BE(raw[i*8:]),
			CellCount: binio.U32BE(raw[i*8+4:]),
		}
		if r.CellCount == 0 {
			break
		}
		revs = append(revs, r)
	}
	return revs, nil
}

// sendRam streams length bytes out of onboard RAM: packet, bulk read,
// then the deferred response.
func (d *Device) sendRam(offset, length uint32) ([]byte, error) {
	var payload [8]byte
	binio.PutU32BE(payload[0:], offset)
	binio.PutU32BE(payload[4:], length)
	if err := d.port.Write(buildPacket(CmdSendRamUsb, payload[:])); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	if err := d.port.ReadFull(data); err != nil {
		return nil, errors.Wrap(err, "bulk read")
	}
	if err := d.readResponse(CmdSendRamUsb); err != nil {
		return nil, err
	}
	return data, nil
}

// loadRam stages data into onboard RAM: packet, bulk write, then the
// deferred response.
func (d *Device) loadRam(offset uint32, data []byte) error {
	if len(data) > onboardRam {
		return &DeviceError{Cmd: CmdLoadRamUsb, Code: RespReadTooLong}
	}
	var payload [8]byte
	binio.PutU32BE(payload[0:], offset)
	binio.PutU32BE(payload[4:], uint32(len(data)))
	if err := d.port.Write(buildPacket(CmdLoadRamUsb, payload[:])); err != nil {
		return err
	}
	if err := d.port.Write(data); err != nil {
		return errors.Wrap(err, "bulk write")
	}
	return d.readResponse(CmdLoadRamUsb)
}

func (d *Device) writeFlux(cells uint32, flags uint8) error {
	var payload [5]byte
	binio.PutU32BE(payload[0:], cells)
	payload[4] = flags
	return d.command(CmdWriteFlux, payload[:])
}

// ReadTrack captures revs revolutions of one track: seek, side select,
// index-synchronised read, then the staged flux stream out of RAM.
func (d *Device) ReadTrack(track, side, revs uint8) (*FluxTrack, error) {
	if revs == 0 || revs > MaxRevolutions {
		return nil, &DeviceError{Cmd: CmdReadFlux, Code: RespZeroRevs}
	}
	if err := d.StepTo(track); err != nil {
		return nil, err
	}
	if err := d.SelectSide(side); err != nil {
		return nil, err
	}
	if err := d.readFlux(revs, FluxFlagIndex); err != nil {
		return nil, err
	}

	revInfo, err := d.fluxInfo()
	if err != nil {
		return nil, err
	}
	var total uint32
	for _, r := range revInfo {
		total += r.CellCount
	}
	if total == 0 {
		return nil, &DeviceError{Cmd: CmdGetFluxInfo, Code: RespNoIndex}
	}

	raw, err := d.sendRam(0, total*2)
	if err != nil {
		return nil, err
	}

	flux := make([]uint16, total)
	for i := range flux {
		flux[i] = binio.U16BE(raw[i*2:])
	}
	return &FluxTrack{Track: track, Side: side, Flux: flux, Revs: revInfo}, nil
}

// WriteTrack stages host flux into RAM and writes it out. A previously
// observed write-protect status refuses the write before touching the
// drive.
func (d *Device) WriteTrack(track, side uint8, flux []uint16, flags uint8) error {
	if d.haveStatus && d.lastStatus&StatusWriteProtect != 0 {
		return &DeviceError{Cmd: CmdWriteFlux, Code: RespWriteProtect}
	}
	if err := d.StepTo(track); err != nil {
		return err
	}
	if err := d.SelectSide(side); err != nil {
		return err
	}

	raw := make([]byte, len(flux)*2)
	for i, f := range flux {
		binio.PutU16BE(raw[i*2:], f)
	}
	if err := d.loadRam(0, raw); err != nil {
		return err
	}
	return d.writeFlux(uint32(len(flux)), flags)
}

// TrackResult reports one track of a whole-disk read to the caller.
type TrackResult struct {
	Track uint8
	Side  uint8
	Flux  *FluxTrack
	Err   error
}

// ReadDiskOptions tune a whole-disk capture.
type ReadDiskOptions struct {
	Tracks  uint8
	Sides   uint8
	Revs    uint8
	Retries int

	// OnTrack receives every track outcome; returning false cancels the
	// capture. The loop never panics or raises through it.
	OnTrack func(res TrackResult) bool
}

// ReadDisk captures every track, retrying failed reads with a re-seek
// between attempts. Cancellation and completion both leave the motor off
// and the drive deselected.
func (d *Device) ReadDisk(opts ReadDiskOptions) error {
	if opts.Revs == 0 {
		opts.Revs = 1
	}
	if opts.Sides == 0 {
		opts.Sides = 1
	}
	defer d.quiesce()

	if err := d.Seek0(); err != nil {
		return err
	}

	for track := uint8(0); track < opts.Tracks; track++ {
		for side := uint8(0); side < opts.Sides; side++ {
			flux, err := d.readTrackRetry(track, side, opts.Revs, opts.Retries)
			res := TrackResult{Track: track, Side: side, Flux: flux, Err: err}
			if opts.OnTrack != nil && !opts.OnTrack(res) {
				return nil
			}
		}
	}
	return nil
}

func (d *Device) readTrackRetry(track, side, revs uint8, retries int) (*FluxTrack, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			d.log.Debug("retrying track read", "track", track, "side", side, "attempt", attempt)
			time.Sleep(50 * time.Millisecond)
			if err := d.Seek0(); err != nil {
				lastErr = err
				continue
			}
		}
		flux, err := d.ReadTrack(track, side, revs)
		if err == nil {
			return flux, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// quiesce turns the motor off and deselects the drive, best effort.
func (d *Device) quiesce() {
	if d.selected == DriveNone {
		return
	}
	drv := d.selected
	if d.motorOn {
		if err := d.MotorOff(drv); err != nil {
			d.log.Warn("motor off failed", "err", err)
		}
	}
	if err := d.DeselectDrive(drv); err != nil {
		d.log.Warn("deselect failed", "err", err)
	}
}

// Close quiesces the drive and closes the transport on every exit path.
func (d *Device) Close() error {
	d.quiesce()
	return d.port.Close()
}

// ScanPorts probes candidate serial ports for an SCP and returns the first
// responding port name with its version bytes.
func ScanPorts(timeout time.Duration, logger *slog.Logger) (string, uint8, uint8, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", 0, 0, err
	}
	for _, name := range ports {
		port, err := OpenPort(name, timeout)
		if err != nil {
			continue
		}
		dev := NewDevice(port, logger)
		hw, fw, err := dev.Info()
		port.Close()
		if err == nil {
			return name, hw, fw, nil
		}
	}
	return "", 0, 0, errors.New("no SuperCard Pro found")
}
