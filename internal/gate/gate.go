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
package gate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/uftool/uft/internal/detect"
	"github.com/uftool/uft/internal/disk"
)

// FormatProbe is the gate's view of the target's format family.
type FormatProbe struct {
	Name       string
	Machine    string
	Caps       disk.Caps
	Confidence int
}

// containerCaps maps container kinds onto capability sets. The SCP and DSK
// containers have no writer in this toolkit.
var containerCaps = map[detect.Kind]disk.Caps{
	detect.KindIpfContainer: disk.CapRead | disk.CapWrite | disk.CapPhysical,
	detect.KindDfiContainer: disk.CapRead | disk.CapWrite | disk.CapPhysical,
	detect.KindScpContainer: disk.CapRead | disk.CapPhysical,
	detect.KindDskContainer: disk.CapRead | disk.CapLogical,
}

// ProbeFormat classifies the write target by magic first, then by the
// image-size table.
func ProbeFormat(image []byte) FormatProbe {
	if kind, conf, ok := detect.ProbeContainer(image); ok {
		return FormatProbe{
			Name:       kind.String(),
			Caps:       containerCaps[kind],
			Confidence: conf,
		}
	}
	if classes := disk.ClassifySize(uint64(len(image))); len(classes) > 0 {
		c := classes[0]
		return FormatProbe{
			Name:       c.Name,
			Machine:    c.Machine,
			Caps:       c.Caps,
			Confidence: 80,
		}
	}
	return FormatProbe{Name: "unknown"}
}

// Request describes one destructive operation presented to the gate.
type Request struct {
	// Target is the current content of what will be overwritten; it is
	// what the recovery snapshot preserves.
	Target []byte

	// Drive carries hardware diagnostics when the target is a physical
	// disk. Nil skips the drive check.
	Drive *DriveDiag

	Policy Policy

	// Override, when non-empty, is the audit reason for pushing through
	// overridable failures. Policy.AllowOverride must also be set.
	Override string
}

// Decision is the gate's verdict.
type Decision struct {
	Status           Status
	ChecksPassed     Check
	ChecksFailed     Check
	Reason           string
	OverrideRequired bool
	Overridden       bool

	Snapshot *SnapshotInfo
	Drive    *DriveDiag
	Format   FormatProbe
}

// Allowed reports whether the operation may proceed.
func (d *Decision) Allowed() bool {
	return d.Status == StatusOK || (d.Overridden && d.Snapshot != nil)
}

// Evaluate runs the three checks in order: format, drive, snapshot. An
// overridable failure without an override skips the snapshot and asks the
// caller to come back with one; with an override, the snapshot is still
// taken and verified before the operation is allowed. Hard drive failures
// (write protect, no disk) cannot be overridden.
func Evaluate(req Request) Decision {
	d := Decision{Format: ProbeFormat(req.Target), Drive: req.Drive}
	var failures *multierror.Error
	hardBlock := false

	// Check 1: format capability.
	switch {
	case !d.Format.Caps.Has(disk.CapWrite):
		d.ChecksFailed |= CheckFormat
		d.Status = StatusFormatReadOnly
		failures = multierror.Append(failures,
			fmt.Errorf("format %s: %s", d.Format.Name, StatusFormatReadOnly))
	case d.Format.Confidence < req.Policy.MinConfidence:
		d.ChecksFailed |= CheckFormat
		d.Status = StatusPrecheckFailed
		failures = multierror.Append(failures,
			fmt.Errorf("format %s at confidence %d, policy wants %d",
				d.Format.Name, d.Format.Confidence, req.Policy.MinConfidence))
	default:
		d.ChecksPassed |= CheckFormat
	}

	// Check 2: drive diagnostics.
	if req.Drive != nil {
		diag := *req.Drive
		switch {
		case diag.Has(DriveWriteProtect) || diag.Has(DriveNoDisk):
			d.ChecksFailed |= CheckDrive
			hardBlock = true
			if d.Status == StatusOK {
				d.Status = StatusDriveUnsafe
			}
			failures = multierror.Append(failures,
				fmt.Errorf("drive diagnostics 0x%02X: %s", uint8(diag), StatusDriveUnsafe))
		case diag.Has(DriveWriteUnsafe):
			d.ChecksFailed |= CheckDrive
			if d.Status == StatusOK {
				d.Status = StatusDriveUnsafe
			}
			failures = multierror.Append(failures,
				fmt.Errorf("drive reports unsafe writes"))
		default:
			d.ChecksPassed |= CheckDrive
		}
	}

	overriding := req.Override != "" && req.Policy.AllowOverride && !hardBlock

	// Check 3: recovery snapshot. Taken when everything passed, or when an
	// overridable failure is being pushed through.
	if d.ChecksFailed == 0 || overriding {
		snap, err := writeSnapshot(req.Policy.SnapshotDir, req.Policy.SnapshotPrefix, req.Target)
		if err != nil {
			d.ChecksFailed |= CheckSnapshot
			d.Status = snapshotStatus(err)
			d.Reason = err.Error()
			return d
		}
		d.ChecksPassed |= CheckSnapshot
		d.Snapshot = snap
	}

	if d.ChecksFailed == 0 {
		d.Status = StatusOK
		return d
	}

	d.Reason = failures.Error()
	if hardBlock {
		d.OverrideRequired = false
		return d
	}

	d.OverrideRequired = true
	if overriding {
		d.Overridden = true
		d.Reason = fmt.Sprintf("%s (overridden: %s)", d.Reason, req.Override)
	} else if d.Status == StatusOK {
		d.Status = StatusNeedsOverride
	}
	return d
}

func snapshotStatus(err error) Status {
	type causer interface{ Cause() error }
	for err != nil {
		if s, ok := err.(Status); ok {
			return s
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return StatusSnapshotFailed
}
