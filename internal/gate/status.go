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

// Package gate is the fail-closed choke point in front of every
// destructive operation: format write-capability, drive diagnostics, and a
// hash-verified recovery snapshot must all pass, or the caller must apply
// an explicit, audited override.
package gate

// Status is the closed outcome set of a gate decision.
type Status int

const (
	StatusOK Status = iota
	StatusFormatReadOnly
	StatusDriveUnsafe
	StatusSnapshotFailed
	StatusVerifyFailed
	StatusNeedsOverride
	StatusPrecheckFailed
)

var statusText = map[Status]string{
	StatusOK:             "ok",
	StatusFormatReadOnly: "format is read-only",
	StatusDriveUnsafe:    "drive diagnostics block writing",
	StatusSnapshotFailed: "recovery snapshot failed",
	StatusVerifyFailed:   "snapshot verification failed",
	StatusNeedsOverride:  "operation needs an explicit override",
	StatusPrecheckFailed: "precheck failed",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "unknown status"
}

func (s Status) Error() string { return s.String() }

// Check identifies the three independent gate checks as mask bits.
type Check uint8

const (
	CheckFormat Check = 1 << iota
	CheckDrive
	CheckSnapshot
)

func (c Check) Has(f Check) bool { return c&f == f }

// DriveDiag are caller-supplied drive diagnostic flags.
type DriveDiag uint8

const (
	DriveWriteProtect DriveDiag = 1 << iota
	DriveWriteUnsafe
	DriveNoDisk
)

func (d DriveDiag) Has(f DriveDiag) bool { return d&f == f }
