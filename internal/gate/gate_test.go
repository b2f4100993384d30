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
package gate_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/internal/disk"
	"github.com/uftool/uft/internal/gate"
)

func testPolicy(t *testing.T) gate.Policy {
	t.Helper()
	p := gate.DefaultPolicy()
	p.SnapshotDir = t.TempDir()
	return p
}

func TestAllowedWriteTakesSnapshot(t *testing.T) {
	target := make([]byte, 1474560) // PC 1.44M: writable family
	target[0] = 0xEB

	d := gate.Evaluate(gate.Request{Target: target, Policy: testPolicy(t)})
	require.Equal(t, gate.StatusOK, d.Status)
	require.True(t, d.Allowed())
	require.True(t, d.ChecksPassed.Has(gate.CheckFormat))
	require.True(t, d.ChecksPassed.Has(gate.CheckSnapshot))

	require.NotNil(t, d.Snapshot)
	require.FileExists(t, d.Snapshot.Path)
	require.Equal(t, int64(len(target)), d.Snapshot.Size)

	back, err := os.ReadFile(d.Snapshot.Path)
	require.NoError(t, err)
	require.Equal(t, target, back)
}

func TestNibWriteDenied(t *testing.T) {
	target := make([]byte, 232960) // Apple II NIB: no WRITE capability

	d := gate.Evaluate(gate.Request{Target: target, Policy: testPolicy(t)})
	require.Equal(t, gate.StatusFormatReadOnly, d.Status)
	require.False(t, d.Allowed())
	require.True(t, d.OverrideRequired)
	require.True(t, d.ChecksFailed.Has(gate.CheckFormat))

	// Without an override, no snapshot is demanded.
	require.Nil(t, d.Snapshot)
}

func TestNibWriteOverridden(t *testing.T) {
	target := make([]byte, 232960)
	policy := testPolicy(t)

	d := gate.Evaluate(gate.Request{
		Target:   target,
		Policy:   policy,
		Override: "operator accepts destroying the nibble image",
	})
	require.True(t, d.Overridden)
	require.True(t, d.Allowed())
	require.Contains(t, d.Reason, "operator accepts")

	// The snapshot is still written and verified before the write.
	require.NotNil(t, d.Snapshot)
	require.FileExists(t, d.Snapshot.Path)
	require.Len(t, d.Snapshot.Sha256, 64)
}

func TestOverrideDisallowedByPolicy(t *testing.T) {
	target := make([]byte, 232960)
	policy := testPolicy(t)
	policy.AllowOverride = false

	d := gate.Evaluate(gate.Request{Target: target, Policy: policy, Override: "try anyway"})
	require.False(t, d.Overridden)
	require.False(t, d.Allowed())
}

func TestDriveHardBlockNotOverridable(t *testing.T) {
	target := make([]byte, 1474560)
	target[0] = 0xEB
	diag := gate.DriveWriteProtect

	d := gate.Evaluate(gate.Request{
		Target:   target,
		Drive:    &diag,
		Policy:   testPolicy(t),
		Override: "force it",
	})
	require.Equal(t, gate.StatusDriveUnsafe, d.Status)
	require.False(t, d.Allowed())
	require.False(t, d.OverrideRequired)
	require.Nil(t, d.Snapshot)

	diag = gate.DriveNoDisk
	d = gate.Evaluate(gate.Request{Target: target, Drive: &diag, Policy: testPolicy(t)})
	require.False(t, d.Allowed())
	require.False(t, d.OverrideRequired)
}

func TestDriveUnsafeIsOverridable(t *testing.T) {
	target := make([]byte, 1474560)
	target[0] = 0xEB
	diag := gate.DriveWriteUnsafe

	d := gate.Evaluate(gate.Request{Target: target, Drive: &diag, Policy: testPolicy(t)})
	require.False(t, d.Allowed())
	require.True(t, d.OverrideRequired)

	d = gate.Evaluate(gate.Request{
		Target:   target,
		Drive:    &diag,
		Policy:   testPolicy(t),
		Override: "head alignment verified manually",
	})
	require.True(t, d.Allowed())
	require.NotNil(t, d.Snapshot)
}

func TestLowConfidenceBlocked(t *testing.T) {
	// Unknown size: the probe reports no confidence at all.
	target := make([]byte, 54321)

	d := gate.Evaluate(gate.Request{Target: target, Policy: testPolicy(t)})
	require.False(t, d.Allowed())
	require.True(t, d.ChecksFailed.Has(gate.CheckFormat))
}

func TestSnapshotFailure(t *testing.T) {
	target := make([]byte, 1474560)
	target[0] = 0xEB
	policy := testPolicy(t)
	policy.SnapshotDir = ""

	d := gate.Evaluate(gate.Request{Target: target, Policy: policy})
	require.Equal(t, gate.StatusSnapshotFailed, d.Status)
	require.False(t, d.Allowed())
	require.True(t, d.ChecksFailed.Has(gate.CheckSnapshot))
}

func TestProbeFormat(t *testing.T) {
	p := gate.ProbeFormat([]byte("CAPS rest of container"))
	require.Equal(t, "IPF container", p.Name)
	require.True(t, p.Caps.Has(disk.CapWrite))

	p = gate.ProbeFormat(make([]byte, 901120))
	require.Equal(t, "Amiga DD", p.Name)
	require.True(t, p.Caps.Has(disk.CapWrite))

	p = gate.ProbeFormat(make([]byte, 999))
	require.Equal(t, "unknown", p.Name)
	require.Zero(t, p.Confidence)
}

func TestLoadPolicy(t *testing.T) {
	path := t.TempDir() + "/policy.yaml"
	require.NoError(t, os.WriteFile(path, []byte("min_confidence: 90\nallow_override: false\nsnapshot_prefix: pre\n"), 0o644))

	p, err := gate.LoadPolicy(path)
	require.NoError(t, err)
	require.Equal(t, 90, p.MinConfidence)
	require.False(t, p.AllowOverride)
	require.Equal(t, "pre", p.SnapshotPrefix)

	_, err = gate.LoadPolicy(t.TempDir() + "/missing.yaml")
	require.Error(t, err)
}
