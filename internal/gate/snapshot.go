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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// SnapshotInfo records a verified recovery snapshot.
type SnapshotInfo struct {
	Path   string
	Sha256 string
	Size   int64
}

// writeSnapshot copies target to <dir>/<prefix>.<timestamp>.bin and
// verifies the copy by re-reading it and comparing SHA-256 digests.
func writeSnapshot(dir, prefix string, target []byte) (*SnapshotInfo, error) {
	if dir == "" {
		return nil, errors.Wrap(StatusSnapshotFailed, "no snapshot directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(StatusSnapshotFailed, err.Error())
	}

	stamp := time.Now().Format("20060102_150405.000000000")
	path := filepath.Join(dir, fmt.Sprintf("%s.%s.bin", prefix, stamp))

	want := sha256.Sum256(target)
	if err := os.WriteFile(path, target, 0o644); err != nil {
		return nil, errors.Wrap(StatusSnapshotFailed, err.Error())
	}

	back, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(StatusVerifyFailed, err.Error())
	}
	got := sha256.Sum256(back)
	if got != want {
		return nil, errors.Wrapf(StatusVerifyFailed, "%s digest mismatch", path)
	}

	return &SnapshotInfo{
		Path:   path,
		Sha256: hex.EncodeToString(want[:]),
		Size:   int64(len(target)),
	}, nil
}
