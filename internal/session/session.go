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

// Package session resolves where session artifacts (snapshots, capture
// logs, reports) live and names individual sessions.
package session

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// EnvSessionDir overrides the session root when set.
const EnvSessionDir = "UFT_SESSION_DIR"

// Root returns the session/snapshot root: the UFT_SESSION_DIR override, or
// the per-user application data directory.
func Root() string {
	if dir := os.Getenv(EnvSessionDir); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, "UFT", "sessions")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "uft-sessions")
	}
	return filepath.Join(home, ".local", "share", "uft", "sessions")
}

// NewID names a session after its start time: uft_YYYYMMDD_HHMMSS.
func NewID() string {
	return "uft_" + time.Now().Format("20060102_150405")
}
