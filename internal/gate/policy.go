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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/uftool/uft/internal/session"
)

// Policy configures the gate. The zero value is not usable; start from
// DefaultPolicy.
type Policy struct {
	// MinConfidence is the lowest format-probe confidence allowed to
	// write.
	MinConfidence int `yaml:"min_confidence"`

	// AllowOverride permits audited overrides of overridable failures.
	AllowOverride bool `yaml:"allow_override"`

	SnapshotDir    string `yaml:"snapshot_dir"`
	SnapshotPrefix string `yaml:"snapshot_prefix"`
}

// DefaultPolicy is the compiled-in gate policy.
func DefaultPolicy() Policy {
	return Policy{
		MinConfidence:  50,
		AllowOverride:  true,
		SnapshotDir:    session.Root(),
		SnapshotPrefix: "snapshot",
	}
}

// LoadPolicy overlays a YAML policy file onto the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrapf(err, "read policy %s", path)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return DefaultPolicy(), errors.Wrapf(err, "parse policy %s", path)
	}
	return p, nil
}
