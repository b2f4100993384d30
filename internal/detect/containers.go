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
package detect

import (
	"sync"

	"github.com/uftool/uft/pkg/magic"
)

var (
	containerOnce     sync.Once
	containerRegistry *magic.Registry
)

var containerKinds = map[string]Kind{
	"ipf": KindIpfContainer,
	"dfi": KindDfiContainer,
	"scp": KindScpContainer,
	"dsk": KindDskContainer,
}

// containers returns the shared container-signature registry.
func containers() *magic.Registry {
	containerOnce.Do(func() {
		r := magic.NewRegistry()
		r.Add(magic.Signature{Name: "ipf", Magic: []byte("CAPS"), Probe: func([]byte) int { return 95 }})
		r.Add(magic.Signature{Name: "dfi", Magic: []byte("DFE2"), Probe: func([]byte) int { return 95 }})
		r.Add(magic.Signature{Name: "scp", Magic: []byte("SCP"), Probe: func([]byte) int { return 95 }})
		r.Add(magic.Signature{Name: "dsk", Magic: []byte("MV - CPC"), Probe: func([]byte) int { return 90 }})
		containerRegistry = r
	})
	return containerRegistry
}

// probeContainers adds candidates for preservation containers offered as
// raw images.
func probeContainers(image []byte, res *Result) {
	containers().Search(image, func(m magic.Match) bool {
		kind, ok := containerKinds[m.Name]
		if !ok {
			return false
		}
		res.add(Candidate{
			Kind:       kind,
			Confidence: m.Confidence,
			Traits:     TraitContainer,
		})
		return false
	})
}

// ProbeContainer identifies a container image without running the
// filesystem stages.
func ProbeContainer(image []byte) (Kind, int, bool) {
	m, ok := containers().Identify(image)
	if !ok {
		return KindUnknown, 0, false
	}
	return containerKinds[m.Name], m.Confidence, true
}
