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

// Package magic maps leading byte signatures of preservation containers to
// probe handlers. Lookups walk, in registration order, every registered
// signature that prefixes the input, so "SCP" and a longer signature
// starting with the same bytes can coexist.
package magic

import "bytes"

// Probe inspects the full image and returns a confidence in 0..100, or a
// negative value when the image does not belong to the format after all.
type Probe func(image []byte) int

// Signature binds a container name to its leading magic bytes.
type Signature struct {
	Name  string
	Magic []byte
	Probe Probe
}

// Match is a signature that accepted the image.
type Match struct {
	Name       string
	Confidence int
}

// Registry holds container signatures ordered by registration.
type Registry struct {
	sigs []Signature
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(sig Signature) {
	r.sigs = append(r.sigs, sig)
}

func (r *Registry) Len() int { return len(r.sigs) }

// Search calls onMatch for each signature whose magic prefixes image and
// whose probe accepts it. Returning true from onMatch stops the walk.
func (r *Registry) Search(image []byte, onMatch func(m Match) bool) {
	for _, sig := range r.sigs {
		if len(image) < len(sig.Magic) || !bytes.HasPrefix(image, sig.Magic) {
			continue
		}
		conf := 100
		if sig.Probe != nil {
			conf = sig.Probe(image)
		}
		if conf < 0 {
			continue
		}
		if onMatch(Match{Name: sig.Name, Confidence: conf}) {
			return
		}
	}
}

// Identify returns the best-scoring match, or false when nothing accepts
// the image.
func (r *Registry) Identify(image []byte) (Match, bool) {
	var best Match
	found := false
	r.Search(image, func(m Match) bool {
		if !found || m.Confidence > best.Confidence {
			best = m
			found = true
		}
		return false
	})
	return best, found
}
