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
package magic_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/pkg/magic"
)

func TestRegistrySearch(t *testing.T) {
	r := magic.NewRegistry()
	r.Add(magic.Signature{Name: "caps", Magic: []byte("CAPS")})
	r.Add(magic.Signature{Name: "scp", Magic: []byte("SCP")})
	r.Add(magic.Signature{Name: "fussy", Magic: []byte("SCPX"), Probe: func([]byte) int { return -1 }})
	require.Equal(t, 3, r.Len())

	var names []string
	r.Search([]byte("SCPX1234"), func(m magic.Match) bool {
		names = append(names, m.Name)
		return false
	})
	// "SCP" prefixes the input; "SCPX" registered but its probe rejects.
	require.Equal(t, []string{"scp"}, names)

	m, ok := r.Identify([]byte("CAPS...."))
	require.True(t, ok)
	require.Equal(t, "caps", m.Name)
	require.Equal(t, 100, m.Confidence)

	_, ok = r.Identify([]byte("nothing"))
	require.False(t, ok)
}

func TestRegistryBestScore(t *testing.T) {
	r := magic.NewRegistry()
	r.Add(magic.Signature{Name: "weak", Magic: []byte("AB"), Probe: func([]byte) int { return 40 }})
	r.Add(magic.Signature{Name: "strong", Magic: []byte("ABC"), Probe: func([]byte) int { return 90 }})

	m, ok := r.Identify([]byte("ABCDEF"))
	require.True(t, ok)
	require.Equal(t, "strong", m.Name)
	require.Equal(t, 90, m.Confidence)
}

func TestSearchShortInput(t *testing.T) {
	r := magic.NewRegistry()
	r.Add(magic.Signature{Name: "caps", Magic: []byte("CAPS")})
	_, ok := r.Identify([]byte("CA"))
	require.False(t, ok)
}
