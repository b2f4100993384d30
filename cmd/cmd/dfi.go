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
package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/uftool/uft/internal/dfi"
	"github.com/uftool/uft/internal/mmap"
)

var dfiCmd = &cobra.Command{
	Use:   "dfi",
	Short: "Inspect DiscFerret DFI flux containers",
}

var dfiInfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show per-track flux statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := mmap.Open(args[0])
		if err != nil {
			return err
		}
		defer img.Close()

		f, err := dfi.Parse(img.Data)
		if err != nil {
			return err
		}

		fmt.Printf("Version %d, %d tracks\n", f.Version, len(f.Tracks))
		for _, t := range f.Tracks {
			ms := float64(t.TotalTime) / float64(t.SampleRate) * 1000
			fmt.Printf("track %02d.%d: %s transitions, %d index pulses, %.2f ms\n",
				t.Cylinder, t.Head, humanize.Comma(int64(len(t.FluxTimes))),
				len(t.IndexTimes), ms)
		}
		return nil
	},
}

func init() {
	dfiCmd.AddCommand(dfiInfoCmd)
	rootCmd.AddCommand(dfiCmd)
}
