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

	"github.com/spf13/cobra"

	"github.com/uftool/uft/internal/ipf"
	"github.com/uftool/uft/internal/mmap"
)

var ipfStrict bool

var ipfCmd = &cobra.Command{
	Use:   "ipf",
	Short: "Inspect IPF/CAPS preservation containers",
}

var ipfInfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show container metadata and per-track protection markers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := mmap.Open(args[0])
		if err != nil {
			return err
		}
		defer img.Close()

		f, err := ipf.Parse(img.Data, ipf.ParseOptions{Strict: ipfStrict})
		if err != nil {
			return err
		}

		fmt.Printf("Records: %d (%d unknown)\n", len(f.Records), f.UnknownRecords)
		if f.Info != nil {
			fmt.Printf("Encoder: %d rev %d, tracks %d..%d, sides %d..%d\n",
				f.Info.EncoderType, f.Info.EncoderRev,
				f.Info.MinTrack, f.Info.MaxTrack, f.Info.MinSide, f.Info.MaxSide)
			fmt.Printf("Created: %08d %09d\n", f.Info.CreationDate, f.Info.CreationTime)
		}
		if f.Warnings != 0 {
			fmt.Printf("Warnings: 0x%02X\n", uint32(f.Warnings))
		}
		for _, p := range f.Protection() {
			if !p.Fuzzy && !p.Protected {
				continue
			}
			fmt.Printf("track %02d.%d: fuzzy=%v protected=%v density=%d\n",
				p.Track, p.Side, p.Fuzzy, p.Protected, p.Density)
		}
		return nil
	},
}

func init() {
	ipfCmd.PersistentFlags().BoolVar(&ipfStrict, "strict", false, "fail on CRC mismatches and truncation")
	ipfCmd.AddCommand(ipfInfoCmd)
	rootCmd.AddCommand(ipfCmd)
}
