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
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/uftool/uft/internal/detect"
	"github.com/uftool/uft/internal/disk"
	"github.com/uftool/uft/internal/mmap"
	"github.com/uftool/uft/internal/session"
	"github.com/uftool/uft/pkg/report"
)

var detectReportFile string

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Identify the geometry and filesystem of a disk image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := mmap.Open(args[0])
		if err != nil {
			return err
		}
		defer img.Close()

		opts := detect.Options{Logger: slog.Default()}
		if g, ok := disk.ResolveGeometry(uint64(len(img.Data))); ok {
			if store, err := disk.NewImageStore(g, img.Data); err == nil {
				opts.Reader = store
			}
		}

		res, err := detect.Detect(img.Data, opts)
		if err != nil {
			return err
		}

		fmt.Printf("Image:    %s (%s)\n", args[0], humanize.Bytes(uint64(len(img.Data))))
		if res.GeometryKnown {
			fmt.Printf("Geometry: %s\n", res.Geometry)
		} else {
			fmt.Println("Geometry: unknown")
		}
		if len(res.Candidates) == 0 {
			fmt.Println("No format candidates.")
			return nil
		}
		for i, c := range res.Candidates {
			fmt.Printf("%d. %-28s %3d%%  %s\n", i+1, c.Describe(), c.Confidence, c.Machine)
			if c.Detail != nil {
				fmt.Printf("   %s\n", c.Detail.Render())
			}
		}

		if detectReportFile != "" {
			return writeDetectReport(detectReportFile, args[0], res, uint64(len(img.Data)))
		}
		return nil
	},
}

func writeDetectReport(path, image string, res *detect.Result, size uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := report.NewWriter(f)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WriteHeader(report.Header{
		Tool:      appName,
		Session:   session.NewID(),
		Image:     image,
		ImageSize: size,
		Geometry:  res.Geometry.String(),
	}); err != nil {
		return err
	}
	for _, c := range res.Candidates {
		if err := w.WriteItem(report.Item{
			Name:       c.Describe(),
			Kind:       c.Kind.String(),
			Confidence: c.Confidence,
		}); err != nil {
			return err
		}
	}
	return w.Close()
}

func init() {
	detectCmd.Flags().StringVar(&detectReportFile, "report", "", "write an XML report to this file")
	rootCmd.AddCommand(detectCmd)
}
