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
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/uftool/uft/internal/cpm"
	"github.com/uftool/uft/internal/detect"
	"github.com/uftool/uft/internal/disk"
	"github.com/uftool/uft/internal/gate"
)

var (
	cpmUser          uint8
	cpmOverride      string
	cpmGatePolicyLoc string
)

var cpmCmd = &cobra.Command{
	Use:   "cpm",
	Short: "Work with CP/M filesystem images",
}

// mountCpm detects the image's CP/M flavour and opens the filesystem over
// the in-memory bytes.
func mountCpm(data []byte, writable bool) (*cpm.Disk, *disk.ImageStore, error) {
	g, ok := disk.ResolveGeometry(uint64(len(data)))
	if !ok {
		return nil, nil, errors.New("image size matches no known geometry")
	}
	store, err := disk.NewImageStore(g, data)
	if err != nil {
		return nil, nil, err
	}

	res, err := detect.Detect(data, detect.Options{Reader: store})
	if err != nil {
		return nil, nil, err
	}
	var detail *detect.CpmDetail
	for _, c := range res.Candidates {
		if d, ok := c.Detail.(*detect.CpmDetail); ok && c.Kind.IsCpm() {
			detail = d
			break
		}
	}
	if detail == nil {
		return nil, nil, errors.New("no CP/M filesystem detected")
	}

	var w disk.SectorWriter
	if writable {
		w = store
	}
	d, err := cpm.Open(g, detail.Dpb, store, w)
	if err != nil {
		return nil, nil, err
	}
	return d, store, nil
}

// gateWrite runs the write gate against the image before a mutating
// operation touches it.
func gateWrite(target []byte) error {
	policy := gate.DefaultPolicy()
	if cpmGatePolicyLoc != "" {
		p, err := gate.LoadPolicy(cpmGatePolicyLoc)
		if err != nil {
			return err
		}
		policy = p
	}
	decision := gate.Evaluate(gate.Request{
		Target:   target,
		Policy:   policy,
		Override: cpmOverride,
	})
	if !decision.Allowed() {
		return errors.Errorf("write gate: %s (%s)", decision.Status, decision.Reason)
	}
	if decision.Snapshot != nil {
		fmt.Printf("Snapshot: %s\n", decision.Snapshot.Path)
	}
	return nil
}

var cpmLsCmd = &cobra.Command{
	Use:   "ls <image>",
	Short: "List the directory of a CP/M image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		d, _, err := mountCpm(data, false)
		if err != nil {
			return err
		}

		files := d.ReadDirectory()
		for _, f := range files {
			fmt.Printf("%2d: %-12s %8s  %s\n", f.User, f.Name,
				humanize.Bytes(f.Size), f.Attr)
		}
		free, bytes := d.FreeSpace()
		fmt.Printf("%d files, %d blocks free (%s)\n", len(files), free, humanize.Bytes(bytes))
		return nil
	},
}

var cpmCatCmd = &cobra.Command{
	Use:   "cat <image> <name>",
	Short: "Print a file from a CP/M image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		d, _, err := mountCpm(data, false)
		if err != nil {
			return err
		}
		content, err := d.ReadFile(strings.ToUpper(args[1]), cpmUser)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content)
		return err
	},
}

var cpmPutCmd = &cobra.Command{
	Use:   "put <image> <file>",
	Short: "Copy a host file onto a CP/M image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := gateWrite(data); err != nil {
			return err
		}
		d, store, err := mountCpm(data, true)
		if err != nil {
			return err
		}

		payload, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		name := strings.ToUpper(filepath.Base(args[1]))
		user := cpmUser
		if user == cpm.WildcardUser {
			user = 0
		}
		if err := d.WriteFile(name, user, payload); err != nil {
			return err
		}
		return os.WriteFile(args[0], store.Bytes(), 0o644)
	},
}

var cpmRmCmd = &cobra.Command{
	Use:   "rm <image> <name>",
	Short: "Delete a file from a CP/M image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := gateWrite(data); err != nil {
			return err
		}
		d, store, err := mountCpm(data, true)
		if err != nil {
			return err
		}
		if err := d.DeleteFile(strings.ToUpper(args[1]), cpmUser); err != nil {
			return err
		}
		return os.WriteFile(args[0], store.Bytes(), 0o644)
	},
}

func init() {
	cpmCmd.PersistentFlags().Uint8Var(&cpmUser, "user", cpm.WildcardUser, "CP/M user area (default: any)")
	cpmCmd.PersistentFlags().StringVar(&cpmOverride, "override", "", "override reason for gated writes")
	cpmCmd.PersistentFlags().StringVar(&cpmGatePolicyLoc, "gate-policy", "", "YAML gate policy file")
	cpmCmd.AddCommand(cpmLsCmd, cpmCatCmd, cpmPutCmd, cpmRmCmd)
	rootCmd.AddCommand(cpmCmd)
}
