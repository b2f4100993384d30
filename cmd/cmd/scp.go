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
	"time"

	"github.com/spf13/cobra"

	"github.com/uftool/uft/internal/dfi"
	"github.com/uftool/uft/internal/scp"
)

var (
	scpPort    string
	scpDrive   int
	scpTracks  uint8
	scpSides   uint8
	scpRevs    uint8
	scpRetries int
)

var scpCmd = &cobra.Command{
	Use:   "scp",
	Short: "Drive a SuperCard Pro flux capture device",
}

var scpProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Scan serial ports for a SuperCard Pro",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, hw, fw, err := scp.ScanPorts(2*time.Second, slog.Default())
		if err != nil {
			return err
		}
		fmt.Printf("Found SuperCard Pro on %s (hardware %d.%d, firmware %d.%d)\n",
			name, hw>>4, hw&0xF, fw>>4, fw&0xF)
		return nil
	},
}

var scpReadCmd = &cobra.Command{
	Use:   "read <out.dfi>",
	Short: "Capture a whole disk to a DFI container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := scp.OpenPort(scpPort, 5*time.Second)
		if err != nil {
			return err
		}
		dev := scp.NewDevice(port, slog.Default())
		defer dev.Close()

		drive := scp.DriveA
		if scpDrive == 1 {
			drive = scp.DriveB
		}
		if err := dev.SelectDrive(drive); err != nil {
			return err
		}
		if err := dev.MotorOn(drive); err != nil {
			return err
		}

		out := &dfi.File{Version: 2}
		failed := 0
		err = dev.ReadDisk(scp.ReadDiskOptions{
			Tracks:  scpTracks,
			Sides:   scpSides,
			Revs:    scpRevs,
			Retries: scpRetries,
			OnTrack: func(res scp.TrackResult) bool {
				if res.Err != nil {
					failed++
					fmt.Printf("track %02d.%d: FAILED (%v)\n", res.Track, res.Side, res.Err)
					return true
				}
				fmt.Printf("track %02d.%d: %d cells\n", res.Track, res.Side, len(res.Flux.Flux))
				out.Tracks = append(out.Tracks, fluxToDfi(res.Flux))
				return true
			},
		})
		if err != nil {
			return err
		}
		if failed > 0 {
			fmt.Printf("%d tracks failed\n", failed)
		}
		return os.WriteFile(args[0], dfi.Encode(out), 0o644)
	},
}

// fluxToDfi converts SCP tick intervals into a DFI track of absolute times
// at the SCP sample clock.
func fluxToDfi(ft *scp.FluxTrack) dfi.Track {
	t := dfi.Track{
		Cylinder:   uint32(ft.Track),
		Head:       uint32(ft.Side),
		SampleRate: scp.SampleClock,
	}
	var now uint64
	cell := 0
	for _, rev := range ft.Revs {
		t.IndexTimes = append(t.IndexTimes, now)
		for i := uint32(0); i < rev.CellCount && cell < len(ft.Flux); i++ {
			now += uint64(ft.Flux[cell])
			t.FluxTimes = append(t.FluxTimes, now)
			cell++
		}
	}
	t.TotalTime = now
	return t
}

func init() {
	scpReadCmd.Flags().StringVar(&scpPort, "port", "", "serial port of the device")
	scpReadCmd.Flags().IntVar(&scpDrive, "drive", 0, "drive connector (0=A, 1=B)")
	scpReadCmd.Flags().Uint8Var(&scpTracks, "tracks", 80, "tracks to capture")
	scpReadCmd.Flags().Uint8Var(&scpSides, "sides", 2, "sides to capture")
	scpReadCmd.Flags().Uint8Var(&scpRevs, "revs", 2, "revolutions per track")
	scpReadCmd.Flags().IntVar(&scpRetries, "retries", 2, "per-track retries")
	scpReadCmd.MarkFlagRequired("port")
	scpCmd.AddCommand(scpProbeCmd, scpReadCmd)
	rootCmd.AddCommand(scpCmd)
}
