// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package median

import (
	"fmt"

	"github.com/mlnoga/medianlight/internal/device"
)

// Default block shape for accelerator launches
const (
	DefaultBlockX = 16
	DefaultBlockY = 16
)

// Data-parallel engine. Maps each destination pixel to one device thread.
// Copies source and destination to the device, launches a 2D grid covering the image,
// and copies the destination back after the launch completes
type Accelerator struct {
	Device *device.Device `json:"-"`
	BlockX int            `json:"blockX"` // 0=DefaultBlockX
	BlockY int            `json:"blockY"` // 0=DefaultBlockY
}

func NewAccelerator(dev *device.Device) *Accelerator {
	return &Accelerator{Device: dev, BlockX: DefaultBlockX, BlockY: DefaultBlockY}
}

func (e *Accelerator) Name() string { return "accelerator" }

func (e *Accelerator) blockDims() (int, int) {
	bx, by := e.BlockX, e.BlockY
	if bx <= 0 {
		bx = DefaultBlockX
	}
	if by <= 0 {
		by = DefaultBlockY
	}
	return bx, by
}

// Returns the launch configuration used for the given geometry
func (e *Accelerator) LaunchConfig(g Geometry) device.LaunchConfig {
	bx, by := e.blockDims()
	return device.LaunchConfig{
		Grid:       device.Dim3{X: (g.Cols + bx - 1) / bx, Y: (g.Rows + by - 1) / by, Z: 1},
		Block:      device.Dim3{X: bx, Y: by, Z: 1},
		LocalBytes: g.WindowSize(),
	}
}

// Applies the median filter to all interior pixels of src, storing results in dst.
// Includes host to device and device to host transfers. The destination is copied
// to the device as well, so border values set by the caller survive the round trip
func (e *Accelerator) Filter(dst, src []uint8, g Geometry) error {
	if e.Device == nil {
		return ErrNoDevice
	}
	if err := g.Validate(dst, src); err != nil {
		return err
	}

	devSrc, err := e.Device.Alloc(len(src))
	if err != nil {
		return fmt.Errorf("%s: allocating source: %w", e.Name(), err)
	}
	defer devSrc.Free()
	devDst, err := e.Device.Alloc(len(dst))
	if err != nil {
		return fmt.Errorf("%s: allocating destination: %w", e.Name(), err)
	}
	defer devDst.Free()

	if err := devSrc.CopyFromHost(src); err != nil {
		return fmt.Errorf("%s: %w", e.Name(), err)
	}
	if err := devDst.CopyFromHost(dst); err != nil {
		return fmt.Errorf("%s: %w", e.Name(), err)
	}

	in, out := devSrc.Bytes(), devDst.Bytes()
	r := g.Radius()
	err = e.Device.Launch(e.LaunchConfig(g), func(t *device.Thread) {
		row, col := t.GlobalY(), t.GlobalX()
		if row < r || row >= g.Rows-r || col < r || col >= g.Cols-r {
			return // border or padding thread
		}
		filterPixel(out, in, g, row, col, 0, t.Local)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", e.Name(), err)
	}

	if err := devDst.CopyToHost(dst); err != nil {
		return fmt.Errorf("%s: %w", e.Name(), err)
	}
	return nil
}
