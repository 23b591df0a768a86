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
	"math"
)

// Shape of a flat interleaved image, plus the size of the square filter kernel.
// Sample (row, col, ch) lives at Channels*Cols*row + Channels*col + ch
type Geometry struct {
	Rows       int `json:"rows"`
	Cols       int `json:"cols"`
	Channels   int `json:"channels"`
	KernelSize int `json:"kernelSize"`
}

// Half width of the kernel. Rows and columns closer than this to an edge form the border
func (g Geometry) Radius() int { return g.KernelSize / 2 }

// Number of samples in one window, i.e. KernelSize squared
func (g Geometry) WindowSize() int { return g.KernelSize * g.KernelSize }

// Rank of the median within a sorted window
func (g Geometry) MedianIndex() int { return (g.WindowSize() - 1) / 2 }

// Number of samples per image row
func (g Geometry) RowStride() int { return g.Channels * g.Cols }

// Total number of samples in the image buffer
func (g Geometry) Len() int { return g.Rows * g.Cols * g.Channels }

// Rows visited by the engines
func (g Geometry) Interior() Band { return Band{Start: g.Radius(), End: g.Rows - g.Radius()} }

// Buffer offset of the given sample. Panics on out-of-range coordinates in debug builds
func (g Geometry) Offset(row, col, ch int) int {
	if debugChecks {
		if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols || ch < 0 || ch >= g.Channels {
			panic(fmt.Sprintf("offset (%d,%d,%d) outside %dx%dx%d image", row, col, ch, g.Rows, g.Cols, g.Channels))
		}
	}
	return g.Channels*g.Cols*row + g.Channels*col + ch
}

// Checks dimensions and kernel size, independent of any buffer
func (g Geometry) Check() error {
	if g.Rows <= 0 || g.Cols <= 0 || g.Channels <= 0 {
		return fmt.Errorf("%w: rows=%d cols=%d channels=%d", ErrGeometry, g.Rows, g.Cols, g.Channels)
	}
	if g.Cols > math.MaxInt/g.Rows || g.Channels > math.MaxInt/(g.Rows*g.Cols) {
		return fmt.Errorf("%w: %dx%dx%d samples overflow int", ErrGeometry, g.Cols, g.Rows, g.Channels)
	}
	if g.KernelSize < 1 {
		return fmt.Errorf("%w: got %d", ErrKernelSize, g.KernelSize)
	}
	if g.KernelSize%2 == 0 {
		return fmt.Errorf("%w: got %d", ErrEvenKernel, g.KernelSize)
	}
	if r := g.Radius(); 2*r >= g.Rows || 2*r >= g.Cols {
		return fmt.Errorf("%w: kernel %d on %dx%d pixels", ErrKernelTooLarge, g.KernelSize, g.Rows, g.Cols)
	}
	return nil
}

// Checks the geometry against a source and destination buffer pair
func (g Geometry) Validate(dst, src []uint8) error {
	if err := g.Check(); err != nil {
		return err
	}
	if len(src) != g.Len() {
		return fmt.Errorf("%w: source has %d samples, want %d", ErrBufferLength, len(src), g.Len())
	}
	if len(dst) != g.Len() {
		return fmt.Errorf("%w: destination has %d samples, want %d", ErrBufferLength, len(dst), g.Len())
	}
	if &dst[0] == &src[0] {
		return ErrAliasedBuffers
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%d kernel %d", g.Cols, g.Rows, g.Channels, g.KernelSize)
}
