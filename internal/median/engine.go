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

// Package median applies windowed median filters to flat, interleaved 8-bit images.
// Three engines produce identical interior output: Sequential, HostParallel and Accelerator.
// Engines never touch the border of the destination, never modify the source,
// and perform no I/O.
package median

import (
	"errors"
	"fmt"
)

// An engine applies a median filter with the kernel size given in the geometry.
// Filter reads src and writes the interior pixels of dst. Both must have length g.Len().
// Either the full interior of dst is written, or an error is returned before any write.
type Engine interface {
	Name() string
	Filter(dst, src []uint8, g Geometry) error
}

// Configuration errors abort an engine before any work is dispatched
var (
	ErrConfiguration = errors.New("configuration error")
	ErrNoParallelism = fmt.Errorf("%w: host parallelism is zero or unknown", ErrConfiguration)
	ErrNoDevice      = fmt.Errorf("%w: no accelerator device", ErrConfiguration)
)

// Precondition violations on buffers and geometry. All of them wrap ErrPrecondition
var (
	ErrPrecondition   = errors.New("precondition violated")
	ErrGeometry       = fmt.Errorf("%w: image dimensions must be positive", ErrPrecondition)
	ErrKernelSize     = fmt.Errorf("%w: kernel size must be at least 1", ErrPrecondition)
	ErrEvenKernel     = fmt.Errorf("%w: kernel size must be odd", ErrPrecondition)
	ErrKernelTooLarge = fmt.Errorf("%w: kernel does not fit into image", ErrPrecondition)
	ErrBufferLength   = fmt.Errorf("%w: buffer length does not match rows*cols*channels", ErrPrecondition)
	ErrAliasedBuffers = fmt.Errorf("%w: source and destination must be distinct buffers", ErrPrecondition)
)

// Filters the pixel at row, col across all channels. Destination offsets are shifted down by base.
// Window is private scratch of at least g.WindowSize() samples
func filterPixel(dst, src []uint8, g Geometry, row, col, base int, window []uint8) {
	window = window[:g.WindowSize()]
	for ch := 0; ch < g.Channels; ch++ {
		SampleWindow(window, src, g, row, col, ch)
		dst[g.Offset(row, col, ch)-base] = SelectMedian(window)
	}
}
