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
	"strings"
)

// How a caller initializes the border of the destination, which no engine writes
type BorderMode int

const (
	BorderKeep BorderMode = iota // leave whatever the destination held
	BorderCopy                   // copy border samples from the source
	BorderZero                   // set border samples to zero
)

var borderModeNames = []string{"keep", "copy", "zero"}

func (m BorderMode) String() string {
	if m < 0 || int(m) >= len(borderModeNames) {
		return fmt.Sprintf("BorderMode(%d)", int(m))
	}
	return borderModeNames[m]
}

func ParseBorderMode(s string) (BorderMode, error) {
	for i, name := range borderModeNames {
		if strings.EqualFold(s, name) {
			return BorderMode(i), nil
		}
	}
	return BorderKeep, fmt.Errorf("unknown border mode '%s', want one of %v", s, borderModeNames)
}

// Initializes the border of dst according to the given mode. Interior samples are left alone
func InitBorder(dst, src []uint8, g Geometry, m BorderMode) error {
	switch m {
	case BorderKeep:
		return nil
	case BorderCopy:
		if err := g.Validate(dst, src); err != nil {
			return err
		}
		forEachBorderRun(g, func(from, to int) { copy(dst[from:to], src[from:to]) })
	case BorderZero:
		if err := g.Check(); err != nil {
			return err
		}
		if len(dst) != g.Len() {
			return fmt.Errorf("%w: destination has %d samples, want %d", ErrBufferLength, len(dst), g.Len())
		}
		forEachBorderRun(g, func(from, to int) {
			for i := from; i < to; i++ {
				dst[i] = 0
			}
		})
	default:
		return fmt.Errorf("unknown border mode %d", int(m))
	}
	return nil
}

// Calls fn for each contiguous run [from, to) of border samples
func forEachBorderRun(g Geometry, fn func(from, to int)) {
	r, stride := g.Radius(), g.RowStride()
	if r == 0 {
		return
	}
	fn(0, r*stride) // top rows
	edge := r * g.Channels
	for row := r; row < g.Rows-r; row++ {
		start := row * stride
		fn(start, start+edge)               // left columns
		fn(start+stride-edge, start+stride) // right columns
	}
	fn((g.Rows-r)*stride, g.Rows*stride) // bottom rows
}
