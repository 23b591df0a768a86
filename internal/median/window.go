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

// Gathers the KernelSize x KernelSize samples of channel ch around (row, col) into window,
// in read order: kernel rows top to bottom, each left to right.
// The window must lie entirely inside the image, i.e. row in [r, Rows-r) and col in [r, Cols-r)
// for radius r. No clamping or padding is performed.
func SampleWindow(window, src []uint8, g Geometry, row, col, ch int) {
	r := g.Radius()
	step := g.Channels
	i := 0
	for kr := -r; kr <= r; kr++ {
		off := g.Offset(row+kr, col-r, ch)
		for kc := -r; kc <= r; kc++ {
			window[i] = src[off]
			off += step
			i++
		}
	}
}
