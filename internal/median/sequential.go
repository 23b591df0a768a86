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

// Single-threaded reference engine
type Sequential struct{}

func NewSequential() *Sequential { return &Sequential{} }

func (e *Sequential) Name() string { return "sequential" }

// Applies the median filter to all interior pixels of src, storing results in dst.
// Does not touch the border of dst
func (e *Sequential) Filter(dst, src []uint8, g Geometry) error {
	if err := g.Validate(dst, src); err != nil {
		return err
	}
	band, stride := g.Interior(), g.RowStride()
	window := make([]uint8, g.WindowSize())
	filterBand(dst[band.Start*stride:band.End*stride], src, g, band, window)
	return nil
}

// Filters the interior columns of all rows in the given band.
// dstBand covers exactly the rows of the band, so its first sample is row band.Start, column 0.
// Window is private scratch of at least g.WindowSize() samples
func filterBand(dstBand, src []uint8, g Geometry, band Band, window []uint8) {
	r := g.Radius()
	base := band.Start * g.RowStride()
	for row := band.Start; row < band.End; row++ {
		for col := r; col < g.Cols-r; col++ {
			filterPixel(dstBand, src, g, row, col, base, window)
		}
	}
}
