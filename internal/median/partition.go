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

import "fmt"

// Half-open interval [Start, End) of image rows
type Band struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (b Band) Len() int { return b.End - b.Start }

func (b Band) String() string { return fmt.Sprintf("[%d,%d)", b.Start, b.End) }

// Splits the interior rows [radius, rows-radius) into at most n contiguous bands.
// Bands tile the interior without gaps or overlap, and their sizes differ by at most one,
// with the remainder going to the first bands. Returns fewer than n bands if there
// are fewer interior rows than n, and none if there is no interior or n<=0
func PartitionRows(rows, radius, n int) []Band {
	interior := rows - 2*radius
	if interior <= 0 || n <= 0 {
		return nil
	}
	if n > interior {
		n = interior
	}
	size, extra := interior/n, interior%n
	bands := make([]Band, n)
	start := radius
	for i := range bands {
		end := start + size
		if i < extra {
			end++
		}
		bands[i] = Band{Start: start, End: end}
		start = end
	}
	return bands
}
