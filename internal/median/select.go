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
	"github.com/mlnoga/medianlight/internal/qsort"
)

// Windows up to this size are sorted, larger ones use quickselect
const sortCutoff = 25

// Returns the median of a window, i.e. the value at sorted rank (len-1)/2.
// Reorders the window in place. Window must not be empty
func SelectMedian(window []uint8) uint8 {
	k := (len(window) - 1) / 2
	switch {
	case len(window) == 9:
		return medianUint8Slice9(window)
	case len(window) <= sortCutoff:
		qsort.SortUint8(window)
		return window[k]
	default:
		return qsort.SelectUint8(window, k)
	}
}

// Calculates the median of a uint8 slice of length nine
// Modifies the elements in place
// From https://stackoverflow.com/questions/45453537/optimal-9-element-sorting-network-that-reduces-to-an-optimal-median-of-9-network
// See also http://ndevilla.free.fr/median/median/src/optmed.c for other sizes
func medianUint8Slice9(a []uint8) uint8 { // 19 compare-exchanges
	_ = a[8]
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[1] > a[2] {
		a[1], a[2] = a[2], a[1]
	}
	if a[4] > a[5] {
		a[4], a[5] = a[5], a[4]
	}
	if a[7] > a[8] {
		a[7], a[8] = a[8], a[7]
	}
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[0] > a[3] { // max(0,3)
		a[3] = a[0]
	}
	if a[3] > a[6] { // max(3,6)
		a[6] = a[3]
	}
	if a[1] > a[4] {
		a[1], a[4] = a[4], a[1]
	}
	if a[4] > a[7] { // min(4,7)
		a[4] = a[7]
	}
	if a[1] > a[4] { // max(1,4)
		a[4] = a[1]
	}
	if a[5] > a[8] { // min(5,8)
		a[5] = a[8]
	}
	if a[2] > a[5] { // min(2,5)
		a[2] = a[5]
	}
	if a[2] > a[4] {
		a[2], a[4] = a[4], a[2]
	}
	if a[4] > a[6] { // min(4,6)
		a[4] = a[6]
	}
	if a[2] > a[4] { // max(2,4)
		a[4] = a[2]
	}
	return a[4]
}
