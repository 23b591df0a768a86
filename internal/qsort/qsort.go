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

package qsort

// Below this length, sorting falls back to insertion sort
const insertionCutoff = 12

// Sort an array of uint8 in ascending order, in place.
func SortUint8(a []uint8) {
	for len(a) > insertionCutoff {
		index := PartitionUint8(a)
		// recurse into the smaller half, iterate over the larger one
		if index+1 < len(a)-index-1 {
			SortUint8(a[:index+1])
			a = a[index+1:]
		} else {
			SortUint8(a[index+1:])
			a = a[:index+1]
		}
	}
	insertionSortUint8(a)
}

func insertionSortUint8(a []uint8) {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i
		for ; j > 0 && a[j-1] > v; j-- {
			a[j] = a[j-1]
		}
		a[j] = v
	}
}

// Partitions an array of uint8 with the middle pivot element, and returns the pivot index.
// Values less than the pivot are moved left of the pivot, those greater are moved right.
func PartitionUint8(a []uint8) int {
	left, right := 0, len(a)-1
	mid := (left + right) >> 1
	pivot := a[mid]
	l := left - 1
	r := right + 1
	for {
		for {
			l++
			if a[l] >= pivot {
				break
			}
		}
		for {
			r--
			if a[r] <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}

// Select the element with zero-based rank k from an array of uint8. Partially reorders the array.
func SelectUint8(a []uint8, k int) uint8 {
	left, right := 0, len(a)-1
	for left < right {
		index := left + PartitionUint8(a[left:right+1])
		if k <= index {
			right = index
		} else {
			left = index + 1
		}
	}
	return a[k]
}
