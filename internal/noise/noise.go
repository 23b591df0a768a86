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

// Package noise adds impulse noise to sample buffers, as test input for median filtering
package noise

import (
	"fmt"

	"github.com/valyala/fastrand"
)

// Sets each sample independently with the given probability to 0 or 255, half each.
// Returns the number of samples whose value changed
func SaltAndPepper(data []uint8, fraction float32, rng *fastrand.RNG) int {
	threshold := uint32(fraction * float32(1<<24))
	changed := 0
	for i, v := range data {
		r := rng.Uint32()
		if r&0xffffff >= threshold {
			continue
		}
		n := uint8(0)
		if r&(1<<31) != 0 {
			n = 255
		}
		if n != v {
			data[i] = n
			changed++
		}
	}
	return changed
}

// Applies salt and pepper noise with the given fraction, using a generator seeded with seed
func Apply(data []uint8, fraction float32, seed uint32) (int, error) {
	if !(fraction >= 0 && fraction <= 1) {
		return 0, fmt.Errorf("noise fraction %g outside [0,1]", fraction)
	}
	var rng fastrand.RNG
	rng.Seed(seed)
	return SaltAndPepper(data, fraction, &rng), nil
}
