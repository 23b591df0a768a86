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

package stats

import (
	"math"
	"testing"
)

func TestHistogramStats(t *testing.T) {
	// two channels, the first holds 1..5, the second is constant
	data := []uint8{4, 9, 1, 9, 5, 9, 2, 9, 3, 9}
	cs := Calc(data, 2)
	if len(cs) != 2 {
		t.Fatalf("%d channels; want 2", len(cs))
	}

	s := cs[0]
	if s.Count != 5 || s.Min != 1 || s.Max != 5 || s.Median != 3 {
		t.Errorf("channel 0 = %v; want count 5 min 1 max 5 median 3", s)
	}
	if math.Abs(s.Mean-3) > 1e-12 {
		t.Errorf("mean %g; want 3", s.Mean)
	}
	if math.Abs(s.StdDev-math.Sqrt(2.5)) > 1e-9 {
		t.Errorf("stddev %g; want %g", s.StdDev, math.Sqrt(2.5))
	}

	s = cs[1]
	if s.Min != 9 || s.Max != 9 || s.Mode != 9 || s.StdDev != 0 {
		t.Errorf("channel 1 = %v; want constant 9", s)
	}
	if cs.Flat() {
		t.Errorf("Flat() = true; want false")
	}
	if !Calc([]uint8{7, 7, 7}, 1).Flat() {
		t.Errorf("constant image not flat")
	}
}

func TestHistogramRank(t *testing.T) {
	h := NewHistogram([]uint8{0, 0, 200, 200, 200, 7}, 0, 1)
	want := []uint8{0, 0, 7, 200, 200, 200, 200}
	for k, w := range want {
		if got := h.Rank(int64(k)); got != w {
			t.Errorf("Rank(%d) = %d; want %d", k, got, w)
		}
	}
	if v, c := h.Peak(); v != 200 || c != 3 {
		t.Errorf("Peak() = %d, %d; want 200, 3", v, c)
	}
	// even count: lower median
	if m := NewHistogram([]uint8{1, 2, 3, 4}, 0, 1).Stats().Median; m != 2 {
		t.Errorf("median of 1..4 = %d; want 2", m)
	}
}

func TestEmptyStats(t *testing.T) {
	if s := (&Histogram{}).Stats(); s != (Stats{}) {
		t.Errorf("empty stats %v", s)
	}
}
