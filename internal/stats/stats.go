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

// Package stats computes basic statistics of 8-bit image channels from histograms
package stats

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Histogram of the 8-bit samples of one channel
type Histogram [256]int64

// Calculates the histogram of the given channel of interleaved data with the given number of channels
func NewHistogram(data []uint8, channel, channels int) *Histogram {
	h := &Histogram{}
	for i := channel; i < len(data); i += channels {
		h[data[i]]++
	}
	return h
}

// Total number of samples
func (h *Histogram) Count() int64 {
	n := int64(0)
	for _, c := range h {
		n += c
	}
	return n
}

// Returns the most frequent value and its count. Ties go to the lowest value
func (h *Histogram) Peak() (value uint8, count int64) {
	for i, c := range h {
		if c > count {
			value, count = uint8(i), c
		}
	}
	return value, count
}

// Returns the sample with the given zero-based rank in sorted order.
// Ranks beyond the count return the largest sample
func (h *Histogram) Rank(k int64) uint8 {
	last := uint8(0)
	for i, c := range h {
		if c == 0 {
			continue
		}
		last = uint8(i)
		if k < c {
			return last
		}
		k -= c
	}
	return last
}

// Basic statistics of one channel
type Stats struct {
	Count  int64   `json:"count"`
	Min    uint8   `json:"min"`
	Max    uint8   `json:"max"`
	Median uint8   `json:"median"` // lower median, as for the median filter
	Mode   uint8   `json:"mode"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Calculates statistics from the histogram
func (h *Histogram) Stats() Stats {
	s := Stats{Count: h.Count()}
	if s.Count == 0 {
		return s
	}
	xs, ws := make([]float64, 0, len(h)), make([]float64, 0, len(h))
	for i, c := range h {
		if c == 0 {
			continue
		}
		xs, ws = append(xs, float64(i)), append(ws, float64(c))
	}
	s.Min, s.Max = uint8(xs[0]), uint8(xs[len(xs)-1])
	s.Median = h.Rank((s.Count - 1) / 2)
	s.Mode, _ = h.Peak()
	s.Mean = stat.Mean(xs, ws)
	if s.Count > 1 {
		s.StdDev = stat.StdDev(xs, ws)
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("min %d max %d mean %.2f stddev %.2f median %d mode %d", s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.Mode)
}

// Statistics for each channel of an image
type ChannelStats []Stats

// Calculates statistics for each channel of interleaved data
func Calc(data []uint8, channels int) ChannelStats {
	cs := make(ChannelStats, channels)
	for ch := range cs {
		cs[ch] = NewHistogram(data, ch, channels).Stats()
	}
	return cs
}

// Returns true if all samples of all channels have the same value
func (cs ChannelStats) Flat() bool {
	for _, s := range cs {
		if s.Count > 0 && s.Min != s.Max {
			return false
		}
	}
	return true
}

func (cs ChannelStats) String() string {
	parts := make([]string, len(cs))
	for i, s := range cs {
		parts[i] = fmt.Sprintf("ch%d %v", i, s)
	}
	return strings.Join(parts, "; ")
}
