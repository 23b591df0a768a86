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

// Package bench times median filter engines and checks their outputs against each other
package bench

import (
	"fmt"
	"sort"
	"time"

	"github.com/mlnoga/medianlight/internal/median"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Wraps an engine and records the wall clock duration of each call to Filter.
// For the accelerator this includes the host/device transfers
type Timed struct {
	Engine    median.Engine
	Clock     func() time.Time
	Durations []time.Duration
}

func NewTimed(e median.Engine) *Timed {
	return &Timed{Engine: e, Clock: time.Now}
}

func (t *Timed) Name() string { return t.Engine.Name() }

func (t *Timed) Filter(dst, src []uint8, g median.Geometry) error {
	clock := t.Clock
	if clock == nil {
		clock = time.Now
	}
	start := clock()
	err := t.Engine.Filter(dst, src, g)
	if err != nil {
		return err
	}
	t.Durations = append(t.Durations, clock().Sub(start))
	return nil
}

// Timing summary for one engine
type Result struct {
	Engine           string
	Durations        []time.Duration
	Mean             time.Duration
	StdDev           time.Duration
	Min              time.Duration
	Median           time.Duration
	Mismatches       int  // interior samples differing from the reference output
	MatchesReference bool // output is byte-identical to the first engine's
}

func (r Result) String() string {
	match := "ok"
	if !r.MatchesReference {
		match = fmt.Sprintf("%d mismatches", r.Mismatches)
	}
	return fmt.Sprintf("%-12s runs %d mean %8.3fms stddev %7.3fms min %8.3fms median %8.3fms %s",
		r.Engine, len(r.Durations), ms(r.Mean), ms(r.StdDev), ms(r.Min), ms(r.Median), match)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Summarizes a series of durations
func summarize(engine string, durations []time.Duration) Result {
	xs := make([]float64, len(durations))
	for i, d := range durations {
		xs[i] = float64(d)
	}
	r := Result{Engine: engine, Durations: durations}
	if len(xs) == 0 {
		return r
	}
	r.Mean = time.Duration(stat.Mean(xs, nil))
	if len(xs) > 1 {
		r.StdDev = time.Duration(stat.StdDev(xs, nil))
	}
	r.Min = time.Duration(floats.Min(xs))
	sort.Float64s(xs)
	r.Median = time.Duration(stat.Quantile(0.5, stat.Empirical, xs, nil))
	return r
}

// Filters src with each engine runs times, into fresh destination buffers initialized
// per border mode. Outputs of all runs are compared against the first engine's first output
func Run(engines []median.Engine, src []uint8, g median.Geometry, runs int, border median.BorderMode) ([]Result, error) {
	if runs < 1 {
		return nil, fmt.Errorf("invalid number of runs %d", runs)
	}
	if len(engines) == 0 {
		return nil, fmt.Errorf("no engines to benchmark")
	}

	var reference []uint8
	results := make([]Result, 0, len(engines))
	for _, e := range engines {
		timed := NewTimed(e)
		mismatches := 0
		for i := 0; i < runs; i++ {
			dst := make([]uint8, len(src))
			if err := median.InitBorder(dst, src, g, border); err != nil {
				return nil, err
			}
			if err := timed.Filter(dst, src, g); err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name(), err)
			}
			if reference == nil {
				reference = dst
				continue
			}
			if m, _ := Compare(reference, dst, g); m > mismatches {
				mismatches = m
			}
		}
		r := summarize(e.Name(), timed.Durations)
		r.Mismatches, r.MatchesReference = mismatches, mismatches == 0
		results = append(results, r)
	}
	return results, nil
}

// Counts the interior samples in which a and b differ, and returns the offset of the
// first one, or -1 if they are equal
func Compare(a, b []uint8, g median.Geometry) (mismatches int, first int) {
	first = -1
	if len(a) != g.Len() || len(b) != g.Len() {
		return g.Len(), 0
	}
	r := g.Radius()
	interior := g.Interior()
	for row := interior.Start; row < interior.End; row++ {
		from, to := g.Offset(row, r, 0), g.Offset(row, g.Cols-r-1, g.Channels-1)+1
		for i := from; i < to; i++ {
			if a[i] != b[i] {
				if first < 0 {
					first = i
				}
				mismatches++
			}
		}
	}
	return mismatches, first
}
