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

package bench

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mlnoga/medianlight/internal/median"
	"github.com/valyala/fastrand"
)

// Returns a clock advancing by the given steps on successive calls, cycling
func fakeClock(steps ...time.Duration) func() time.Time {
	now, i := time.Unix(0, 0), 0
	return func() time.Time {
		now = now.Add(steps[i%len(steps)])
		i++
		return now
	}
}

// Engine which filters correctly, then flips the first interior sample
type broken struct{ median.Engine }

func (b broken) Name() string { return "broken" }

func (b broken) Filter(dst, src []uint8, g median.Geometry) error {
	if err := b.Engine.Filter(dst, src, g); err != nil {
		return err
	}
	r := g.Radius()
	dst[g.Offset(r, r, 0)] ^= 1
	return nil
}

type failing struct{}

func (failing) Name() string                                     { return "failing" }
func (failing) Filter(dst, src []uint8, g median.Geometry) error { return errors.New("boom") }

func testImage(g median.Geometry) []uint8 {
	var rng fastrand.RNG
	rng.Seed(5)
	src := make([]uint8, g.Len())
	for i := range src {
		src[i] = uint8(rng.Uint32n(256))
	}
	return src
}

func TestTimedRecordsDurations(t *testing.T) {
	g := median.Geometry{Rows: 8, Cols: 8, Channels: 1, KernelSize: 3}
	src := testImage(g)
	timed := NewTimed(median.NewSequential())
	timed.Clock = fakeClock(0, 3*time.Millisecond)
	for i := 0; i < 2; i++ {
		if err := timed.Filter(make([]uint8, len(src)), src, g); err != nil {
			t.Fatal(err)
		}
	}
	if len(timed.Durations) != 2 || timed.Durations[0] != 3*time.Millisecond || timed.Durations[1] != 3*time.Millisecond {
		t.Errorf("durations %v; want [3ms 3ms]", timed.Durations)
	}
	if timed.Name() != "sequential" {
		t.Errorf("name %q; want sequential", timed.Name())
	}
}

func TestSummarize(t *testing.T) {
	r := summarize("x", []time.Duration{4 * time.Millisecond, 1 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 5 * time.Millisecond})
	if r.Mean != 3*time.Millisecond {
		t.Errorf("mean %v; want 3ms", r.Mean)
	}
	if r.Min != time.Millisecond {
		t.Errorf("min %v; want 1ms", r.Min)
	}
	if r.Median != 3*time.Millisecond {
		t.Errorf("median %v; want 3ms", r.Median)
	}
	// sample standard deviation of 1..5 is sqrt(2.5)
	if d := r.StdDev - 1581138*time.Nanosecond; d < -time.Microsecond || d > time.Microsecond {
		t.Errorf("stddev %v; want about 1.581ms", r.StdDev)
	}
	if single := summarize("y", []time.Duration{time.Second}); single.StdDev != 0 || single.Median != time.Second {
		t.Errorf("single run summary %+v", single)
	}
}

func TestRunReportsEquivalence(t *testing.T) {
	g := median.Geometry{Rows: 40, Cols: 30, Channels: 3, KernelSize: 5}
	src := testImage(g)
	engines := []median.Engine{
		median.NewSequential(),
		median.NewHostParallel(4),
		broken{median.NewSequential()},
	}
	results, err := Run(engines, src, g, 3, median.BorderCopy)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("%d results; want 3", len(results))
	}
	for i, want := range []bool{true, true, false} {
		r := results[i]
		if r.MatchesReference != want {
			t.Errorf("%s: matches %v; want %v", r.Engine, r.MatchesReference, want)
		}
		if len(r.Durations) != 3 {
			t.Errorf("%s: %d durations; want 3", r.Engine, len(r.Durations))
		}
	}
	if results[2].Mismatches != 1 {
		t.Errorf("broken engine mismatches %d; want 1", results[2].Mismatches)
	}
	if s := results[2].String(); !strings.Contains(s, "1 mismatches") {
		t.Errorf("report %q lacks mismatch count", s)
	}
}

func TestRunErrors(t *testing.T) {
	g := median.Geometry{Rows: 8, Cols: 8, Channels: 1, KernelSize: 3}
	src := testImage(g)
	if _, err := Run([]median.Engine{median.NewSequential()}, src, g, 0, median.BorderCopy); err == nil {
		t.Errorf("zero runs succeeded; want error")
	}
	if _, err := Run(nil, src, g, 1, median.BorderCopy); err == nil {
		t.Errorf("no engines succeeded; want error")
	}
	if _, err := Run([]median.Engine{failing{}}, src, g, 1, median.BorderCopy); err == nil {
		t.Errorf("failing engine succeeded; want error")
	}
	bad := g
	bad.KernelSize = 4
	if _, err := Run([]median.Engine{median.NewSequential()}, src, bad, 1, median.BorderCopy); !errors.Is(err, median.ErrPrecondition) {
		t.Errorf("even kernel err = %v; want ErrPrecondition", err)
	}
}

func TestCompare(t *testing.T) {
	g := median.Geometry{Rows: 5, Cols: 6, Channels: 2, KernelSize: 3}
	a := testImage(g)
	b := append([]uint8(nil), a...)
	if m, first := Compare(a, b, g); m != 0 || first != -1 {
		t.Errorf("Compare(equal) = %d, %d; want 0, -1", m, first)
	}
	b[0]++ // border
	b[g.Offset(2, 3, 1)]++
	b[g.Offset(3, 4, 0)]++
	if m, first := Compare(a, b, g); m != 2 || first != g.Offset(2, 3, 1) {
		t.Errorf("Compare = %d, %d; want 2, %d", m, first, g.Offset(2, 3, 1))
	}
}
