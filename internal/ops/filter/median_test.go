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

package filter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/mlnoga/medianlight/internal/codec"
	"github.com/mlnoga/medianlight/internal/median"
	"github.com/mlnoga/medianlight/internal/ops"
	"github.com/mlnoga/medianlight/internal/ops/filter"
	"github.com/mlnoga/medianlight/internal/ops/pre"
	"github.com/valyala/fastrand"
)

const pipelineJSON = `{"type":"seq","active":true,"steps":[
	{"type":"load","fileName":"in.png"},
	{"type":"noise","fraction":0.2,"seed":7},
	{"type":"filter","engine":"sequential","kernelSize":5},
	{"type":"save","filePattern":"out%d.png"}
]}`

func TestSequenceJSONRoundTrip(t *testing.T) {
	op, err := ops.UnmarshalOperator([]byte(pipelineJSON))
	if err != nil {
		t.Fatal(err)
	}
	seq := op.(*ops.OpSequence)
	wantTypes := []string{"load", "noise", "filter", "save"}
	if len(seq.Steps) != len(wantTypes) {
		t.Fatalf("%d steps; want %d", len(seq.Steps), len(wantTypes))
	}
	for i, step := range seq.Steps {
		if step.GetType() != wantTypes[i] {
			t.Errorf("step %d type %s; want %s", i, step.GetType(), wantTypes[i])
		}
	}
	m := seq.Steps[2].(*filter.OpMedian)
	if m.Engine != "sequential" || m.KernelSize != 5 || m.Workers != 0 || m.Border != "copy" || !m.Active {
		t.Errorf("filter step %+v; want defaults for missing fields", m)
	}
	if n := seq.Steps[1].(*pre.OpNoise); n.Fraction != 0.2 || n.Seed != 7 {
		t.Errorf("noise step %+v", n)
	}

	bs, err := json.Marshal(seq)
	if err != nil {
		t.Fatal(err)
	}
	again, err := ops.UnmarshalOperator(bs)
	if err != nil {
		t.Fatalf("%s: %s", bs, err)
	}
	bs2, _ := json.Marshal(again)
	if !bytes.Equal(bs, bs2) {
		t.Errorf("round trip changed JSON:\n%s\n%s", bs, bs2)
	}
}

func writeTestImage(t *testing.T, fileName string) *codec.Image {
	t.Helper()
	var rng fastrand.RNG
	rng.Seed(11)
	img := codec.NewImage(20, 24, 3)
	for i := range img.Data {
		img.Data[i] = uint8(rng.Uint32n(256))
	}
	if err := img.Write(fileName); err != nil {
		t.Fatal(err)
	}
	return img
}

func run(t *testing.T, op ops.Operator) ([]*codec.Image, error) {
	t.Helper()
	c := ops.NewContext(io.Discard)
	promises, err := op.MakePromises(nil, c)
	if err != nil {
		return nil, err
	}
	return ops.MaterializeAll(promises, c.MaxThreads, false)
}

func TestPipelineMatchesDirectFilter(t *testing.T) {
	chdir(t, t.TempDir())
	src := writeTestImage(t, "in.png")

	seq := ops.NewOpSequence(
		ops.NewOpLoad(0, "in.png"),
		filter.NewOpMedian("host", 3, 4, median.BorderCopy),
		ops.NewOpSave("out%d.png"),
	)
	if _, err := run(t, seq); err != nil {
		t.Fatal(err)
	}

	g := src.Geometry(3)
	want := make([]uint8, len(src.Data))
	if err := median.InitBorder(want, src.Data, g, median.BorderCopy); err != nil {
		t.Fatal(err)
	}
	if err := median.NewSequential().Filter(want, src.Data, g); err != nil {
		t.Fatal(err)
	}
	got, err := codec.Read("out0.png")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data, want) {
		t.Errorf("saved image differs from direct sequential filter")
	}
}

func TestPipelineWithNoise(t *testing.T) {
	chdir(t, t.TempDir())
	src := writeTestImage(t, "in.png")
	op, err := ops.UnmarshalOperator([]byte(pipelineJSON))
	if err != nil {
		t.Fatal(err)
	}
	outs, err := run(t, op)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 1 || outs[0].Rows != src.Rows || outs[0].Cols != src.Cols {
		t.Fatalf("outputs %v", outs)
	}
	if _, err := os.Stat("out0.png"); err != nil {
		t.Errorf("output not written: %s", err)
	}
}

func TestFilterErrors(t *testing.T) {
	chdir(t, t.TempDir())
	writeTestImage(t, "in.png")

	cases := []struct {
		name string
		op   ops.Operator
		want error
	}{
		{"even kernel", filter.NewOpMedian("sequential", 4, 0, median.BorderCopy), median.ErrPrecondition},
		{"kernel too large", filter.NewOpMedian("host", 21, 2, median.BorderKeep), median.ErrKernelTooLarge},
		{"unknown engine", filter.NewOpMedian("quantum", 3, 0, median.BorderCopy), nil},
		{"bad noise", pre.NewOpNoise(1.5, 1), nil},
	}
	for _, c := range cases {
		_, err := run(t, ops.NewOpSequence(ops.NewOpLoad(0, "in.png"), c.op))
		if err == nil {
			t.Errorf("%s: succeeded; want error", c.name)
			continue
		}
		if c.want != nil && !errors.Is(err, c.want) {
			t.Errorf("%s: err = %v; want %v", c.name, err, c.want)
		}
	}
}
