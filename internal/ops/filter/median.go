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

package filter

import (
	"encoding/json"
	"fmt"

	"github.com/mlnoga/medianlight/internal/bench"
	"github.com/mlnoga/medianlight/internal/codec"
	"github.com/mlnoga/medianlight/internal/median"
	"github.com/mlnoga/medianlight/internal/ops"
)

// Applies a median filter to each input image
type OpMedian struct {
	ops.OpUnaryBase
	Engine     string `json:"engine"`
	KernelSize int    `json:"kernelSize"`
	Workers    int    `json:"workers"`
	Border     string `json:"border"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpMedianDefault() }) } // register the operator for JSON decoding

func NewOpMedianDefault() *OpMedian { return NewOpMedian("host", 3, 0, median.BorderCopy) }

func NewOpMedian(engine string, kernelSize, workers int, border median.BorderMode) *OpMedian {
	op := OpMedian{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "filter", Active: true}},
		Engine:      engine,
		KernelSize:  kernelSize,
		Workers:     workers,
		Border:      border.String(),
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpMedian) UnmarshalJSON(data []byte) error {
	type defaults OpMedian
	def := defaults(*NewOpMedianDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpMedian(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

// Filters the image into a fresh buffer, which replaces the image data.
// Border mode keep retains the border of the input image, as does copy
func (op *OpMedian) Apply(f *codec.Image, c *ops.Context) (result *codec.Image, err error) {
	engine, err := ops.NewEngine(op.Engine, op.Workers, c)
	if err != nil {
		return nil, err
	}
	border, err := median.ParseBorderMode(op.Border)
	if err != nil {
		return nil, err
	}

	g := f.Geometry(op.KernelSize)
	var dst []uint8
	if border == median.BorderKeep {
		dst = append([]uint8(nil), f.Data...)
	} else {
		dst = make([]uint8, len(f.Data))
		if err := median.InitBorder(dst, f.Data, g, border); err != nil {
			return nil, fmt.Errorf("%d: %w", f.ID, err)
		}
	}

	timed := bench.NewTimed(engine)
	if err := timed.Filter(dst, f.Data, g); err != nil {
		return nil, fmt.Errorf("%d: %s engine: %w", f.ID, engine.Name(), err)
	}
	f.Data = dst
	fmt.Fprintf(c.Log, "%d: Applied %dx%d median filter to %s image with %s engine in %v\n",
		f.ID, op.KernelSize, op.KernelSize, f.DimensionsToString(), engine.Name(), timed.Durations[0])
	return f, nil
}
