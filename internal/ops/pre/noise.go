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

package pre

import (
	"encoding/json"
	"fmt"

	"github.com/mlnoga/medianlight/internal/codec"
	"github.com/mlnoga/medianlight/internal/noise"
	"github.com/mlnoga/medianlight/internal/ops"
)

// Adds salt and pepper noise to each input image. Images are seeded with seed plus their ID
type OpNoise struct {
	ops.OpUnaryBase
	Fraction float32 `json:"fraction"`
	Seed     uint32  `json:"seed"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpNoiseDefault() }) } // register the operator for JSON decoding

func NewOpNoiseDefault() *OpNoise { return NewOpNoise(0.05, 1) }

func NewOpNoise(fraction float32, seed uint32) *OpNoise {
	op := OpNoise{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "noise", Active: fraction > 0}},
		Fraction:    fraction,
		Seed:        seed,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpNoise) UnmarshalJSON(data []byte) error {
	type defaults OpNoise
	def := defaults(*NewOpNoiseDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpNoise(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpNoise) Apply(f *codec.Image, c *ops.Context) (result *codec.Image, err error) {
	changed, err := noise.Apply(f.Data, op.Fraction, op.Seed+uint32(f.ID))
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Added salt and pepper noise to %d of %d samples\n", f.ID, changed, len(f.Data))
	return f, nil
}
