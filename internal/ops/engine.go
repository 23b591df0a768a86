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

package ops

import (
	"fmt"
	"strings"

	"github.com/mlnoga/medianlight/internal/median"
)

// Names of the available filter engines
var EngineNames = []string{"sequential", "host", "accelerator"}

// Creates the named filter engine. For the host engine, workers==0 selects the
// thread limit of the context. Negative worker counts fail when filtering
func NewEngine(name string, workers int, c *Context) (median.Engine, error) {
	switch strings.ToLower(name) {
	case "sequential":
		return median.NewSequential(), nil
	case "host":
		if workers == 0 {
			workers = c.MaxThreads
		}
		return median.NewHostParallel(workers), nil
	case "accelerator":
		dev, err := c.Device()
		if err != nil {
			return nil, err
		}
		return median.NewAccelerator(dev), nil
	}
	return nil, fmt.Errorf("unknown engine '%s', want one of %v", name, EngineNames)
}
