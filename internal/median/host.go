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

package median

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid"
)

// Fork-join engine. Splits the interior rows into one band per worker,
// filters each band on its own goroutine and waits for all of them
type HostParallel struct {
	Workers int `json:"workers"` // 0=one per logical core
}

func NewHostParallel(workers int) *HostParallel { return &HostParallel{Workers: workers} }

func (e *HostParallel) Name() string { return "host" }

// Detects the number of logical cores of the host. Replaced in tests
var detectConcurrency = func() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Returns the number of host execution units available to HostParallel
func HostConcurrency() int { return detectConcurrency() }

// Returns the effective number of workers, or a configuration error
func (e *HostParallel) workers() (int, error) {
	n := e.Workers
	if n < 0 {
		return 0, fmt.Errorf("%w: %d workers requested", ErrNoParallelism, n)
	}
	if n == 0 {
		n = detectConcurrency()
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: detected %d execution units", ErrNoParallelism, n)
	}
	return n, nil
}

// Returns the row bands the engine would use for the given geometry
func (e *HostParallel) Bands(g Geometry) ([]Band, error) {
	n, err := e.workers()
	if err != nil {
		return nil, err
	}
	if err := g.Check(); err != nil {
		return nil, err
	}
	return PartitionRows(g.Rows, g.Radius(), n), nil
}

// Applies the median filter to all interior pixels of src, storing results in dst.
// Each worker owns the destination rows of its band exclusively, so no locking is needed
func (e *HostParallel) Filter(dst, src []uint8, g Geometry) error {
	n, err := e.workers()
	if err != nil {
		return err
	}
	if err := g.Validate(dst, src); err != nil {
		return err
	}

	bands := PartitionRows(g.Rows, g.Radius(), n)
	stride := g.RowStride()
	var wg sync.WaitGroup
	wg.Add(len(bands))
	for _, band := range bands {
		go func(band Band, dstBand []uint8) {
			defer wg.Done()
			window := make([]uint8, g.WindowSize())
			filterBand(dstBand, src, g, band, window)
		}(band, dst[band.Start*stride:band.End*stride:band.End*stride])
	}
	wg.Wait()
	return nil
}
