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

package device

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Three-dimensional extent or index, as used for grids and blocks
type Dim3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (d Dim3) Count() int { return d.X * d.Y * d.Z }

func (d Dim3) String() string { return fmt.Sprintf("(%d,%d,%d)", d.X, d.Y, d.Z) }

// Grid and block shape of a kernel launch, plus the thread-local scratch each thread receives
type LaunchConfig struct {
	Grid       Dim3
	Block      Dim3
	LocalBytes int
}

// Execution context of one device thread
type Thread struct {
	GridDim   Dim3
	BlockDim  Dim3
	BlockIdx  Dim3
	ThreadIdx Dim3
	Local     []byte // thread-local scratch of LocalBytes, contents undefined on entry
}

func (t *Thread) GlobalX() int { return t.BlockIdx.X*t.BlockDim.X + t.ThreadIdx.X }
func (t *Thread) GlobalY() int { return t.BlockIdx.Y*t.BlockDim.Y + t.ThreadIdx.Y }
func (t *Thread) GlobalZ() int { return t.BlockIdx.Z*t.BlockDim.Z + t.ThreadIdx.Z }

// Code executed by every thread of a launch. Threads must not communicate;
// each one may only write device memory no other thread writes
type Kernel func(t *Thread)

func (d *Device) checkLaunch(cfg LaunchConfig, k Kernel) error {
	if k == nil {
		return fmt.Errorf("%w: nil kernel", ErrLaunchConfig)
	}
	if cfg.Grid.X <= 0 || cfg.Grid.Y <= 0 || cfg.Grid.Z <= 0 {
		return fmt.Errorf("%w: grid %v", ErrLaunchConfig, cfg.Grid)
	}
	if cfg.Block.X <= 0 || cfg.Block.Y <= 0 || cfg.Block.Z <= 0 {
		return fmt.Errorf("%w: block %v", ErrLaunchConfig, cfg.Block)
	}
	if n := cfg.Block.Count(); n > d.props.MaxThreadsPerBlock {
		return fmt.Errorf("%w: %d threads per block exceeds %d", ErrLaunchConfig, n, d.props.MaxThreadsPerBlock)
	}
	if cfg.LocalBytes < 0 {
		return fmt.Errorf("%w: local memory %d", ErrLaunchConfig, cfg.LocalBytes)
	}
	return nil
}

// Runs the kernel once per thread of the grid and returns when all threads have completed.
// Up to Multiprocessors blocks execute concurrently; threads within a block execute
// in index order. A panicking kernel aborts its block and yields ErrKernelFault
func (d *Device) Launch(cfg LaunchConfig, k Kernel) error {
	if err := d.checkLaunch(cfg, k); err != nil {
		return err
	}
	d.launches.Add(1)

	var g errgroup.Group
	g.SetLimit(d.props.Multiprocessors)
	for bz := 0; bz < cfg.Grid.Z; bz++ {
		for by := 0; by < cfg.Grid.Y; by++ {
			for bx := 0; bx < cfg.Grid.X; bx++ {
				blockIdx := Dim3{X: bx, Y: by, Z: bz}
				g.Go(func() error { return d.runBlock(cfg, blockIdx, k) })
			}
		}
	}
	return g.Wait()
}

func (d *Device) runBlock(cfg LaunchConfig, blockIdx Dim3, k Kernel) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w in block %v: %v", ErrKernelFault, blockIdx, p)
		}
	}()

	t := Thread{
		GridDim:  cfg.Grid,
		BlockDim: cfg.Block,
		BlockIdx: blockIdx,
		Local:    make([]byte, cfg.LocalBytes),
	}
	for z := 0; z < cfg.Block.Z; z++ {
		for y := 0; y < cfg.Block.Y; y++ {
			for x := 0; x < cfg.Block.X; x++ {
				t.ThreadIdx = Dim3{X: x, Y: y, Z: z}
				k(&t)
			}
		}
	}
	d.threadsLaunched.Add(int64(cfg.Block.Count()))
	return nil
}
