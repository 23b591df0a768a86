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

// Package device simulates a massively parallel accelerator on the host.
// Kernels run over a grid of thread blocks, read and write device buffers only,
// and complete behind a single barrier. Transfers between host and device memory
// are explicit copies, so they show up in timings the same way as on real hardware.
package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

var (
	ErrOutOfMemory  = errors.New("device out of memory")
	ErrSizeMismatch = errors.New("host and device buffer sizes differ")
	ErrBufferFreed  = errors.New("device buffer already freed")
	ErrLaunchConfig = errors.New("invalid launch configuration")
	ErrKernelFault  = errors.New("kernel fault")
)

// Static properties of a device
type Properties struct {
	Name               string `json:"name"`
	Multiprocessors    int    `json:"multiprocessors"` // thread blocks executing concurrently
	MaxThreadsPerBlock int    `json:"maxThreadsPerBlock"`
	WarpSize           int    `json:"warpSize"`
	GlobalMemory       int64  `json:"globalMemory"` // bytes
}

// Properties of the simulated device on this host: one multiprocessor per physical core,
// and a quarter of physical memory as device memory
func DefaultProperties() Properties {
	sms := cpuid.CPU.PhysicalCores
	if sms <= 0 {
		sms = runtime.NumCPU()
	}
	mem := int64(memory.TotalMemory() / 4)
	if mem <= 0 {
		mem = 1 << 30
	}
	name := "simulated accelerator"
	if cpuid.CPU.BrandName != "" {
		name = fmt.Sprintf("simulated accelerator on %s", cpuid.CPU.BrandName)
	}
	return Properties{
		Name:               name,
		Multiprocessors:    sms,
		MaxThreadsPerBlock: 1024,
		WarpSize:           32,
		GlobalMemory:       mem,
	}
}

// Usage counters of a device
type Stats struct {
	Launches        int64 `json:"launches"`
	ThreadsLaunched int64 `json:"threadsLaunched"`
	BytesToDevice   int64 `json:"bytesToDevice"`
	BytesToHost     int64 `json:"bytesToHost"`
	MemoryInUse     int64 `json:"memoryInUse"`
	PeakMemory      int64 `json:"peakMemory"`
}

// A simulated accelerator. Safe for concurrent use
type Device struct {
	props Properties

	mu         sync.Mutex // guards memory accounting
	memoryUsed int64
	peakMemory int64

	launches        atomic.Int64
	threadsLaunched atomic.Int64
	bytesToDevice   atomic.Int64
	bytesToHost     atomic.Int64
}

func NewDevice(p Properties) (*Device, error) {
	if p.Multiprocessors <= 0 || p.MaxThreadsPerBlock <= 0 || p.WarpSize <= 0 || p.GlobalMemory <= 0 {
		return nil, fmt.Errorf("invalid device properties %+v", p)
	}
	return &Device{props: p}, nil
}

// Creates a device with DefaultProperties
func NewDefaultDevice() (*Device, error) { return NewDevice(DefaultProperties()) }

func (d *Device) Properties() Properties { return d.props }

func (d *Device) MemoryAvailable() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.props.GlobalMemory - d.memoryUsed
}

func (d *Device) Stats() Stats {
	d.mu.Lock()
	inUse, peak := d.memoryUsed, d.peakMemory
	d.mu.Unlock()
	return Stats{
		Launches:        d.launches.Load(),
		ThreadsLaunched: d.threadsLaunched.Load(),
		BytesToDevice:   d.bytesToDevice.Load(),
		BytesToHost:     d.bytesToHost.Load(),
		MemoryInUse:     inUse,
		PeakMemory:      peak,
	}
}

// Allocates a buffer of the given size in device memory
func (d *Device) Alloc(size int) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative allocation size %d", size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.memoryUsed+int64(size) > d.props.GlobalMemory {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrOutOfMemory, size, d.props.GlobalMemory-d.memoryUsed)
	}
	d.memoryUsed += int64(size)
	if d.memoryUsed > d.peakMemory {
		d.peakMemory = d.memoryUsed
	}
	return &Buffer{device: d, data: make([]byte, size)}, nil
}

func (d *Device) release(size int) {
	d.mu.Lock()
	d.memoryUsed -= int64(size)
	d.mu.Unlock()
}
