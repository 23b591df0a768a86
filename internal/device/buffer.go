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

import "fmt"

// A buffer in device memory. Host code moves data in and out with the copy methods;
// kernels access the contents through Bytes
type Buffer struct {
	device *Device
	data   []byte
	freed  bool
}

func (b *Buffer) Size() int { return len(b.data) }

// Device-side view of the buffer contents, for use inside kernels
func (b *Buffer) Bytes() []byte { return b.data }

// Copies host memory into the buffer. Sizes must match
func (b *Buffer) CopyFromHost(src []byte) error {
	if b.freed {
		return ErrBufferFreed
	}
	if len(src) != len(b.data) {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, len(src), len(b.data))
	}
	copy(b.data, src)
	b.device.bytesToDevice.Add(int64(len(src)))
	return nil
}

// Copies the buffer into host memory. Sizes must match
func (b *Buffer) CopyToHost(dst []byte) error {
	if b.freed {
		return ErrBufferFreed
	}
	if len(dst) != len(b.data) {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, len(dst), len(b.data))
	}
	copy(dst, b.data)
	b.device.bytesToHost.Add(int64(len(dst)))
	return nil
}

// Returns the buffer memory to the device. Freeing twice is a no op
func (b *Buffer) Free() {
	if b.freed {
		return
	}
	b.freed = true
	b.device.release(len(b.data))
	b.data = nil
}
