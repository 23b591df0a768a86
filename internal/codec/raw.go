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

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// The raw container stores the sample buffer losslessly, with any number of channels:
// four magic bytes "MLR1", rows, cols and channels as big-endian uint32,
// followed by the zstd-compressed interleaved samples.

var rawMagic = [4]byte{'M', 'L', 'R', '1'}

const rawHeaderSize = 16

// Upper bounds on the decoded size, to reject corrupt headers before allocating
const (
	maxRawDimension = 1 << 20
	maxRawSamples   = 1 << 31
)

var ErrRawFormat = errors.New("invalid raw image")

func encodeRaw(w io.Writer, img *Image) error {
	if len(img.Data) != img.Rows*img.Cols*img.Channels {
		return fmt.Errorf("%d: image data has %d samples, want %d", img.ID, len(img.Data), img.Rows*img.Cols*img.Channels)
	}
	var hdr [rawHeaderSize]byte
	copy(hdr[:4], rawMagic[:])
	binary.BigEndian.PutUint32(hdr[4:], uint32(img.Rows))
	binary.BigEndian.PutUint32(hdr[8:], uint32(img.Cols))
	binary.BigEndian.PutUint32(hdr[12:], uint32(img.Channels))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
	if err != nil {
		return err
	}
	if _, err := enc.Write(img.Data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func decodeRaw(r io.Reader) (*Image, error) {
	var hdr [rawHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %s", ErrRawFormat, err)
	}
	if [4]byte{hdr[0], hdr[1], hdr[2], hdr[3]} != rawMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrRawFormat, hdr[:4])
	}
	rows := uint64(binary.BigEndian.Uint32(hdr[4:]))
	cols := uint64(binary.BigEndian.Uint32(hdr[8:]))
	channels := uint64(binary.BigEndian.Uint32(hdr[12:]))
	if rows == 0 || cols == 0 || channels == 0 ||
		rows > maxRawDimension || cols > maxRawDimension || channels > maxRawDimension ||
		rows*cols*channels > maxRawSamples {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d", ErrRawFormat, cols, rows, channels)
	}

	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	img := NewImage(int(rows), int(cols), int(channels))
	if _, err := io.ReadFull(dec, img.Data); err != nil {
		return nil, fmt.Errorf("%w: payload: %s", ErrRawFormat, err)
	}
	var extra [1]byte
	if n, _ := dec.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: trailing samples", ErrRawFormat)
	}
	return img, nil
}
