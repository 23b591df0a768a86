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

// Package codec converts image files to and from flat, interleaved 8-bit sample buffers
package codec

import (
	"fmt"
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/medianlight/internal/median"
)

// An 8-bit image with interleaved channels, stored row by row.
// Channels is 1 for grayscale and 3 for RGB
type Image struct {
	ID       int     `json:"id"`
	FileName string  `json:"fileName"`
	Rows     int     `json:"rows"`
	Cols     int     `json:"cols"`
	Channels int     `json:"channels"`
	Data     []uint8 `json:"-"`
}

// Creates a new zeroed image with the given dimensions
func NewImage(rows, cols, channels int) *Image {
	return &Image{Rows: rows, Cols: cols, Channels: channels, Data: make([]uint8, rows*cols*channels)}
}

// Returns a deep copy of the image
func (img *Image) Clone() *Image {
	c := *img
	c.Data = append([]uint8(nil), img.Data...)
	return &c
}

// Filter geometry of this image for the given kernel size
func (img *Image) Geometry(kernelSize int) median.Geometry {
	return median.Geometry{Rows: img.Rows, Cols: img.Cols, Channels: img.Channels, KernelSize: kernelSize}
}

func (img *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%dx%d", img.Cols, img.Rows, img.Channels)
}

// Returns true if the color model carries a single gray channel
func isGrayModel(m color.Model) bool {
	return m == color.GrayModel || m == color.Gray16Model
}

// Converts a golang image into 8-bit samples. Gray images yield one channel, all others three.
// Alpha is removed by un-premultiplying; fully transparent pixels become black
func FromImage(m image.Image) *Image {
	b := m.Bounds()
	width, height := b.Dx(), b.Dy()

	if g, ok := m.(*image.Gray); ok {
		img := NewImage(height, width, 1)
		for y := 0; y < height; y++ {
			copy(img.Data[y*width:(y+1)*width], g.Pix[y*g.Stride:y*g.Stride+width])
		}
		return img
	}
	if isGrayModel(m.ColorModel()) {
		img := NewImage(height, width, 1)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.Data[y*width+x] = color.GrayModel.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
		}
		return img
	}

	img := NewImage(height, width, 3)
	if rgba, ok := m.(*image.RGBA); ok && rgba.Opaque() {
		for y := 0; y < height; y++ {
			row := rgba.Pix[y*rgba.Stride:]
			out := img.Data[y*width*3:]
			for x := 0; x < width; x++ {
				out[3*x], out[3*x+1], out[3*x+2] = row[4*x], row[4*x+1], row[4*x+2]
			}
		}
		return img
	}
	for y := 0; y < height; y++ {
		out := img.Data[y*width*3:]
		for x := 0; x < width; x++ {
			c, ok := colorful.MakeColor(m.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				continue // fully transparent
			}
			out[3*x], out[3*x+1], out[3*x+2] = c.RGB255()
		}
	}
	return img
}

// Converts the image into a golang image for encoding
func (img *Image) ToImage() (image.Image, error) {
	if len(img.Data) != img.Rows*img.Cols*img.Channels {
		return nil, fmt.Errorf("%d: image data has %d samples, want %d", img.ID, len(img.Data), img.Rows*img.Cols*img.Channels)
	}
	rect := image.Rect(0, 0, img.Cols, img.Rows)
	switch img.Channels {
	case 1:
		g := image.NewGray(rect)
		copy(g.Pix, img.Data)
		return g, nil
	case 3:
		rgba := image.NewRGBA(rect)
		for i, j := 0, 0; i < len(img.Data); i, j = i+3, j+4 {
			rgba.Pix[j], rgba.Pix[j+1], rgba.Pix[j+2], rgba.Pix[j+3] = img.Data[i], img.Data[i+1], img.Data[i+2], 255
		}
		return rgba, nil
	default:
		return nil, fmt.Errorf("%d: cannot convert %d channel image", img.ID, img.Channels)
	}
}
