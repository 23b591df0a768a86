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
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Image file format
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatTIFF
	FormatBMP
	FormatRaw // zstd-compressed raw samples, see raw.go
)

var formatNames = []string{"PNG", "JPEG", "TIFF", "BMP", "raw"}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// JPEG quality used for writing
const JPEGQuality = 95

// Determines the file format from the file name suffix
func FormatFromFileName(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".bmp":
		return FormatBMP, nil
	case ".mlr":
		return FormatRaw, nil
	}
	return 0, fmt.Errorf("unknown suffix for image file %s", fileName)
}

// Reads an image from file, with the format determined by the file suffix
func Read(fileName string) (*Image, error) {
	format, err := FormatFromFileName(fileName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := Decode(bufio.NewReader(file), format)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileName, err)
	}
	img.FileName = fileName
	return img, nil
}

// Decodes an image of the given format from a reader
func Decode(r io.Reader, format Format) (*Image, error) {
	var m image.Image
	var err error
	switch format {
	case FormatPNG:
		m, err = png.Decode(r)
	case FormatJPEG:
		m, err = jpeg.Decode(r)
	case FormatTIFF:
		m, err = tiff.Decode(r)
	case FormatBMP:
		m, err = bmp.Decode(r)
	case FormatRaw:
		return decodeRaw(r)
	default:
		return nil, fmt.Errorf("cannot decode format %v", format)
	}
	if err != nil {
		return nil, err
	}
	return FromImage(m), nil
}

// Writes the image to file, with the format determined by the file suffix
func (img *Image) Write(fileName string) error {
	format, err := FormatFromFileName(fileName)
	if err != nil {
		return err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := img.Encode(writer, format); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// Encodes the image in the given format
func (img *Image) Encode(w io.Writer, format Format) error {
	if format == FormatRaw {
		return encodeRaw(w, img)
	}
	m, err := img.ToImage()
	if err != nil {
		return err
	}
	switch format {
	case FormatPNG:
		return png.Encode(w, m)
	case FormatJPEG:
		return jpeg.Encode(w, m, &jpeg.Options{Quality: JPEGQuality})
	case FormatTIFF:
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, m)
	}
	return fmt.Errorf("cannot encode format %v", format)
}
