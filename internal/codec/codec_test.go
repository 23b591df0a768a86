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
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/valyala/fastrand"
)

func randomImage(rows, cols, channels int, seed uint32) *Image {
	var rng fastrand.RNG
	rng.Seed(seed)
	img := NewImage(rows, cols, channels)
	for i := range img.Data {
		img.Data[i] = uint8(rng.Uint32n(256))
	}
	return img
}

func sameImage(t *testing.T, got, want *Image) {
	t.Helper()
	if got.Rows != want.Rows || got.Cols != want.Cols || got.Channels != want.Channels {
		t.Fatalf("dimensions %s; want %s", got.DimensionsToString(), want.DimensionsToString())
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Errorf("samples differ after round trip")
	}
}

func TestLosslessRoundTrips(t *testing.T) {
	cases := []struct {
		format   Format
		channels int
	}{
		{FormatPNG, 1},
		{FormatPNG, 3},
		{FormatTIFF, 1},
		{FormatTIFF, 3},
		{FormatBMP, 3},
		{FormatRaw, 1},
		{FormatRaw, 2},
		{FormatRaw, 3},
	}
	for i, c := range cases {
		want := randomImage(13, 17, c.channels, uint32(i+1))
		var buf bytes.Buffer
		if err := want.Encode(&buf, c.format); err != nil {
			t.Fatalf("%v/%d: encode: %s", c.format, c.channels, err)
		}
		got, err := Decode(&buf, c.format)
		if err != nil {
			t.Fatalf("%v/%d: decode: %s", c.format, c.channels, err)
		}
		sameImage(t, got, want)
	}
}

func TestJPEGKeepsDimensions(t *testing.T) {
	want := NewImage(16, 24, 3)
	for i := range want.Data {
		want.Data[i] = 128
	}
	var buf bytes.Buffer
	if err := want.Encode(&buf, FormatJPEG); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf, FormatJPEG)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows != 16 || got.Cols != 24 || got.Channels != 3 {
		t.Errorf("dimensions %s; want 24x16x3", got.DimensionsToString())
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	want := randomImage(9, 11, 3, 42)
	for _, name := range []string{"a.png", "b.TIFF", "c.bmp", "d.mlr"} {
		fileName := filepath.Join(dir, name)
		if err := want.Write(fileName); err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		got, err := Read(fileName)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if got.FileName != fileName {
			t.Errorf("%s: file name %q", name, got.FileName)
		}
		sameImage(t, got, want)
	}
}

func TestFormatFromFileName(t *testing.T) {
	cases := map[string]Format{
		"x.png": FormatPNG, "x.JPG": FormatJPEG, "x.jpeg": FormatJPEG,
		"x.tif": FormatTIFF, "x.tiff": FormatTIFF, "x.bmp": FormatBMP, "x.mlr": FormatRaw,
	}
	for name, want := range cases {
		got, err := FormatFromFileName(name)
		if err != nil || got != want {
			t.Errorf("FormatFromFileName(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := FormatFromFileName("x.fits"); err == nil {
		t.Errorf("FormatFromFileName(x.fits) succeeded; want error")
	}
}

func TestRawRejectsCorruptInput(t *testing.T) {
	var buf bytes.Buffer
	if err := randomImage(4, 5, 1, 7).Encode(&buf, FormatRaw); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	badMagic := append([]byte("XLR1"), valid[4:]...)
	zeroRows := append([]byte(nil), valid...)
	copy(zeroRows[4:8], []byte{0, 0, 0, 0})
	moreRows := append([]byte(nil), valid...)
	moreRows[7]++
	fewerRows := append([]byte(nil), valid...)
	fewerRows[7]--
	overflow := append([]byte(nil), valid...)
	binary.BigEndian.PutUint32(overflow[4:], 1<<22)
	binary.BigEndian.PutUint32(overflow[8:], 1<<21)
	binary.BigEndian.PutUint32(overflow[12:], 1<<21)
	wide := append([]byte(nil), valid...)
	binary.BigEndian.PutUint32(wide[8:], 1<<21)

	cases := map[string][]byte{
		"short header": valid[:10],
		"bad magic":    badMagic,
		"zero rows":    zeroRows,
		"short data":   moreRows,
		"extra data":   fewerRows,
		"overflow":     overflow,
		"too wide":     wide,
	}
	for name, data := range cases {
		if _, err := Decode(bytes.NewReader(data), FormatRaw); !errors.Is(err, ErrRawFormat) {
			t.Errorf("%s: err = %v; want ErrRawFormat", name, err)
		}
	}
}

func TestFromImageColorModels(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{
		color.RGBA{10, 20, 30, 255},
		color.RGBA{200, 100, 50, 255},
	})
	pal.Pix[1] = 1
	img := FromImage(pal)
	want := []uint8{10, 20, 30, 200, 100, 50}
	if img.Channels != 3 || !bytes.Equal(img.Data, want) {
		t.Errorf("paletted = %d channels %v; want 3 channels %v", img.Channels, img.Data, want)
	}

	g16 := image.NewGray16(image.Rect(0, 0, 2, 1))
	g16.SetGray16(0, 0, color.Gray16{Y: 0xffff})
	g16.SetGray16(1, 0, color.Gray16{Y: 0x8080})
	img = FromImage(g16)
	if img.Channels != 1 || !bytes.Equal(img.Data, []uint8{255, 128}) {
		t.Errorf("gray16 = %d channels %v; want 1 channel [255 128]", img.Channels, img.Data)
	}

	sub := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range sub.Pix {
		sub.Pix[i] = 255
	}
	sub.SetRGBA(2, 3, color.RGBA{1, 2, 3, 255})
	img = FromImage(sub.SubImage(image.Rect(1, 2, 4, 4)))
	if img.Rows != 2 || img.Cols != 3 {
		t.Fatalf("sub image %s; want 3x2x3", img.DimensionsToString())
	}
	if got := img.Data[(1*3+1)*3 : (1*3+1)*3+3]; !bytes.Equal(got, []uint8{1, 2, 3}) {
		t.Errorf("sub image pixel %v; want [1 2 3]", got)
	}
}

func TestToImageRejectsBadImages(t *testing.T) {
	if _, err := NewImage(2, 2, 2).ToImage(); err == nil {
		t.Errorf("two channel image converted; want error")
	}
	img := NewImage(2, 2, 3)
	img.Data = img.Data[:5]
	if _, err := img.ToImage(); err == nil {
		t.Errorf("short image converted; want error")
	}
}

func TestGeometry(t *testing.T) {
	g := NewImage(5, 7, 3).Geometry(3)
	if g.Rows != 5 || g.Cols != 7 || g.Channels != 3 || g.KernelSize != 3 {
		t.Errorf("Geometry = %v", g)
	}
}
