package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	lineHeight = 13
	margin     = 8
)

// TextImage draws lines in black on white using a fixed 7x13 face, then
// enlarges the result by scale so OCR engines see glyphs of a readable size.
func TextImage(scale int, lines ...string) image.Image {
	face := basicfont.Face7x13

	width := 0
	for _, line := range lines {
		width = max(width, font.MeasureString(face, line).Ceil())
	}
	bounds := image.Rect(0, 0, width+2*margin, len(lines)*lineHeight+2*margin)

	img := image.NewGray(bounds)
	draw.Draw(img, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	for i, line := range lines {
		d.Dot = fixed.P(margin, margin+(i+1)*lineHeight-face.Descent)
		d.DrawString(line)
	}

	if scale <= 1 {
		return img
	}
	return imaging.Resize(img, bounds.Dx()*scale, bounds.Dy()*scale, imaging.NearestNeighbor)
}

// Ink counts the dark pixels of img.
func Ink(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 128 {
				n++
			}
		}
	}
	return n
}
