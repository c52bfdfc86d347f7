package server

import (
	"image"

	"github.com/bmharper/cimg/v2"
)

// compressJPEG flattens img to packed RGB and encodes it with turbojpeg.
func compressJPEG(img image.Image) ([]byte, error) {
	b := img.Bounds()
	width := b.Dx()
	height := b.Dy()
	rgb := make([]byte, width*height*3)
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < height; y++ {
			src := rgba.Pix[y*rgba.Stride:]
			dst := rgb[y*width*3:]
			for x := 0; x < width; x++ {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
	} else {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				cr, cg, cb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				i := (y*width + x) * 3
				rgb[i] = byte(cr >> 8)
				rgb[i+1] = byte(cg >> 8)
				rgb[i+2] = byte(cb >> 8)
			}
		}
	}
	wrapped := cimg.WrapImage(width, height, cimg.PixelFormatRGB, rgb)
	return cimg.Compress(wrapped, cimg.MakeCompressParams(cimg.Sampling420, 85, 0))
}
