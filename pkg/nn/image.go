package nn

import "image"

// ImageCrop is a crop of an image.
// In C we would represent this as a pointer and a stride, but since that's not
// memory safe, we carry the whole buffer plus the crop window.
// To create an ImageCrop, start with WholeImage(), and then use Crop() to get
// a sub-crop.
type ImageCrop struct {
	NChan       int    // Number of channels (eg 3 for RGB)
	Pixels      []byte // The whole image
	ImageWidth  int    // The width of the original image, held in Pixels
	ImageHeight int    // The height of the original image, held in Pixels
	CropX       int    // Origin of crop X
	CropY       int    // Origin of crop Y
	CropWidth   int    // The width of this crop
	CropHeight  int    // The height of this crop
}

func (c ImageCrop) Stride() int {
	return c.ImageWidth * c.NChan
}

// Pixel returns the channel values at (x, y), relative to the crop origin.
// The returned slice aliases the crop's buffer.
func (c ImageCrop) Pixel(x, y int) []byte {
	i := ((c.CropY+y)*c.ImageWidth + c.CropX + x) * c.NChan
	return c.Pixels[i : i+c.NChan]
}

// Return a crop of the crop (new crop is relative to existing).
// If any parameter is out of bounds, we panic.
func (c ImageCrop) Crop(x1, y1, x2, y2 int) ImageCrop {
	nc := ImageCrop{
		NChan:       c.NChan,
		Pixels:      c.Pixels,
		ImageWidth:  c.ImageWidth,
		ImageHeight: c.ImageHeight,
		CropX:       c.CropX + x1,
		CropY:       c.CropY + y1,
		CropWidth:   x2 - x1,
		CropHeight:  y2 - y1,
	}
	if nc.CropX < 0 || nc.CropY < 0 || nc.CropWidth < 0 || nc.CropHeight < 0 || nc.CropX+nc.CropWidth > c.ImageWidth || nc.CropY+nc.CropHeight > c.ImageHeight {
		panic("Crop out of bounds")
	}
	return nc
}

// ToImage copies the crop into a standard library RGBA image.
// Supports 1 (gray), 3 (RGB) and 4 (RGBA) channel buffers.
func (c ImageCrop) ToImage() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, c.CropWidth, c.CropHeight))
	for y := 0; y < c.CropHeight; y++ {
		src := (c.CropY+y)*c.Stride() + c.CropX*c.NChan
		dst := y * out.Stride
		for x := 0; x < c.CropWidth; x++ {
			switch c.NChan {
			case 1:
				v := c.Pixels[src]
				out.Pix[dst] = v
				out.Pix[dst+1] = v
				out.Pix[dst+2] = v
				out.Pix[dst+3] = 255
			case 3:
				copy(out.Pix[dst:dst+3], c.Pixels[src:src+3])
				out.Pix[dst+3] = 255
			case 4:
				copy(out.Pix[dst:dst+4], c.Pixels[src:src+4])
			}
			src += c.NChan
			dst += 4
		}
	}
	return out
}

// Return a 'crop' of the entire image
func WholeImage(nchan int, pixels []byte, width, height int) ImageCrop {
	return ImageCrop{
		NChan:       nchan,
		Pixels:      pixels,
		ImageWidth:  width,
		ImageHeight: height,
		CropX:       0,
		CropY:       0,
		CropWidth:   width,
		CropHeight:  height,
	}
}
