package colorclass

// rgbToHSV converts an 8-bit RGB pixel to HSV using the OpenCV 8-bit
// convention: H in [0, 180), S and V in [0, 255]. The color band table is
// defined in that scale, so the conversion must match it exactly.
func rgbToHSV(r, g, b uint8) (h, s, v uint8) {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	v = maxC
	delta := int(maxC) - int(minC)
	if delta == 0 {
		// Grayscale: hue is undefined, saturation is zero.
		return 0, 0, v
	}
	s = uint8((255*delta + int(maxC)/2) / int(maxC))

	// Hue in degrees [0, 360), then halved to fit in a byte.
	var hue float64
	switch maxC {
	case r:
		hue = 60 * float64(int(g)-int(b)) / float64(delta)
	case g:
		hue = 120 + 60*float64(int(b)-int(r))/float64(delta)
	default:
		hue = 240 + 60*float64(int(r)-int(g))/float64(delta)
	}
	if hue < 0 {
		hue += 360
	}
	hh := int(hue/2 + 0.5)
	if hh >= 180 {
		hh -= 180
	}
	h = uint8(hh)
	return h, s, v
}
