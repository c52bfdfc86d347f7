package colorclass

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vigiacam/vigia/pkg/nn"
)

func solidImage(width, height int, r, g, b uint8) nn.ImageCrop {
	pixels := make([]byte, width*height*3)
	for i := 0; i < len(pixels); i += 3 {
		pixels[i] = r
		pixels[i+1] = g
		pixels[i+2] = b
	}
	return nn.WholeImage(3, pixels, width, height)
}

func TestClassifySolidColors(t *testing.T) {
	c := NewClassifier()
	box := nn.MakeRect(0, 0, 40, 40)

	require.Equal(t, Azul, c.Classify(solidImage(40, 40, 0, 0, 255), box))
	require.Equal(t, Vermelho, c.Classify(solidImage(40, 40, 255, 0, 0), box))
	require.Equal(t, Verde, c.Classify(solidImage(40, 40, 0, 255, 0), box))
	require.Equal(t, Branco, c.Classify(solidImage(40, 40, 255, 255, 255), box))
	require.Equal(t, Preto, c.Classify(solidImage(40, 40, 0, 0, 0), box))
	require.Equal(t, Cinza, c.Classify(solidImage(40, 40, 128, 128, 128), box))
}

func TestClassifyDegradedInput(t *testing.T) {
	c := NewClassifier()
	img := solidImage(40, 40, 0, 0, 255)

	// Zero-area and inverted boxes degrade to Indefinido, never an error.
	require.Equal(t, Indefinido, c.Classify(img, nn.MakeRect(10, 10, 10, 30)))
	require.Equal(t, Indefinido, c.Classify(img, nn.MakeRect(30, 30, 10, 10)))

	// A box entirely outside the frame clips to nothing.
	require.Equal(t, Indefinido, c.Classify(img, nn.MakeRect(100, 100, 200, 200)))

	// A box that hangs over the frame edge still classifies the clipped part.
	require.Equal(t, Azul, c.Classify(img, nn.MakeRect(-20, -20, 30, 30)))
}

func TestClassifyTinyBoxFallsBackToFullRegion(t *testing.T) {
	c := NewClassifier()
	img := solidImage(40, 40, 0, 0, 255)
	// 2x2 box: the central trim would leave nothing, so the whole box is used.
	require.Equal(t, Azul, c.Classify(img, nn.MakeRect(0, 0, 2, 2)))
}

func TestSmoothingStability(t *testing.T) {
	c := NewClassifier()
	box := nn.MakeRect(0, 0, 40, 40)
	blue := solidImage(40, 40, 0, 0, 255)

	var got Color
	for i := 0; i < 10; i++ {
		got = c.ClassifyWithSmoothing(7, blue, box)
	}
	require.Equal(t, Azul, got)
}

func TestSmoothingMajority(t *testing.T) {
	c := NewClassifier()
	box := nn.MakeRect(0, 0, 40, 40)
	blue := solidImage(40, 40, 0, 0, 255)
	red := solidImage(40, 40, 255, 0, 0)

	for i := 0; i < 6; i++ {
		c.ClassifyWithSmoothing(3, blue, box)
	}
	var got Color
	for i := 0; i < 4; i++ {
		got = c.ClassifyWithSmoothing(3, red, box)
	}
	// 6 x azul vs 4 x vermelho: the majority wins.
	require.Equal(t, Azul, got)
	require.Equal(t, Azul, c.SmoothedColor(3))
}

func TestSmoothingTieBreakMostRecent(t *testing.T) {
	c := NewClassifier()
	box := nn.MakeRect(0, 0, 40, 40)
	c.ClassifyWithSmoothing(9, solidImage(40, 40, 0, 0, 255), box)
	got := c.ClassifyWithSmoothing(9, solidImage(40, 40, 255, 0, 0), box)
	require.Equal(t, Vermelho, got)
}

func TestSmoothingWindowEviction(t *testing.T) {
	c := NewClassifier()
	box := nn.MakeRect(0, 0, 40, 40)
	blue := solidImage(40, 40, 0, 0, 255)
	red := solidImage(40, 40, 255, 0, 0)

	for i := 0; i < 10; i++ {
		c.ClassifyWithSmoothing(5, blue, box)
	}
	// After 6 red frames the 10-wide window holds 4 azul + 6 vermelho.
	var got Color
	for i := 0; i < 6; i++ {
		got = c.ClassifyWithSmoothing(5, red, box)
	}
	require.Equal(t, Vermelho, got)
}

func TestResetAndForget(t *testing.T) {
	c := NewClassifier()
	box := nn.MakeRect(0, 0, 40, 40)
	blue := solidImage(40, 40, 0, 0, 255)

	c.ClassifyWithSmoothing(1, blue, box)
	c.ClassifyWithSmoothing(2, blue, box)
	c.Forget(1)
	require.Equal(t, Indefinido, c.SmoothedColor(1))
	require.Equal(t, Azul, c.SmoothedColor(2))
	c.Reset()
	require.Equal(t, Indefinido, c.SmoothedColor(2))
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Azul", DisplayName(Azul))
	require.Equal(t, "Indefinido", DisplayName(Indefinido))
	require.Equal(t, "Turquesa", DisplayName(Color("turquesa")))
}

func TestBGRFallback(t *testing.T) {
	require.Equal(t, [3]uint8{255, 0, 0}, BGR(Azul))
	require.Equal(t, [3]uint8{100, 100, 100}, BGR(Color("turquesa")))
}

func TestRGBToHSVOpenCVScale(t *testing.T) {
	h, s, v := rgbToHSV(0, 0, 255)
	require.Equal(t, uint8(120), h)
	require.Equal(t, uint8(255), s)
	require.Equal(t, uint8(255), v)

	h, s, v = rgbToHSV(255, 0, 0)
	require.Equal(t, uint8(0), h)
	require.Equal(t, uint8(255), s)
	require.Equal(t, uint8(255), v)

	h, s, v = rgbToHSV(128, 128, 128)
	require.Equal(t, uint8(0), h)
	require.Equal(t, uint8(0), s)
	require.Equal(t, uint8(128), v)
}
