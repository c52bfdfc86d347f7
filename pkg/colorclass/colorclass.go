// Package colorclass classifies the dominant color of a vehicle from its
// bounding box, in a fixed HSV taxonomy, with per-track temporal smoothing.
package colorclass

import (
	"strings"

	"github.com/vigiacam/vigia/pkg/nn"
)

// Color is one of the fixed taxonomy labels (Portuguese, matching the record
// format of the counting layer), or Indefinido when no label is dominant.
type Color string

const (
	Vermelho   Color = "vermelho"
	Laranja    Color = "laranja"
	Amarelo    Color = "amarelo"
	Verde      Color = "verde"
	Azul       Color = "azul"
	Roxo       Color = "roxo"
	Rosa       Color = "rosa"
	Branco     Color = "branco"
	Preto      Color = "preto"
	Cinza      Color = "cinza"
	Prata      Color = "prata"
	Indefinido Color = "indefinido"
)

// hsvBand is an inclusive HSV range predicate, in OpenCV 8-bit scale
// (H 0..180, S 0..255, V 0..255).
type hsvBand struct {
	hMin, hMax uint8
	sMin, sMax uint8
	vMin, vMax uint8
}

func (b hsvBand) contains(h, s, v uint8) bool {
	return h >= b.hMin && h <= b.hMax && s >= b.sMin && s <= b.sMax && v >= b.vMin && v <= b.vMax
}

type colorBands struct {
	color Color
	bands []hsvBand
}

// The taxonomy. A label may own more than one disjoint band (red wraps across
// hue 0/180). Bands are allowed to overlap between labels; a pixel votes for
// every label whose band contains it. Order matters: when two labels tie on
// votes, the earlier entry wins.
var colorRanges = []colorBands{
	{Vermelho, []hsvBand{{0, 10, 70, 255, 50, 255}, {170, 180, 70, 255, 50, 255}}},
	{Laranja, []hsvBand{{10, 25, 70, 255, 50, 255}}},
	{Amarelo, []hsvBand{{25, 35, 70, 255, 50, 255}}},
	{Verde, []hsvBand{{35, 85, 70, 255, 50, 255}}},
	{Azul, []hsvBand{{85, 130, 70, 255, 50, 255}}},
	{Roxo, []hsvBand{{130, 160, 70, 255, 50, 255}}},
	{Rosa, []hsvBand{{160, 170, 70, 255, 50, 255}}},
	{Branco, []hsvBand{{0, 180, 0, 30, 200, 255}}},
	{Preto, []hsvBand{{0, 180, 0, 255, 0, 50}}},
	{Cinza, []hsvBand{{0, 180, 0, 30, 50, 200}}},
	{Prata, []hsvBand{{0, 180, 0, 40, 150, 220}}},
}

var displayNames = map[Color]string{
	Vermelho:   "Vermelho",
	Laranja:    "Laranja",
	Amarelo:    "Amarelo",
	Verde:      "Verde",
	Azul:       "Azul",
	Roxo:       "Roxo",
	Rosa:       "Rosa",
	Branco:     "Branco",
	Preto:      "Preto",
	Cinza:      "Cinza",
	Prata:      "Prata",
	Indefinido: "Indefinido",
}

// BGR triplets for visualization, matching the overlay renderer's convention.
var bgrTriplets = map[Color][3]uint8{
	Vermelho:   {0, 0, 255},
	Laranja:    {0, 165, 255},
	Amarelo:    {0, 255, 255},
	Verde:      {0, 255, 0},
	Azul:       {255, 0, 0},
	Roxo:       {128, 0, 128},
	Rosa:       {203, 192, 255},
	Branco:     {255, 255, 255},
	Preto:      {0, 0, 0},
	Cinza:      {128, 128, 128},
	Prata:      {192, 192, 192},
	Indefinido: {100, 100, 100},
}

// Valid reports whether c is one of the taxonomy labels (Indefinido
// included).
func (c Color) Valid() bool {
	_, ok := displayNames[c]
	return ok
}

// DisplayName returns the human readable name of a color. Unknown labels are
// capitalized as-is.
func DisplayName(c Color) string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// BGR returns the BGR triplet used to draw a color, with a gray fallback for
// unknown labels.
func BGR(c Color) [3]uint8 {
	if t, ok := bgrTriplets[c]; ok {
		return t
	}
	return [3]uint8{100, 100, 100}
}

// How many of the last raw classifications we keep per track.
const smoothingWindow = 10

// A label must win more than this fraction of the region's pixels to be
// accepted; anything weaker is Indefinido.
const minVoteFraction = 0.1

// Central sub-region margins, as a fraction of the box. Trimming the borders
// avoids voting on wheels, shadows and background.
const (
	marginFractionV = 0.2
	marginFractionH = 0.15
)

// Classifier classifies the dominant color of a cropped vehicle region, and
// smooths the result per track over a rolling window. Each Classifier owns its
// own history; it is safe for use by a single writer (see the pipeline's
// concurrency model).
type Classifier struct {
	history map[int64][]Color
}

func NewClassifier() *Classifier {
	return &Classifier{
		history: map[int64][]Color{},
	}
}

// Classify returns the dominant color of the box region of img.
// A malformed or out-of-bounds box degrades to Indefinido; Classify never
// fails.
func (c *Classifier) Classify(img nn.ImageCrop, box nn.Rect) Color {
	x1 := max(0, box.X)
	y1 := max(0, box.Y)
	x2 := min(img.CropWidth, box.X2())
	y2 := min(img.CropHeight, box.Y2())
	if x2 <= x1 || y2 <= y1 {
		return Indefinido
	}
	region := img.Crop(x1, y1, x2, y2)

	// Trim to the central sub-region, falling back to the full box when the
	// box is too small to survive the trim.
	mh := int(float64(region.CropHeight) * marginFractionV)
	mw := int(float64(region.CropWidth) * marginFractionH)
	if region.CropWidth-2*mw > 0 && region.CropHeight-2*mh > 0 {
		region = region.Crop(mw, mh, region.CropWidth-mw, region.CropHeight-mh)
	}

	totalPixels := region.CropWidth * region.CropHeight
	votes := make([]int, len(colorRanges))
	for y := 0; y < region.CropHeight; y++ {
		for x := 0; x < region.CropWidth; x++ {
			px := region.Pixel(x, y)
			h, s, v := rgbToHSV(px[0], px[1], px[2])
			for i := range colorRanges {
				for _, band := range colorRanges[i].bands {
					if band.contains(h, s, v) {
						votes[i]++
						break
					}
				}
			}
		}
	}

	bestIdx := -1
	bestVotes := 0
	for i, n := range votes {
		if n > bestVotes {
			bestVotes = n
			bestIdx = i
		}
	}
	if bestIdx >= 0 && float64(bestVotes) > float64(totalPixels)*minVoteFraction {
		return colorRanges[bestIdx].color
	}
	return Indefinido
}

// ClassifyWithSmoothing classifies the current frame's region and returns the
// most frequent label over the track's last classifications. This is the entry
// point the pipeline uses; Classify on its own is a building block.
func (c *Classifier) ClassifyWithSmoothing(trackID int64, img nn.ImageCrop, box nn.Rect) Color {
	current := c.Classify(img, box)
	window := append(c.history[trackID], current)
	if len(window) > smoothingWindow {
		window = window[len(window)-smoothingWindow:]
	}
	c.history[trackID] = window
	return modeMostRecent(window)
}

// SmoothedColor returns the current smoothed label for a track without adding
// a new observation, or Indefinido for an unknown track.
func (c *Classifier) SmoothedColor(trackID int64) Color {
	window := c.history[trackID]
	if len(window) == 0 {
		return Indefinido
	}
	return modeMostRecent(window)
}

// Forget drops a track's smoothing window.
func (c *Classifier) Forget(trackID int64) {
	delete(c.history, trackID)
}

// Reset clears all smoothing state.
func (c *Classifier) Reset() {
	c.history = map[int64][]Color{}
}

// modeMostRecent returns the most frequent label in window. Ties go to the
// label seen most recently.
func modeMostRecent(window []Color) Color {
	counts := map[Color]int{}
	maxCount := 0
	for _, col := range window {
		counts[col]++
		if counts[col] > maxCount {
			maxCount = counts[col]
		}
	}
	for i := len(window) - 1; i >= 0; i-- {
		if counts[window[i]] == maxCount {
			return window[i]
		}
	}
	return Indefinido
}
