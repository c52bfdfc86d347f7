// Package overlay renders monitoring annotations (counting line, vehicle
// boxes, stats block) on top of video frames.
package overlay

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/vigiacam/vigia/pkg/analytics"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/counter"
	"github.com/vigiacam/vigia/pkg/nn"
)

// Options selects which annotation layers get drawn.
type Options struct {
	ShowZone  bool // shade the counting zone band around the line
	ShowStats bool // draw the aggregate stats block in the top left corner
}

// DefaultOptions draws everything.
func DefaultOptions() Options {
	return Options{
		ShowZone:  true,
		ShowStats: true,
	}
}

// Render draws the annotation layers over a copy of base and returns the
// annotated image. base is not modified.
func Render(base image.Image, boxes []nn.TrackedBox, colors map[int64]colorclass.Color, cnt *counter.Counter, sum *analytics.Summary, opts Options) image.Image {
	dc := gg.NewContextForImage(base)

	if cnt != nil {
		drawCountingLine(dc, cnt, opts.ShowZone)
	}
	drawVehicles(dc, boxes, colors)
	if opts.ShowStats && cnt != nil && sum != nil {
		drawStatsBlock(dc, cnt, sum)
	}

	return dc.Image()
}

func drawCountingLine(dc *gg.Context, cnt *counter.Counter, showZone bool) {
	w := float64(dc.Width())
	lineY := float64(cnt.LineY())
	margin := float64(cnt.ZoneMargin())

	if showZone {
		dc.SetRGBA(1, 1, 0, 0.12)
		dc.DrawRectangle(0, lineY-margin, w, 2*margin)
		dc.Fill()
	}

	dc.SetRGB255(255, 255, 0)
	dc.SetLineWidth(2)
	dc.DrawLine(0, lineY, w, lineY)
	dc.Stroke()
}

func drawVehicles(dc *gg.Context, boxes []nn.TrackedBox, colors map[int64]colorclass.Color) {
	for _, b := range boxes {
		color := colors[b.TrackID]
		if color == "" {
			color = colorclass.Indefinido
		}
		bgr := colorclass.BGR(color)
		dc.SetRGB255(int(bgr[2]), int(bgr[1]), int(bgr[0]))
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(b.Box.X), float64(b.Box.Y), float64(b.Box.Width), float64(b.Box.Height))
		dc.Stroke()

		label := fmt.Sprintf("#%v %v %v", b.TrackID, b.ClassName, colorclass.DisplayName(color))
		lw, lh := dc.MeasureString(label)
		lx := float64(b.Box.X)
		ly := float64(b.Box.Y) - 4
		if ly-lh < 0 {
			ly = float64(b.Box.Y2()) + lh + 4
		}
		dc.SetRGBA(0, 0, 0, 0.6)
		dc.DrawRectangle(lx-2, ly-lh-2, lw+4, lh+6)
		dc.Fill()
		dc.SetRGB255(int(bgr[2]), int(bgr[1]), int(bgr[0]))
		dc.DrawString(label, lx, ly)
	}
}

func drawStatsBlock(dc *gg.Context, cnt *counter.Counter, sum *analytics.Summary) {
	stats := cnt.Stats()
	lines := []string{
		fmt.Sprintf("Entrada: %v  Saida: %v", stats.TotalEntrada, stats.TotalSaida),
		fmt.Sprintf("Em cena: %v", sum.VehiclesInScene),
		fmt.Sprintf("Vel. media: %.1f km/h", sum.AverageSpeedKmh),
		fmt.Sprintf("Fluxo: %.1f/min", sum.FlowRatePerMinute),
		fmt.Sprintf("Densidade: %v", sum.TrafficDensity),
	}

	const pad = 8.0
	const lineHeight = 16.0
	blockW := 0.0
	for _, s := range lines {
		w, _ := dc.MeasureString(s)
		blockW = max(blockW, w)
	}

	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(pad, pad, blockW+2*pad, float64(len(lines))*lineHeight+2*pad)
	dc.Fill()

	dc.SetRGB255(255, 255, 255)
	for i, s := range lines {
		dc.DrawString(s, 2*pad, 2*pad+float64(i+1)*lineHeight-4)
	}
}
