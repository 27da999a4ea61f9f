package imagegen

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/lox/floatchat/internal/profile"
)

// Chart dimensions.
const (
	ChartWidth  = 640
	ChartHeight = 720
	ThumbWidth  = 240
	ThumbHeight = 270

	marginLeft   = 72
	marginRight  = 24
	marginTop    = 56
	marginBottom = 48
	ticks        = 5
	lineWidth    = 2.5
)

var ErrEmptySeries = errors.New("empty series")

var (
	colBackground = color.RGBA{15, 23, 42, 255}
	colPlot       = color.RGBA{22, 33, 58, 255}
	colGrid       = color.RGBA{51, 65, 85, 255}
	colAxis       = color.RGBA{148, 163, 184, 255}
	colText       = color.RGBA{226, 232, 240, 255}
	colTemp       = color.RGBA{248, 113, 113, 255}
	colSalinity   = color.RGBA{56, 189, 248, 255}
)

// ChartOptions controls labelling and output size.
type ChartOptions struct {
	Title string
	Thumb bool
}

// chartUnit avoids the degree sign, which basicfont cannot draw.
func chartUnit(m profile.Metric) string {
	if m == profile.MetricSalinity {
		return "PSU"
	}
	return "degC"
}

func lineColor(m profile.Metric) color.RGBA {
	if m == profile.MetricSalinity {
		return colSalinity
	}
	return colTemp
}

// RenderProfile draws the metric against depth as a PNG line chart. Depth
// increases downwards from 0 at the top of the plot.
func RenderProfile(s profile.Series, m profile.Metric, opts ChartOptions) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrEmptySeries
	}
	pts := s.Points(m)

	minX, maxX := pts[0].X, pts[0].X
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	pad := (maxX - minX) * 0.05
	if pad == 0 {
		pad = 1
	}
	minX -= pad
	maxX += pad
	maxDepth := pts[len(pts)-1].Y
	if maxDepth <= 0 {
		maxDepth = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, ChartWidth, ChartHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(colBackground), image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, ChartWidth-marginRight, ChartHeight-marginBottom)
	draw.Draw(img, plot, image.NewUniform(colPlot), image.Point{}, draw.Src)

	// toPx maps a sample to the centre of its pixel.
	toPx := func(p profile.Point) (float32, float32) {
		x := float64(plot.Min.X) + math.Round((p.X-minX)/(maxX-minX)*float64(plot.Dx()-1))
		y := float64(plot.Min.Y) + math.Round(p.Y/maxDepth*float64(plot.Dy()-1))
		return float32(x + 0.5), float32(y + 0.5)
	}

	face := basicfont.Face7x13
	for i := 0; i <= ticks; i++ {
		frac := float64(i) / ticks

		y := plot.Min.Y + int(math.Round(frac*float64(plot.Dy()-1)))
		hline(img, plot.Min.X, plot.Max.X-1, y, colGrid)
		label := fmt.Sprintf("%d m", int(math.Round(frac*maxDepth)))
		drawText(img, label, plot.Min.X-8-textWidth(face, label), y+4, colText, face)

		x := plot.Min.X + int(math.Round(frac*float64(plot.Dx()-1)))
		vline(img, x, plot.Min.Y, plot.Max.Y-1, colGrid)
		label = fmt.Sprintf("%.1f", minX+frac*(maxX-minX))
		drawText(img, label, x-textWidth(face, label)/2, plot.Max.Y+18, colText, face)
	}

	hline(img, plot.Min.X, plot.Max.X-1, plot.Min.Y, colAxis)
	vline(img, plot.Min.X, plot.Min.Y, plot.Max.Y-1, colAxis)

	line := make([][2]float32, len(pts))
	for i, p := range pts {
		line[i][0], line[i][1] = toPx(p)
	}
	strokePolyline(img, line, lineWidth, lineColor(m))

	title := opts.Title
	if title == "" {
		title = "Depth profile"
	}
	drawText(img, title, marginLeft, 24, colText, face)
	axis := fmt.Sprintf("%s (%s)", m, chartUnit(m))
	drawText(img, axis, plot.Min.X+(plot.Dx()-textWidth(face, axis))/2, ChartHeight-10, colAxis, face)
	drawText(img, "Depth", 8, marginTop-12, colAxis, face)

	var out image.Image = img
	if opts.Thumb {
		thumb := image.NewRGBA(image.Rect(0, 0, ThumbWidth, ThumbHeight))
		draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)
		out = thumb
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Round()
}

// drawText draws text with its baseline at y.
func drawText(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func hline(img *image.RGBA, x0, x1, y int, col color.RGBA) {
	draw.Draw(img, image.Rect(x0, y, x1+1, y+1), image.NewUniform(col), image.Point{}, draw.Src)
}

func vline(img *image.RGBA, x, y0, y1 int, col color.RGBA) {
	draw.Draw(img, image.Rect(x, y0, x+1, y1+1), image.NewUniform(col), image.Point{}, draw.Src)
}

// strokePolyline draws an anti-aliased line of the given width through pts.
// Each segment is a quad offset along its left normal, so every quad winds
// the same way and overlaps at the joints saturate instead of cancelling.
func strokePolyline(img *image.RGBA, pts [][2]float32, width float32, col color.RGBA) {
	if len(pts) < 2 {
		return
	}
	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	half := width / 2
	for i := 1; i < len(pts); i++ {
		x0, y0 := pts[i-1][0], pts[i-1][1]
		x1, y1 := pts[i][0], pts[i][1]
		dx, dy := x1-x0, y1-y0
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		z.MoveTo(x0+nx, y0+ny)
		z.LineTo(x1+nx, y1+ny)
		z.LineTo(x1-nx, y1-ny)
		z.LineTo(x0-nx, y0-ny)
		z.ClosePath()
	}
	z.Draw(img, b, image.NewUniform(col), image.Point{})
}
