// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skyplot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Elevations at which a ring is drawn.
var ringElevations = []float64{0, 30, 60}

var cardinals = []struct {
	label   string
	azimuth float64
}{
	{"N", 0}, {"E", 90}, {"S", 180}, {"W", 270},
}

var (
	background = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	ringColor  = color.RGBA{R: 0xC0, G: 0xC0, B: 0xC0, A: 0xFF}
	textColor  = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xFF}
	northColor = color.RGBA{R: 0xD3, G: 0x2F, B: 0x2F, A: 0xFF}
)

// canvas pairs a destination image with a reusable rasterizer.
type canvas struct {
	dst draw.Image
	z   *vector.Rasterizer
}

func newCanvas(dst draw.Image) *canvas {
	b := dst.Bounds()
	return &canvas{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

func (c *canvas) path(pts []point) {
	if len(pts) < 3 {
		return
	}
	c.z.MoveTo(float32(pts[0].x), float32(pts[0].y))
	for _, p := range pts[1:] {
		c.z.LineTo(float32(p.x), float32(p.y))
	}
	c.z.ClosePath()
}

func (c *canvas) flush(col color.Color) {
	b := c.dst.Bounds()
	c.z.Draw(c.dst, b, image.NewUniform(col), image.Point{})
	c.z.Reset(b.Dx(), b.Dy())
}

func (c *canvas) polygon(pts []point, col color.Color) {
	c.path(pts)
	c.flush(col)
}

// ring draws an annulus: the inner contour runs the opposite way so the
// accumulated coverage cancels inside it.
func (c *canvas) ring(cx, cy, r, width float64, col color.Color) {
	outer := regular(72, cx, cy, r+width/2, 0)
	inner := regular(72, cx, cy, math.Max(0, r-width/2), 0)
	for i, j := 0, len(inner)-1; i < j; i, j = i+1, j-1 {
		inner[i], inner[j] = inner[j], inner[i]
	}
	c.path(outer)
	c.path(inner)
	c.flush(col)
}

func (c *canvas) line(x0, y0, x1, y1, width float64, col color.Color) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	c.polygon([]point{
		{x0 + nx, y0 + ny}, {x1 + nx, y1 + ny},
		{x1 - nx, y1 - ny}, {x0 - nx, y0 - ny},
	}, col)
}

// glyph paints the stroke as a slightly larger shape and the fill on top.
func (c *canvas) glyph(s Shape, x, y, r float64, fill color.Color, stroke Stroke) {
	c.polygon(outline(s, x, y, r+stroke.Width), stroke.Color)
	c.polygon(outline(s, x, y, r), fill)
}

func (c *canvas) text(s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  c.dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// centredText draws s with its visual centre at (x, y).
func (c *canvas) centredText(s string, x, y float64, col color.Color) {
	w := font.MeasureString(basicfont.Face7x13, s).Round()
	c.text(s, int(math.Round(x))-w/2, int(math.Round(y))+basicfont.Face7x13.Ascent/2-1, col)
}

func (c *canvas) grid(g Geometry, orientationDeg float64, fg, north color.Color, labels bool) {
	cx, cy := g.Center()
	for _, e := range ringElevations {
		c.ring(cx, cy, g.ElevationRadius(e), 1, fg)
	}
	for _, card := range cardinals {
		x, y := g.Position(0, card.azimuth, orientationDeg)
		col := fg
		if card.azimuth == 0 {
			col = north
		}
		c.line(cx, cy, x, y, 1, col)
		if labels {
			// Labels sit just inside the rim, outside the horizon ring.
			k := (g.MaxRadius() - 7) / math.Max(1, g.ElevationRadius(0))
			c.centredText(card.label, cx+(x-cx)*k, cy+(y-cy)*k, col)
		}
	}
}

// Render paints a frame in colour.
func Render(f Frame, g Geometry) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	c := newCanvas(img)
	c.grid(g, f.OrientationDeg, ringColor, northColor, true)

	for _, d := range f.Satellites {
		c.glyph(d.Shape, d.X, d.Y, g.GlyphRadius, d.Fill, d.Stroke)
		c.centredText(strconv.Itoa(d.Svid), d.X, d.Y, textColor)
	}

	lineH := basicfont.Face7x13.Height
	c.text(fmt.Sprintf("tilt %.0f°", f.TiltDeg), 4, lineH, textColor)
	c.text(fmt.Sprintf("view %d  %.1f dB-Hz", f.Stats.InView, f.Stats.AvgCn0InView),
		4, g.Height-lineH-4, textColor)
	c.text(fmt.Sprintf("fix  %d  %.1f dB-Hz", f.Stats.UsedInFix, f.Stats.AvgCn0UsedInFix),
		4, g.Height-4, textColor)
	return img
}

// MonoWidth and MonoHeight are the SSD1306 panel dimensions.
const (
	MonoWidth  = 128
	MonoHeight = 64
)

// MonoGeometry places the plot on the left square of the panel.
var MonoGeometry = Geometry{Width: MonoHeight, Height: MonoHeight, GlyphRadius: 3}

// RenderMono paints a frame for the 128x64 OLED: plot on the left, counts
// and averages on the right. Satellites used in the fix are solid, the
// others hollow.
func RenderMono(f Frame, g Geometry) *image1bit.VerticalLSB {
	rgba := image.NewRGBA(image.Rect(0, 0, MonoWidth, MonoHeight))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	c := newCanvas(rgba)
	c.grid(g, f.OrientationDeg, color.White, color.White, false)

	for _, d := range f.Satellites {
		if d.UsedInFix {
			c.polygon(outline(d.Shape, d.X, d.Y, g.GlyphRadius), color.White)
			continue
		}
		c.polygon(outline(d.Shape, d.X, d.Y, g.GlyphRadius), color.White)
		c.polygon(outline(d.Shape, d.X, d.Y, g.GlyphRadius-1), color.Black)
	}

	x := g.Width + 4
	lineH := basicfont.Face7x13.Height
	c.text(fmt.Sprintf("V %d", f.Stats.InView), x, lineH, color.White)
	c.text(fmt.Sprintf("U %d", f.Stats.UsedInFix), x, 2*lineH, color.White)
	c.text(fmt.Sprintf("%.1f", f.Stats.AvgCn0InView), x, 3*lineH, color.White)
	c.text(fmt.Sprintf("%.1f", f.Stats.AvgCn0UsedInFix), x, 4*lineH, color.White)

	return toMono(rgba)
}

// toMono thresholds an RGBA image to one bit per pixel.
func toMono(src *image.RGBA) *image1bit.VerticalLSB {
	b := src.Bounds()
	dst := image1bit.NewVerticalLSB(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p := src.RGBAAt(x, y)
			if int(p.R)+int(p.G)+int(p.B) >= 3*0x80 {
				dst.Set(x, y, image1bit.On)
			}
		}
	}
	return dst
}
