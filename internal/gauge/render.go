package gauge

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Palette selects the colours used by Draw.
type Palette struct {
	Background color.Color
	Track      color.Color
	Levels     []color.Color // low to high, picked by fraction without blending
	Needle     color.Color
	Text       color.Color
}

// DefaultPalette mirrors the browser gauges.
var DefaultPalette = Palette{
	Background: color.White,
	Track:      color.RGBA{0xED, 0xEB, 0xEB, 0xFF},
	Levels: []color.Color{
		color.RGBA{0x67, 0x3A, 0xB7, 0xFF},
		color.RGBA{0x00, 0x96, 0x88, 0xFF},
		color.RGBA{0xFF, 0xC1, 0x07, 0xFF},
	},
	Needle: color.RGBA{0x42, 0x42, 0x42, 0xFF},
	Text:   color.RGBA{0x42, 0x42, 0x42, 0xFF},
}

// MonoPalette draws everything in on over off, for 1-bit panels.
func MonoPalette(on, off color.Color) Palette {
	return Palette{
		Background: off,
		Track:      on,
		Levels:     []color.Color{on},
		Needle:     on,
		Text:       on,
	}
}

const arcSteps = 48

type point struct{ x, y float32 }

// NeedleAngle maps a reading to the needle direction in radians: π at Min,
// 0 at Max, measured counter-clockwise from the positive x axis.
func NeedleAngle(r Reading) float64 {
	return math.Pi * (1 - r.Fraction())
}

// LevelColor picks the level colour for the reading's position in its range.
func (p Palette) LevelColor(r Reading) color.Color {
	if len(p.Levels) == 0 {
		return p.Needle
	}
	i := int(r.Fraction() * float64(len(p.Levels)))
	if i >= len(p.Levels) {
		i = len(p.Levels) - 1
	}
	return p.Levels[i]
}

// Draw renders r as a half-circle gauge into rect of dst. The title and
// value are drawn below the pivot when rect is tall enough.
func Draw(dst draw.Image, rect image.Rectangle, r Reading, p Palette) {
	draw.Draw(dst, rect, image.NewUniform(p.Background), image.Point{}, draw.Src)

	w, h := float64(rect.Dx()), float64(rect.Dy())
	cx := w / 2
	cy := h * 0.7
	outer := math.Min(w/2, cy) - 2
	if outer <= 4 {
		return
	}
	inner := outer * 0.65

	// thin track over the full range, thick band from Min to the value
	fillPolygon(dst, rect, band(cx, cy, outer, outer-1.5, math.Pi, 0), p.Track)
	angle := NeedleAngle(r)
	if angle < math.Pi {
		fillPolygon(dst, rect, band(cx, cy, outer, inner, math.Pi, angle), p.LevelColor(r))
	}
	fillPolygon(dst, rect, needle(cx, cy, outer, angle), p.Needle)

	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	y := int(cy) + lineH
	if y <= rect.Dy() {
		drawCentered(dst, rect, face, fmt.Sprintf("%.1f", r.Value), int(cx), y, p.Text)
	}
	y += lineH
	if y <= rect.Dy() && r.Title != "" {
		drawCentered(dst, rect, face, r.Title, int(cx), y, p.Text)
	}
}

// RenderPNG draws r onto a w×h canvas and encodes it as PNG.
func RenderPNG(out io.Writer, r Reading, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	Draw(img, img.Bounds(), r, DefaultPalette)
	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("encode gauge png: %w", err)
	}
	return nil
}

// band returns the ring segment between radii ro and ri from angle a0 to a1.
func band(cx, cy, ro, ri, a0, a1 float64) []point {
	pts := make([]point, 0, 2*(arcSteps+1))
	for i := 0; i <= arcSteps; i++ {
		a := a0 + (a1-a0)*float64(i)/arcSteps
		pts = append(pts, polar(cx, cy, ro, a))
	}
	for i := arcSteps; i >= 0; i-- {
		a := a0 + (a1-a0)*float64(i)/arcSteps
		pts = append(pts, polar(cx, cy, ri, a))
	}
	return pts
}

func needle(cx, cy, length, a float64) []point {
	const halfBase = 2.5
	perp := a + math.Pi/2
	return []point{
		{float32(cx + halfBase*math.Cos(perp)), float32(cy - halfBase*math.Sin(perp))},
		polar(cx, cy, length, a),
		{float32(cx - halfBase*math.Cos(perp)), float32(cy + halfBase*math.Sin(perp))},
	}
}

// polar uses screen coordinates, y grows downwards.
func polar(cx, cy, radius, a float64) point {
	return point{
		x: float32(cx + radius*math.Cos(a)),
		y: float32(cy - radius*math.Sin(a)),
	}
}

func fillPolygon(dst draw.Image, rect image.Rectangle, pts []point, c color.Color) {
	if len(pts) < 3 {
		return
	}
	z := vector.NewRasterizer(rect.Dx(), rect.Dy())
	z.MoveTo(pts[0].x, pts[0].y)
	for _, pt := range pts[1:] {
		z.LineTo(pt.x, pt.y)
	}
	z.ClosePath()
	z.Draw(dst, rect, image.NewUniform(c), image.Point{})
}

func drawCentered(dst draw.Image, rect image.Rectangle, face font.Face, s string, cx, baseline int, c color.Color) {
	width := font.MeasureString(face, s).Round()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(rect.Min.X+cx-width/2, rect.Min.Y+baseline),
	}
	d.DrawString(s)
}
