package gauge

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"
	"testing"
)

func TestNew_InitialState(t *testing.T) {
	g := New(VerticalTitle, DefaultMin, DefaultMax)
	r := g.Reading()

	if r.Value != 0 {
		t.Errorf("Value = %v, want 0", r.Value)
	}
	if r.Min != -45 || r.Max != 45 {
		t.Errorf("range = [%v, %v], want [-45, 45]", r.Min, r.Max)
	}
	if r.Updates != 0 || !r.UpdatedAt.IsZero() {
		t.Errorf("fresh gauge reports updates: %+v", r)
	}
	if r.Title != VerticalTitle {
		t.Errorf("Title = %q, want %q", r.Title, VerticalTitle)
	}
}

func TestRefresh_LastValueWins(t *testing.T) {
	g := New("x", DefaultMin, DefaultMax)
	g.Refresh(10)
	g.Refresh(-20)
	g.Refresh(60) // out of range values are stored unchanged

	r := g.Reading()
	if r.Value != 60 {
		t.Errorf("Value = %v, want 60", r.Value)
	}
	if r.Updates != 3 {
		t.Errorf("Updates = %d, want 3", r.Updates)
	}
	if r.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestReading_Clamped(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "inside", value: 12.5, want: 12.5},
		{name: "below", value: -90, want: -45},
		{name: "above", value: 90, want: 45},
		{name: "nan", value: math.NaN(), want: -45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reading{Min: -45, Max: 45, Value: tt.value}
			if got := r.Clamped(); got != tt.want {
				t.Errorf("Clamped() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedleAngle(t *testing.T) {
	tests := []struct {
		value float64
		want  float64
	}{
		{value: -45, want: math.Pi},
		{value: 0, want: math.Pi / 2},
		{value: 45, want: 0},
		{value: 200, want: 0},
	}

	for _, tt := range tests {
		got := NeedleAngle(Reading{Min: -45, Max: 45, Value: tt.value})
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("NeedleAngle(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLevelColor(t *testing.T) {
	p := DefaultPalette
	if got := p.LevelColor(Reading{Min: -45, Max: 45, Value: -40}); got != p.Levels[0] {
		t.Errorf("low value colour = %v, want %v", got, p.Levels[0])
	}
	if got := p.LevelColor(Reading{Min: -45, Max: 45, Value: 45}); got != p.Levels[2] {
		t.Errorf("max value colour = %v, want %v", got, p.Levels[2])
	}
}

func TestConcurrentRefreshAndRead(t *testing.T) {
	g := New("x", DefaultMin, DefaultMax)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			g.Refresh(float64(i % 45))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = g.Reading()
		}
	}()
	wg.Wait()

	if got := g.Reading().Updates; got != 1000 {
		t.Errorf("Updates = %d, want 1000", got)
	}
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	r := Reading{Title: HorizontalTitle, Min: -45, Max: 45, Value: 30}
	if err := RenderPNG(&buf, r, 240, 160); err != nil {
		t.Fatalf("RenderPNG() error = %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 240, 160) {
		t.Errorf("bounds = %v, want 240x160", got)
	}
}

func TestDraw_NeedleDirection(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 140))
	p := MonoPalette(color.Black, color.White)

	Draw(img, img.Bounds(), Reading{Min: -45, Max: 45, Value: 45}, p)

	// Pivot sits at (100, 98). At max the needle points right along the
	// pivot row; straight above the pivot, inside the ring, stays blank.
	if !isDark(img.At(150, 98)) {
		t.Error("expected needle pixel right of the pivot")
	}
	if isDark(img.At(100, 60)) {
		t.Error("unexpected ink above the pivot")
	}
}

func TestDraw_SubRectangle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 64))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	p := MonoPalette(color.Black, color.White)

	Draw(img, image.Rect(64, 0, 128, 64), Reading{Min: -45, Max: 45, Value: 0}, p)

	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if isDark(img.At(x, y)) {
				t.Fatalf("drawing leaked outside its rectangle at (%d,%d)", x, y)
			}
		}
	}
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r+g+b < 3*0x8000
}
