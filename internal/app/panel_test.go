package app

import (
	"image"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/angle_viewer/internal/gauge"
)

func litPixels(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestComposePanel_Waiting(t *testing.T) {
	img := composePanel(gauge.Reading{Min: -45, Max: 45}, gauge.Reading{Min: -45, Max: 45})

	if got := img.Bounds(); got != image.Rect(0, 0, panelWidth, panelHeight) {
		t.Fatalf("bounds = %v", got)
	}
	if litPixels(img, img.Bounds()) == 0 {
		t.Error("waiting screen is blank")
	}
}

func TestComposePanel_BothGauges(t *testing.T) {
	vert := gauge.Reading{Min: -45, Max: 45, Value: 30, Updates: 1}
	horiz := gauge.Reading{Min: -45, Max: 45, Value: -30, Updates: 1}
	img := composePanel(vert, horiz)

	left := litPixels(img, image.Rect(0, 0, panelWidth/2, panelHeight))
	right := litPixels(img, image.Rect(panelWidth/2, 0, panelWidth, panelHeight))
	if left == 0 || right == 0 {
		t.Errorf("lit pixels left=%d right=%d, want both halves drawn", left, right)
	}
	// +30 fills more of the band than -30
	if left <= right {
		t.Errorf("left half (%d) should carry more ink than right (%d)", left, right)
	}
}

func TestSplashImage(t *testing.T) {
	img := splashImage()
	if litPixels(img, img.Bounds()) == 0 {
		t.Error("splash is blank")
	}
}
