package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/angle_viewer/internal/gauge"
)

const (
	panelWidth  = 128
	panelHeight = 64
)

var panelPalette = gauge.MonoPalette(image1bit.On, image1bit.Off)

// RunPanel mirrors both gauges on an SSD1306 OLED on the default I2C bus,
// vertical on the left half and horizontal on the right.
func RunPanel(ctx context.Context, vertical, horizontal *gauge.Gauge, interval time.Duration, logger *slog.Logger) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Info("panel initialized", "bounds", dev.Bounds())

	if err := dev.Draw(dev.Bounds(), splashImage(), image.Point{}); err != nil {
		logger.Warn("error showing splash", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			img := composePanel(vertical.Reading(), horizontal.Reading())
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				logger.Warn("error updating panel", "error", err)
			}
		}
	}
}

// composePanel draws the two readings side by side. Until the first sample
// arrives a waiting screen is shown instead.
func composePanel(vertical, horizontal gauge.Reading) *image1bit.VerticalLSB {
	if vertical.Updates == 0 && horizontal.Updates == 0 {
		return waitingImage()
	}

	img := image1bit.NewVerticalLSB(image.Rect(0, 0, panelWidth, panelHeight))
	half := panelWidth / 2

	// titles do not fit the panel, the value line is enough
	vertical.Title, horizontal.Title = "", ""
	gauge.Draw(img, image.Rect(0, 0, half, panelHeight), vertical, panelPalette)
	gauge.Draw(img, image.Rect(half, 0, panelWidth, panelHeight), horizontal, panelPalette)

	drawText(img, "V", 0, 10)
	drawText(img, "H", half, 10)
	return img
}

func splashImage() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, panelWidth, panelHeight))
	drawText(img, "Angle Viewer", 22, 26)
	drawText(img, "connecting...", 18, 43)
	return img
}

func waitingImage() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, panelWidth, panelHeight))
	drawText(img, "Orientation", 25, 26)
	drawText(img, "Waiting...", 29, 39)
	return img
}

func drawText(img *image1bit.VerticalLSB, s string, x, y int) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(s)
}
