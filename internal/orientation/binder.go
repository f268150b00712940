package orientation

import (
	"log/slog"

	"github.com/relabs-tech/angle_viewer/internal/frame"
)

// Display is a single gauge-like surface that shows one value in degrees.
type Display interface {
	Refresh(value float64)
}

// Publisher receives every displayed sample, e.g. to forward it over MQTT.
type Publisher interface {
	Publish(a Angles) error
}

// Binder decodes binary records and pushes the angles into two displays.
type Binder struct {
	vertical   Display
	horizontal Display
	publisher  Publisher
	logger     *slog.Logger
}

// NewBinder binds the vertical and horizontal displays. A nil logger uses
// slog.Default().
func NewBinder(vertical, horizontal Display, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		vertical:   vertical,
		horizontal: horizontal,
		logger:     logger,
	}
}

// SetPublisher attaches an optional publisher. It must be called before the
// binder starts receiving payloads.
func (b *Binder) SetPublisher(p Publisher) {
	b.publisher = p
}

// DecodeAndDisplay decodes payload and refreshes both displays. On error no
// display is touched.
func (b *Binder) DecodeAndDisplay(payload []byte) (Angles, error) {
	s, err := frame.Decode(payload)
	if err != nil {
		return Angles{}, err
	}

	a := FromSample(s)
	b.vertical.Refresh(a.Vertical)
	b.horizontal.Refresh(a.Horizontal)

	if b.publisher != nil {
		if err := b.publisher.Publish(a); err != nil {
			b.logger.Warn("publish angles failed", "error", err)
		}
	}
	return a, nil
}

// HandleBinary implements connection.BinaryHandler.
func (b *Binder) HandleBinary(payload []byte) error {
	a, err := b.DecodeAndDisplay(payload)
	if err != nil {
		return err
	}
	b.logger.Debug("angles displayed", "vertical", a.Vertical, "horizontal", a.Horizontal)
	return nil
}
