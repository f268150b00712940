// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/angle_viewer/internal/frame"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock source that sweeps both axes smoothly
// through roughly ±40 degrees.
func NewMockSource() Source {
	return newMockSourceAt(time.Now(), time.Now)
}

func newMockSourceAt(start time.Time, now func() time.Time) *mockSource {
	return &mockSource{start: start, now: now}
}

func (m *mockSource) Next() (frame.Sample, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return frame.Sample{
		VerticalRad:   0.7 * math.Sin(elapsed),
		HorizontalRad: 0.6 * math.Cos(elapsed*0.7),
	}, nil
}
