// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gauge holds the state of a radial gauge and renders it.
package gauge

import (
	"math"
	"sync"
	"time"
)

// Default gauge configuration, matching the browser widgets.
const (
	DefaultMin = -45.0
	DefaultMax = 45.0

	VerticalTitle   = "Vertical Angle"
	HorizontalTitle = "Horizontal Angle"
)

// Gauge is a single radial gauge. Refresh is called by one writer, readers
// (HTTP handlers, the panel loop) take snapshots through Reading.
type Gauge struct {
	mu      sync.RWMutex
	title   string
	min     float64
	max     float64
	value   float64
	updated time.Time
	updates uint64
}

// Reading is an immutable snapshot of a gauge.
type Reading struct {
	Title     string    `json:"title"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Updates   uint64    `json:"updates"`
}

// New returns a gauge with the given range and an initial value of 0.
func New(title string, min, max float64) *Gauge {
	return &Gauge{title: title, min: min, max: max}
}

// Refresh sets the displayed value. Values outside [min, max] are kept as is;
// clamping is a rendering concern.
func (g *Gauge) Refresh(value float64) {
	g.mu.Lock()
	g.value = value
	g.updated = time.Now()
	g.updates++
	g.mu.Unlock()
}

// Reading returns a snapshot of the gauge.
func (g *Gauge) Reading() Reading {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Reading{
		Title:     g.title,
		Min:       g.min,
		Max:       g.max,
		Value:     g.value,
		UpdatedAt: g.updated,
		Updates:   g.updates,
	}
}

// Clamped returns the value limited to the gauge range.
func (r Reading) Clamped() float64 {
	switch {
	case math.IsNaN(r.Value), r.Value < r.Min:
		return r.Min
	case r.Value > r.Max:
		return r.Max
	default:
		return r.Value
	}
}

// Fraction is the clamped value's position in the range, 0 at Min and 1 at Max.
func (r Reading) Fraction() float64 {
	if r.Max <= r.Min {
		return 0
	}
	return (r.Clamped() - r.Min) / (r.Max - r.Min)
}
