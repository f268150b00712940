// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package frame describes the binary orientation record sent by the vision
// producer and the message kinds that arrive over the source socket.
//
// Record layout (big-endian):
//
//	[0,12)   header, reserved by the producer, ignored here
//	[12,20)  vertical angle, float64, radians
//	[20,28)  horizontal angle, float64, radians
//	[28,…)   trailing fields, ignored
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	HeaderSize       = 12
	VerticalOffset   = 12
	HorizontalOffset = 20
	fieldSize        = 8

	// MinSize is the shortest payload that carries both angle fields.
	MinSize = HorizontalOffset + fieldSize
)

// ErrShortPayload is returned when a binary payload cannot hold both angles.
var ErrShortPayload = errors.New("payload too short")

// Sample is one orientation reading, both axes in radians.
type Sample struct {
	VerticalRad   float64
	HorizontalRad float64
}

// Decode extracts the two angle fields from payload. Bytes outside the two
// fields are not inspected.
func Decode(payload []byte) (Sample, error) {
	if len(payload) < MinSize {
		return Sample{}, fmt.Errorf("%w: got %d bytes, need %d", ErrShortPayload, len(payload), MinSize)
	}
	return Sample{
		VerticalRad:   readFloat64(payload, VerticalOffset),
		HorizontalRad: readFloat64(payload, HorizontalOffset),
	}, nil
}

// Encode builds a MinSize record from header and s.
func Encode(header [HeaderSize]byte, s Sample) []byte {
	buf := make([]byte, MinSize)
	copy(buf, header[:])
	binary.BigEndian.PutUint64(buf[VerticalOffset:], math.Float64bits(s.VerticalRad))
	binary.BigEndian.PutUint64(buf[HorizontalOffset:], math.Float64bits(s.HorizontalRad))
	return buf
}

func readFloat64(p []byte, off int) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(p[off : off+fieldSize]))
}
