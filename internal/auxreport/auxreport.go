// Package auxreport encodes and decodes the auxiliary telemetry report.
//
// The report rides on a gamepad-shaped HID interface so that a host can read it
// without a custom driver:
//
//	byte  0     report ID (6)
//	bytes 1-4   buttons      uint32  bit n set when layer n is current
//	bytes 5-6   x            int16   key presses
//	bytes 7-8   y            int16   fn presses
//	bytes 9-10  rx           int16   encoder steps
//	bytes 11-12 ry           int16   mouse clicks
//	byte  13    z            int8    current layer
//	byte  14    rz           int8    last key position
//	byte  15    dpad         uint8   low nibble last key layer+1, high nibble current layer+1
//
// All multi-byte fields are little-endian.
package auxreport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	ReportID = 6
	Size     = 16

	// MaxCounter is the ceiling of every counter field.
	MaxCounter = 32767

	// UsagePage and Usage identify the interface during host enumeration.
	UsagePage = 0x01
	Usage     = 0x04
)

var ErrShortReport = errors.New("auxreport: short report")

// Report is the decoded telemetry snapshot.
type Report struct {
	Buttons      uint32
	KeyPresses   int16
	FnPresses    int16
	EncoderSteps int16
	MouseClicks  int16
	CurrentLayer int8
	LastKey      int8
	LastKeyLayer uint8

	// KeyLayerUnknown is set by Decode when the dpad low nibble is zero,
	// i.e. the sender did not say which layer LastKey was typed on.
	KeyLayerUnknown bool
}

// DPad packs the two layer fields into the hat byte.
func (r Report) DPad() uint8 {
	var lo uint8
	if !r.KeyLayerUnknown {
		lo = (r.LastKeyLayer + 1) & 0x0F
	}
	return lo | (uint8(r.CurrentLayer)+1)<<4
}

// Encode writes r into a report buffer including the report ID.
func (r Report) Encode() [Size]byte {
	var b [Size]byte
	b[0] = ReportID
	binary.LittleEndian.PutUint32(b[1:5], r.Buttons)
	binary.LittleEndian.PutUint16(b[5:7], uint16(r.KeyPresses))
	binary.LittleEndian.PutUint16(b[7:9], uint16(r.FnPresses))
	binary.LittleEndian.PutUint16(b[9:11], uint16(r.EncoderSteps))
	binary.LittleEndian.PutUint16(b[11:13], uint16(r.MouseClicks))
	b[13] = byte(r.CurrentLayer)
	b[14] = byte(r.LastKey)
	b[15] = r.DPad()
	return b
}

// Decode parses a report. Buffers read through hidapi start with the report ID;
// buffers without it (15 bytes) are accepted too.
func Decode(b []byte) (Report, error) {
	switch {
	case len(b) >= Size && b[0] == ReportID:
		b = b[1:Size]
	case len(b) == Size-1:
	case len(b) >= Size:
		return Report{}, fmt.Errorf("auxreport: unexpected report id %d", b[0])
	default:
		return Report{}, fmt.Errorf("%w: %d bytes", ErrShortReport, len(b))
	}

	r := Report{
		Buttons:      binary.LittleEndian.Uint32(b[0:4]),
		KeyPresses:   int16(binary.LittleEndian.Uint16(b[4:6])),
		FnPresses:    int16(binary.LittleEndian.Uint16(b[6:8])),
		EncoderSteps: int16(binary.LittleEndian.Uint16(b[8:10])),
		MouseClicks:  int16(binary.LittleEndian.Uint16(b[10:12])),
		CurrentLayer: int8(b[12]),
		LastKey:      int8(b[13]),
	}
	dpad := b[14]
	if lo := dpad & 0x0F; lo > 0 {
		r.LastKeyLayer = lo - 1
	} else {
		r.KeyLayerUnknown = true
	}
	return r, nil
}
