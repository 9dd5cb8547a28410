package auxreport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	r := Report{
		Buttons:      1 << 2,
		KeyPresses:   0x0102,
		FnPresses:    3,
		EncoderSteps: 300,
		MouseClicks:  MaxCounter,
		CurrentLayer: 2,
		LastKey:      47,
		LastKeyLayer: 0,
	}
	b := r.Encode()

	assert.Equal(t, byte(ReportID), b[0])
	assert.Equal(t, []byte{0x04, 0, 0, 0}, b[1:5])
	assert.Equal(t, []byte{0x02, 0x01}, b[5:7])
	assert.Equal(t, []byte{0x03, 0x00}, b[7:9])
	assert.Equal(t, []byte{0x2C, 0x01}, b[9:11])
	assert.Equal(t, []byte{0xFF, 0x7F}, b[11:13])
	assert.Equal(t, byte(2), b[13])
	assert.Equal(t, byte(47), b[14])
	assert.Equal(t, byte(0x31), b[15], "dpad: last key layer 0, current layer 2")
}

func TestDecodeAcceptsBothForms(t *testing.T) {
	r := Report{Buttons: 8, KeyPresses: 12, CurrentLayer: 3, LastKey: 2, LastKeyLayer: 3}
	full := r.Encode()

	got, err := Decode(full[:])
	require.NoError(t, err)
	assert.Equal(t, r, got)

	got, err = Decode(full[1:])
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{6, 1, 2})
	assert.True(t, errors.Is(err, ErrShortReport))

	buf := make([]byte, Size)
	buf[0] = 1
	_, err = Decode(buf)
	assert.Error(t, err)
}

func TestDecodeMissingKeyLayer(t *testing.T) {
	buf := make([]byte, Size)
	buf[0] = ReportID
	buf[13] = 2    // current layer
	buf[14] = 27   // last key
	buf[15] = 0x30 // current layer only, low nibble empty

	got, err := Decode(buf)
	require.NoError(t, err)
	assert.True(t, got.KeyLayerUnknown)
	assert.Zero(t, got.LastKeyLayer)

	enc := got.Encode()
	assert.Equal(t, byte(0x30), enc[15], "unknown key layer encodes as an empty nibble")
}
