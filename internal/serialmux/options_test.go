package serialmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.bug.st/serial"
)

func TestNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, 115200, opts.BaudRate)
	assert.Equal(t, 8, opts.DataBits)
	assert.Equal(t, 1, opts.StopBits)
	assert.Equal(t, "N", opts.Parity)
}

func TestNormalizeParityAliases(t *testing.T) {
	for alias, want := range map[string]string{
		"none": "N", "N": "N",
		"even": "E", "E": "E",
		"odd": "O", "o": "O",
	} {
		opts, err := PortOptions{Parity: alias}.Normalize()
		require.NoError(t, err, "parity %q", alias)
		assert.Equal(t, want, opts.Parity, "parity %q", alias)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	_, err := PortOptions{DataBits: 4}.Normalize()
	assert.Error(t, err)

	_, err = PortOptions{StopBits: 3}.Normalize()
	assert.Error(t, err)

	_, err = PortOptions{Parity: "M"}.Normalize()
	assert.Error(t, err)
}

func TestSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, Parity: "even"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.StopBits(1), mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)

	_, err = PortOptions{DataBits: 9}.SerialMode()
	assert.Error(t, err)
}
