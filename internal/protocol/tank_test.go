package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTank_EncodeDecode(t *testing.T) {
	in := &Tank{
		Type:   TankTileChangeRequest,
		NetID:  42,
		State:  StateFlipped,
		Info:   5638,
		X:      320,
		Y:      640.5,
		PunchX: 10,
		PunchY: 20,
		Data:   []byte{1, 2, 3},
	}

	raw := in.Encode()
	require.Len(t, raw, TagSize+TankHeaderSize+3)

	frame, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, TagTank, frame.Tag)
	assert.Equal(t, in, frame.Tank)
}

func TestDecodeTank_HeaderLayout(t *testing.T) {
	body := make([]byte, TankHeaderSize)
	body[0] = byte(TankAppCheckResponse)
	binary.LittleEndian.PutUint32(body[4:], 7)
	binary.LittleEndian.PutUint32(body[20:], 18)
	binary.LittleEndian.PutUint32(body[44:], 3)
	binary.LittleEndian.PutUint32(body[48:], 4)

	tank, err := DecodeTank(body)
	require.NoError(t, err)
	assert.Equal(t, TankAppCheckResponse, tank.Type)
	assert.Equal(t, int32(7), tank.NetID)
	assert.Equal(t, int32(18), tank.Info)
	assert.Equal(t, int32(3), tank.PunchX)
	assert.Equal(t, int32(4), tank.PunchY)
	assert.Nil(t, tank.Data)
}

func TestDecodeTank_FailsClosed(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		_, err := DecodeTank(make([]byte, TankHeaderSize-1))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("declared length past end", func(t *testing.T) {
		body := make([]byte, TankHeaderSize+4)
		binary.LittleEndian.PutUint32(body[52:], 5)
		_, err := DecodeTank(body)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("huge declared length", func(t *testing.T) {
		body := make([]byte, TankHeaderSize)
		binary.LittleEndian.PutUint32(body[52:], 0xFFFFFFFF)
		_, err := DecodeTank(body)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("exact length", func(t *testing.T) {
		body := make([]byte, TankHeaderSize+4)
		binary.LittleEndian.PutUint32(body[52:], 4)
		tank, err := DecodeTank(body)
		require.NoError(t, err)
		assert.Len(t, tank.Data, 4)
	})
}
