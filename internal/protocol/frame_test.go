package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_TextRoundTrip(t *testing.T) {
	fields := Fields{
		"requestedName": "Alice",
		"ltoken":        "abc.def.ghi",
		"game_version":  "4.61",
		"platformID":    "0,1,1",
		"empty":         "",
	}

	frame, err := Decode(EncodeFields(TagText, fields))
	require.NoError(t, err)
	assert.Equal(t, TagText, frame.Tag)
	assert.Equal(t, fields, frame.Fields)
}

func TestDecode_ActionKeepsUnknownKeys(t *testing.T) {
	frame, err := Decode(EncodeText(TagAction, "action|input", "|text|hello", "whatever|1"))
	require.NoError(t, err)

	assert.Equal(t, "input", frame.Action())
	assert.Equal(t, "1", frame.Fields.Get("whatever"))
	assert.False(t, frame.Fields.Has("text"), "line with empty key is skipped")
}

func TestParseFields_BestEffort(t *testing.T) {
	body := []byte("action|dialog_return\ndialog_name|magplant_edit\ngarbage line\nbuttonClicked|magplant_add_items\x00")

	fields := ParseFields(body)
	assert.Equal(t, "dialog_return", fields.Action())

	assert.Equal(t, Fields{
		"action":        "dialog_return",
		"dialog_name":   "magplant_edit",
		"buttonClicked": "magplant_add_items",
	}, fields)
}

func TestParseFields_ValueMayContainPipe(t *testing.T) {
	fields := ParseFields([]byte("msg|a|b"))
	assert.Equal(t, "a|b", fields.Get("msg"))
}

func TestDecode_ShortBuffer(t *testing.T) {
	_, err := Decode([]byte{2, 0})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_UnknownTag(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, 99)

	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestHello(t *testing.T) {
	frame, err := Decode(Hello())
	require.NoError(t, err)
	assert.Equal(t, TagHello, frame.Tag)
}

func TestTag_String(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{TagHello, "HELLO"},
		{TagText, "TEXT"},
		{TagAction, "ACTION"},
		{TagTank, "TANK"},
		{Tag(7), "TAG(7)"},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.want {
			t.Errorf("Tag(%d).String() = %q, want %q", uint32(tt.tag), got, tt.want)
		}
	}
}
