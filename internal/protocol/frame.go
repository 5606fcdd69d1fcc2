package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Tag is the 4-byte little-endian frame type prefix.
type Tag uint32

const (
	TagHello  Tag = 1
	TagText   Tag = 2
	TagAction Tag = 3
	TagTank   Tag = 4
)

func (t Tag) String() string {
	switch t {
	case TagHello:
		return "HELLO"
	case TagText:
		return "TEXT"
	case TagAction:
		return "ACTION"
	case TagTank:
		return "TANK"
	default:
		return fmt.Sprintf("TAG(%d)", uint32(t))
	}
}

// TagSize is the size of the frame type prefix.
const TagSize = 4

var (
	// ErrMalformed is returned for frames that cannot be decoded.
	ErrMalformed = errors.New("malformed frame")
	// ErrUnknownTag is returned for frames with an unrecognised type tag.
	ErrUnknownTag = errors.New("unknown frame tag")
)

// Fields is a parsed key|value body. Unknown keys are kept.
type Fields map[string]string

// Get returns the value for key or "".
func (f Fields) Get(key string) string {
	return f[key]
}

// Action returns the "action" field, or "" for a body without one.
func (f Fields) Action() string {
	return f["action"]
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Frame is a decoded inbound frame. Fields is set for Text and Action
// frames, Tank for Tank frames.
type Frame struct {
	Tag    Tag
	Fields Fields
	Tank   *Tank
}

// Action returns the "action" field of an Action or Text frame.
func (f Frame) Action() string {
	return f.Fields.Action()
}

// Decode decodes a raw frame. It never reads out of bounds.
func Decode(data []byte) (Frame, error) {
	if len(data) < TagSize {
		return Frame{}, fmt.Errorf("%w: %d bytes, need tag", ErrMalformed, len(data))
	}
	tag := Tag(binary.LittleEndian.Uint32(data))
	body := data[TagSize:]

	switch tag {
	case TagText, TagAction:
		return Frame{Tag: tag, Fields: ParseFields(body)}, nil
	case TagTank:
		tank, err := DecodeTank(body)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Tag: tag, Tank: tank}, nil
	case TagHello:
		return Frame{Tag: tag}, nil
	default:
		return Frame{}, fmt.Errorf("%w: %d", ErrUnknownTag, uint32(tag))
	}
}

// ParseFields parses a newline-separated key|value body, line by line.
// A line without a separator is skipped without affecting the others.
func ParseFields(body []byte) Fields {
	s := strings.TrimRight(string(body), "\x00")
	fields := make(Fields)
	for line := range strings.SplitSeq(s, "\n") {
		line = strings.TrimSuffix(line, "\r")
		key, value, ok := strings.Cut(line, "|")
		if !ok || key == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

// EncodeText encodes ordered key|value lines under tag, NUL terminated.
func EncodeText(tag Tag, lines ...string) []byte {
	size := TagSize + 1
	for _, l := range lines {
		size += len(l) + 1
	}
	buf := make([]byte, TagSize, size)
	binary.LittleEndian.PutUint32(buf, uint32(tag))
	for i, l := range lines {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, l...)
	}
	return append(buf, 0)
}

// EncodeFields encodes a Fields map with keys in sorted order.
func EncodeFields(tag Tag, fields Fields) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"|"+fields[k])
	}
	return EncodeText(tag, lines...)
}

// Hello returns the handshake frame sent on connect.
func Hello() []byte {
	buf := make([]byte, TagSize)
	binary.LittleEndian.PutUint32(buf, uint32(TagHello))
	return buf
}

// Log returns an action|log frame carrying msg.
func Log(msg string) []byte {
	return EncodeText(TagAction, "action|log", "msg|"+msg)
}
