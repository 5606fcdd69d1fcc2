package testutil

import (
	"testing"

	"github.com/udisondev/growgo/internal/protocol"
)

// Call хранит декодированный CallFunction фрейм.
type Call struct {
	Name  string
	Args  []any
	NetID int32
}

// Calls декодирует все CallFunction фреймы; остальные пропускаются.
func Calls(tb testing.TB, frames [][]byte) []Call {
	tb.Helper()
	var out []Call
	for _, raw := range frames {
		f, err := protocol.Decode(raw)
		if err != nil {
			tb.Fatalf("decoding frame: %v", err)
		}
		if f.Tag != protocol.TagTank || f.Tank.Type != protocol.TankCallFunction {
			continue
		}
		args, err := protocol.DecodeVariants(f.Tank.Data)
		if err != nil {
			tb.Fatalf("decoding variants: %v", err)
		}
		name, _ := args[0].(string)
		out = append(out, Call{Name: name, Args: args[1:], NetID: f.Tank.NetID})
	}
	return out
}

// CallNames возвращает имена вызовов по порядку.
func CallNames(tb testing.TB, frames [][]byte) []string {
	tb.Helper()
	var names []string
	for _, c := range Calls(tb, frames) {
		names = append(names, c.Name)
	}
	return names
}

// ConsoleMessages возвращает тексты OnConsoleMessage.
func ConsoleMessages(tb testing.TB, frames [][]byte) []string {
	tb.Helper()
	var msgs []string
	for _, c := range Calls(tb, frames) {
		if c.Name == "OnConsoleMessage" && len(c.Args) > 0 {
			s, _ := c.Args[0].(string)
			msgs = append(msgs, s)
		}
	}
	return msgs
}

// Tanks возвращает tank фреймы заданного типа.
func Tanks(tb testing.TB, frames [][]byte, typ protocol.TankType) []*protocol.Tank {
	tb.Helper()
	var out []*protocol.Tank
	for _, raw := range frames {
		f, err := protocol.Decode(raw)
		if err != nil {
			tb.Fatalf("decoding frame: %v", err)
		}
		if f.Tag == protocol.TagTank && f.Tank.Type == typ {
			out = append(out, f.Tank)
		}
	}
	return out
}

// Actions возвращает Fields всех action фреймов.
func Actions(tb testing.TB, frames [][]byte) []protocol.Fields {
	tb.Helper()
	var out []protocol.Fields
	for _, raw := range frames {
		f, err := protocol.Decode(raw)
		if err != nil {
			tb.Fatalf("decoding frame: %v", err)
		}
		if f.Tag == protocol.TagAction {
			out = append(out, f.Fields)
		}
	}
	return out
}

// TextFrame кодирует text фрейм из строк key|value.
func TextFrame(lines ...string) []byte {
	return protocol.EncodeText(protocol.TagText, lines...)
}

// ActionFrame кодирует action фрейм из строк key|value.
func ActionFrame(lines ...string) []byte {
	return protocol.EncodeText(protocol.TagAction, lines...)
}

// TankFrame кодирует tank фрейм.
func TankFrame(t protocol.Tank) []byte {
	return t.Encode()
}
