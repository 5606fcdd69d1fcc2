package gameserver

import (
	"fmt"
	"strings"

	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
)

// Notices shown to clients.
const (
	msgSessionExpired  = "`4Session Expired`` It seems that this account already expired. try login again"
	msgAlreadyLoggedIn = "`4Already Logged In?`` It seems that this account already logged in by somebody else."
	msgLoginFailed     = "`4Failed to create player data`` Please try again later."
	msgUnknownCommand  = "`4Unknown command.`` Enter /help for a list of valid commands."
	msgNoPermission    = "You don't have permission to use this command."
)

func updateRequired(version string) string {
	return fmt.Sprintf("`4UPDATE REQUIRED!`` : The `$V%s`` update is now available for your device.  Go get it!  You'll need to install it before you can play online.", version)
}

// spawnFrame announces p to a client. local marks the receiver's own avatar.
func spawnFrame(p model.Peer, local bool) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "spawn|avatar\nnetID|%d\nuserID|%d\ncolrect|0|0|20|30\n", p.NetID(), p.PlayerID)
	fmt.Fprintf(&b, "posXY|%d|%d\nname|``%s``\ncountry|us\ninvis|0\nmstate|0\nsmstate|0\nonlineID|\n",
		int(p.X), int(p.Y), p.DisplayName)
	if local {
		b.WriteString("type|local\n")
	}
	return protocol.Call("OnSpawn", []any{b.String()})
}

func removeFrame(p model.Peer) []byte {
	return protocol.Call("OnRemove", []any{fmt.Sprintf("netID|%d\n", p.NetID())})
}

// inventoryFrame is the full SendInventoryState payload:
// version u8, max u32, count u16, then id u16, amount u8, flags u8 per item.
func inventoryFrame(netID int32, inv model.Inventory) []byte {
	w := protocol.NewWriter(7 + 4*len(inv.Items))
	_ = w.WriteByte(1)
	w.WriteU32(uint32(inv.Max))
	w.WriteU16(uint16(len(inv.Items)))
	for _, it := range inv.Items {
		w.WriteU16(it.ItemID)
		_ = w.WriteByte(it.Amount)
		_ = w.WriteByte(0)
	}
	t := protocol.Tank{
		Type:  protocol.TankSendInventoryState,
		NetID: netID,
		State: protocol.StateExtended,
		Data:  w.Bytes(),
	}
	return t.Encode()
}

func worldMenuFrame() []byte {
	menu := "add_filter|\nadd_heading|Top Worlds|\n" +
		"add_floater|START|0|0.5|3529161471\n" +
		"add_floater|EXIT|0|0.5|3529161471\n"
	return protocol.Call("OnRequestWorldSelectMenu", []any{menu})
}

func failedToEnterFrame(msg string) [][]byte {
	return [][]byte{
		protocol.ConsoleMessage(msg),
		protocol.Call("OnFailedToEnterWorld", []any{1}),
	}
}

func chatLine(p model.Peer, text string) string {
	return fmt.Sprintf("CP:0_PL:0_OID:_CT:[W]_ <`w%s``> %s", p.DisplayName, text)
}
