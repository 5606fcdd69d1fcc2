package world

import (
	"github.com/udisondev/growgo/internal/catalog"
)

var jammerIDs = map[uint16]JammerKind{
	226:  JammerSignal,
	1276: JammerPunch,
	1278: JammerZombie,
}

// jammerMessages holds the enable and disable notices per kind.
var jammerMessages = map[JammerKind][2]string{
	JammerSignal: {
		"Signal jammer enabled. This world is now `4hidden`` from the universe.",
		"Signal jammer disabled.  This world is `2visible`` to the universe.",
	},
	JammerPunch: {
		"`2No-Punch zone`` enabled. Players cannot punch each other here.",
		"`2No-Punch zone`` disabled.",
	},
	JammerZombie: {
		"`2Zombie-free zone`` enabled. Players are immune to zombie infection here.",
		"`2Zombie-free zone`` disabled.",
	},
}

// jammerTile toggles a world-wide effect. Its state lives in World.Jammers
// and the tile's FlagOpen; nothing extra goes on the wire.
type jammerTile struct{ normalTile }

func (jammerTile) OnPlaceForeground(a *Action, item catalog.Item) error {
	if err := basePlace(a, item); err != nil {
		return err
	}
	if kind, ok := jammerIDs[item.ID]; ok {
		if _, exists := a.World.Jammers[kind]; !exists {
			a.World.Jammers[kind] = false
		}
		a.Tile().Flags &^= FlagOpen
	}
	a.broadcastTile()
	return nil
}

func (jammerTile) OnPunch(a *Action) error {
	kind, ok := jammerIDs[a.Tile().Fg]
	if !ok {
		return basePunch(a)
	}
	if err := a.checkPermission(PermBreak); err != nil {
		return err
	}

	t := a.Tile()
	t.Flags ^= FlagOpen
	enabled := t.Has(FlagOpen)
	a.World.Jammers[kind] = enabled
	a.World.MarkDirty()
	a.broadcastTile()

	msg := jammerMessages[kind]
	if enabled {
		a.console(msg[0])
	} else {
		a.console(msg[1])
	}
	return nil
}

func (jammerTile) OnDestroy(a *Action) error {
	if kind, ok := jammerIDs[a.Tile().Fg]; ok {
		delete(a.World.Jammers, kind)
	}
	baseDestroy(a)
	return nil
}
