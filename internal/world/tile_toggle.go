package world

import (
	"github.com/udisondev/growgo/internal/protocol"
)

// switchTile flips FlagOpen on every punch and still takes damage.
type switchTile struct{ normalTile }

func (switchTile) OnPunch(a *Action) error {
	if err := a.checkPermission(PermBreak); err != nil {
		return err
	}
	a.Tile().Flags ^= FlagOpen
	a.World.MarkDirty()
	a.broadcastTile()
	return basePunch(a)
}

// weatherTile switches the world weather to its own while open.
type weatherTile struct{ normalTile }

func (weatherTile) OnPunch(a *Action) error {
	if err := a.checkPermission(PermBreak); err != nil {
		return err
	}
	t := a.Tile()
	t.Flags ^= FlagOpen
	if t.Has(FlagOpen) {
		item, _ := a.Catalog.Metadata(t.Fg)
		a.World.Weather = item.WeatherID
	} else {
		a.World.Weather = DefaultWeather
	}
	a.World.MarkDirty()
	a.broadcastTile()
	a.Notify.ToWorld(weatherFrame(a.World.Weather))
	return basePunch(a)
}

func (weatherTile) OnDestroy(a *Action) error {
	if a.Tile().Has(FlagOpen) {
		a.World.Weather = DefaultWeather
		a.Notify.ToWorld(weatherFrame(a.World.Weather))
	}
	baseDestroy(a)
	return nil
}

func weatherFrame(id uint16) []byte {
	return protocol.Call("OnSetCurrentWeather", []any{int(id)})
}
