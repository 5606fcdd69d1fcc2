package catalog

// ItemType is the action type an item declares in the catalog.
type ItemType uint8

const (
	TypeFist           ItemType = 0
	TypeWrench         ItemType = 1
	TypeDoor           ItemType = 2
	TypeLock           ItemType = 3
	TypeGems           ItemType = 4
	TypeSign           ItemType = 10
	TypeMainDoor       ItemType = 13
	TypeBedrock        ItemType = 15
	TypeLava           ItemType = 16
	TypeForeground     ItemType = 17
	TypeBackground     ItemType = 18
	TypeSeed           ItemType = 19
	TypeClothes        ItemType = 20
	TypePortal         ItemType = 26
	TypeSwitcheroo     ItemType = 31
	TypeDice           ItemType = 36
	TypeWeatherMachine ItemType = 41
	TypeHeartMonitor   ItemType = 46
	TypeDisplayBlock   ItemType = 61
	TypeJammer         ItemType = 127
)

var typeNames = map[ItemType]string{
	TypeFist:           "FIST",
	TypeWrench:         "WRENCH",
	TypeDoor:           "DOOR",
	TypeLock:           "LOCK",
	TypeGems:           "GEMS",
	TypeSign:           "SIGN",
	TypeMainDoor:       "MAIN_DOOR",
	TypeBedrock:        "BEDROCK",
	TypeLava:           "LAVA",
	TypeForeground:     "FOREGROUND",
	TypeBackground:     "BACKGROUND",
	TypeSeed:           "SEED",
	TypeClothes:        "CLOTHES",
	TypePortal:         "PORTAL",
	TypeSwitcheroo:     "SWITCHEROO",
	TypeDice:           "DICE",
	TypeWeatherMachine: "WEATHER_MACHINE",
	TypeHeartMonitor:   "HEART_MONITOR",
	TypeDisplayBlock:   "DISPLAY_BLOCK",
	TypeJammer:         "JAMMER",
}

func (t ItemType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Item is the metadata of one catalog entry.
type Item struct {
	ID        uint16   `yaml:"id"`
	Name      string   `yaml:"name"`
	Type      ItemType `yaml:"type"`
	Rarity    int      `yaml:"rarity"`
	BreakHits int      `yaml:"break_hits"`
	GrowTime  int      `yaml:"grow_time"` // seconds, seeds only
	MaxAmount int      `yaml:"max_amount"`
	WorldLock bool     `yaml:"world_lock"`
	WeatherID uint16   `yaml:"weather_id"` // weather machines only
}

// Hits returns how many punches break the item, at least one.
func (it Item) Hits() int {
	return max(it.BreakHits, 1)
}
