package model

import "time"

// SessionState is the login progress of a connection.
type SessionState int32

const (
	StateConnected      SessionState = iota // transport connected, hello sent
	StateTokenPresented                     // ltoken received, validating
	StateAuthenticated                      // token valid, handshake issued
	StateWorldJoinable                      // app check acknowledged
	StateDisconnected                       // transport disconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateTokenPresented:
		return "TOKEN_PRESENTED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateWorldJoinable:
		return "WORLD_JOINABLE"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// PeerFlags are transient per-session toggles.
type PeerFlags struct {
	Mod             uint32
	ModsEffect      uint32
	CanWalkInBlocks bool
	Ghost           bool
	LavaDamage      int
	LavaResetAt     time.Time
}

// CollectorLink points at the collector a remote is bound to.
type CollectorLink struct {
	World     string
	TileIndex int
}

// Peer is the server-side record of one live connection.
// The entity cache holds the only authoritative copy per connection id.
type Peer struct {
	ConnID        uint32
	Channel       uint8
	Instance      int
	State         SessionState
	Authenticated bool
	LoggedIn      bool

	UserID      string
	PlayerID    int64
	Name        string
	DisplayName string
	Role        Role
	World       string
	LastWorld   string

	Inventory Inventory
	Clothing  Clothing
	Gems      int
	Level     int
	Exp       int

	Flags         PeerFlags
	Platform      string
	ClientVersion string
	X, Y          float32
	Collector     *CollectorLink
}

// NewPeer returns the default record created on transport connect.
func NewPeer(instance int, connID uint32, channel uint8) Peer {
	return Peer{ConnID: connID, Channel: channel, Instance: instance, State: StateConnected}
}

// netIDShift leaves room for a million connections per instance.
const netIDShift = 20

// NetID is the id clients use for this peer in gameplay frames. It is unique
// across the instances of one process.
func (p Peer) NetID() int32 {
	return int32(p.Instance<<netIDShift | int(p.ConnID))
}

// Clone returns a deep copy.
func (p Peer) Clone() Peer {
	p.Inventory = p.Inventory.Clone()
	if p.Collector != nil {
		link := *p.Collector
		p.Collector = &link
	}
	return p
}

// Load populates identity and progress fields from a player record.
func (p *Peer) Load(pl Player) {
	p.UserID = pl.UserID
	p.PlayerID = pl.ID
	p.Name = pl.Name
	p.DisplayName = pl.DisplayName
	p.Role = pl.Role
	p.Inventory = pl.Inventory.Clone()
	p.Clothing = pl.Clothing
	p.Gems = pl.Gems
	p.Level = pl.Level
	p.Exp = pl.Exp
	p.LastWorld = pl.LastWorld
	if p.LastWorld == "" {
		p.LastWorld = StartWorld
	}
}

// Store copies progress fields back into a player record for saving.
func (p Peer) Store(pl *Player) {
	pl.DisplayName = p.DisplayName
	pl.Inventory = p.Inventory.Clone()
	pl.Clothing = p.Clothing
	pl.Gems = p.Gems
	pl.Level = p.Level
	pl.Exp = p.Exp
	if p.World != "" {
		pl.LastWorld = p.World
	} else if p.LastWorld != "" {
		pl.LastWorld = p.LastWorld
	}
}

// IsDeveloper reports whether the peer bypasses ownership checks.
func (p Peer) IsDeveloper() bool {
	return p.Role == RoleDeveloper
}
