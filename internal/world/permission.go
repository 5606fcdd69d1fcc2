package world

import "slices"

// Permission is the kind of tile access being checked.
type Permission int

const (
	PermBuild Permission = iota
	PermBreak
)

// HasPermission reports whether actor may build or break in this world.
// Unlocked worlds are open to everyone. In a locked world the owner, players
// on the lock's access list, and anyone when the lock is public may act.
func (w *World) HasPermission(a Actor, _ Permission) bool {
	if a.IsDeveloper() || w.Owner == nil {
		return true
	}
	if w.Owner.PlayerID == a.PlayerID {
		return true
	}
	lock := w.worldLock()
	if lock == nil {
		return false
	}
	if slices.Contains(lock.Access, a.PlayerID) {
		return true
	}
	t := w.Tile(w.Owner.LockIndex)
	return t != nil && t.Has(FlagPublic)
}

func (w *World) worldLock() *LockData {
	if w.Owner == nil {
		return nil
	}
	if e := w.Extras[w.Owner.LockIndex]; e != nil {
		return e.Lock
	}
	return nil
}

// checkPermission plays the lock sound on failure.
func (a *Action) checkPermission(p Permission) error {
	if a.World.HasPermission(a.Actor, p) {
		return nil
	}
	a.lockSound()
	return ErrNoPermission
}
