package world

import "errors"

var (
	// ErrNoPermission: the actor may not build or break here.
	ErrNoPermission = errors.New("no permission")
	// ErrNotOwner: the machine belongs to someone else.
	ErrNotOwner = errors.New("not the owner")
	// ErrNotLocked: the action requires a world lock.
	ErrNotLocked = errors.New("world is not locked")
	// ErrCapacity: machine storage full or nothing to take.
	ErrCapacity = errors.New("capacity exceeded")
	// ErrOutOfBounds: tile coordinates outside the grid.
	ErrOutOfBounds = errors.New("tile out of bounds")
	// ErrOccupied: the tile already has a foreground.
	ErrOccupied = errors.New("tile occupied")
	// ErrUnbreakable: the tile cannot be destroyed.
	ErrUnbreakable = errors.New("tile unbreakable")
	// ErrInvalidItem: unknown or unsuitable item.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidName: world name fails validation.
	ErrInvalidName = errors.New("invalid world name")
)
