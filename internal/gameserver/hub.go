package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/udisondev/growgo/internal/cache"
	"github.com/udisondev/growgo/internal/cluster"
	"github.com/udisondev/growgo/internal/db"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/world"
)

// WorldRepository persists worlds.
type WorldRepository interface {
	GetWorld(ctx context.Context, name string) (*world.World, error)
	SaveWorld(ctx context.Context, w *world.World) error
}

// ClaimPublisher announces session claims to other processes.
type ClaimPublisher interface {
	PublishClaim(ctx context.Context, c cluster.Claim) error
}

// HubConfig configures a Hub.
type HubConfig struct {
	WorldTTL      time.Duration
	WorldCapacity int
	Worlds        WorldRepository
	Bus           ClaimPublisher // optional
	Catalog       world.ItemCatalog
}

// Hub is the state shared by every server instance of one process: loaded
// worlds, the session registry and the routing table to each instance.
type Hub struct {
	registry *Registry
	worlds   *cache.Cache[string, *world.World]
	repo     WorldRepository
	bus      ClaimPublisher
	catalog  world.ItemCatalog
	loads    singleflight.Group
	saves    sync.WaitGroup

	// in-flight writes, by world name and by user id
	worldSaves  *pendingSaves
	playerSaves *pendingSaves

	mu      sync.RWMutex
	servers map[int]*Server

	now func() time.Time
}

// NewHub creates a hub. Dirty worlds evicted from the cache are saved in the background.
func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		repo:     cfg.Worlds,
		bus:      cfg.Bus,
		catalog:  cfg.Catalog,
		servers:  make(map[int]*Server),
		now:      time.Now,

		worldSaves:  newPendingSaves(),
		playerSaves: newPendingSaves(),
	}
	h.worlds = cache.New(cache.Options[string, *world.World]{
		TTL:      cfg.WorldTTL,
		Capacity: cfg.WorldCapacity,
		OnEvict:  h.onWorldEvicted,
	})
	return h
}

// Registry returns the session registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Worlds returns the world cache for the sweeper.
func (h *Hub) Worlds() *cache.Cache[string, *world.World] { return h.worlds }

func (h *Hub) register(s *Server) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.servers[s.instance] = s
}

func (h *Hub) unregister(s *Server) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.servers[s.instance] == s {
		delete(h.servers, s.instance)
	}
}

func (h *Hub) server(instance int) *Server {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.servers[instance]
}

func (h *Hub) allServers() []*Server {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Server, 0, len(h.servers))
	for _, s := range h.servers {
		out = append(out, s)
	}
	return out
}

// LoadWorld makes sure name is in the cache, loading it from storage or
// generating it on a miss. Concurrent loads of the same name share one call,
// and a load waits for any save of that world still in flight.
func (h *Hub) LoadWorld(ctx context.Context, name string) error {
	if h.worlds.Renew(name) {
		return nil
	}
	_, err, _ := h.loads.Do(name, func() (any, error) {
		if h.worlds.Renew(name) {
			return nil, nil
		}
		if err := h.worldSaves.wait(ctx, name); err != nil {
			return nil, fmt.Errorf("waiting for save of world %s: %w", name, err)
		}
		w, err := h.repo.GetWorld(ctx, name)
		switch {
		case errors.Is(err, db.ErrNotFound):
			rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
			w = world.Generate(name, world.DefaultWidth, world.DefaultHeight, rng)
			slog.Info("generated world", "world", name)
		case err != nil:
			return nil, fmt.Errorf("loading world %s: %w", name, err)
		}
		h.worlds.Set(name, w)
		return nil, nil
	})
	return err
}

// WithWorld runs fn on the cached world under its entry lock and extends the
// world's TTL. It reports false if the world is not loaded.
func (h *Hub) WithWorld(name string, fn func(w *world.World)) bool {
	ok := h.worlds.Modify(name, func(w *world.World) *world.World {
		fn(w)
		return w
	})
	if ok {
		h.worlds.Renew(name)
	}
	return ok
}

// Update runs fn on world name like WithWorld, loading the world again if it
// has left the cache.
func (h *Hub) Update(ctx context.Context, name string, fn func(w *world.World)) error {
	if h.WithWorld(name, fn) {
		return nil
	}
	if err := h.LoadWorld(ctx, name); err != nil {
		return err
	}
	if !h.WithWorld(name, fn) {
		return fmt.Errorf("world %s: %w", name, ErrNotInWorld)
	}
	return nil
}

// Members returns a copy of every peer in world name across all instances.
func (h *Hub) Members(name string) []model.Peer {
	var out []model.Peer
	for _, s := range h.allServers() {
		for _, p := range s.peers.All() {
			if p.World == name {
				out = append(out, p)
			}
		}
	}
	return out
}

// Broadcast sends frames to every peer in world name. Delivery is best effort.
func (h *Hub) Broadcast(name string, except int32, frames ...[]byte) {
	if len(frames) == 0 {
		return
	}
	for _, p := range h.Members(name) {
		if p.NetID() == except {
			continue
		}
		h.sendTo(Holder{Instance: p.Instance, Conn: p.ConnID}, frames...)
	}
}

func (h *Hub) sendTo(to Holder, frames ...[]byte) {
	s := h.server(to.Instance)
	if s == nil {
		return
	}
	if err := s.host.Send(to.Conn, frames...); err != nil {
		slog.Debug("send failed", "instance", to.Instance, "conn", to.Conn, "error", err)
	}
}

// Claim makes h the holder of userID, evicting any previous local holder and
// announcing the claim to other processes.
func (h *Hub) Claim(ctx context.Context, userID string, holder Holder) {
	if prev, had := h.registry.Claim(userID, holder); had {
		slog.Info("evicting duplicate session", "user", userID, "instance", prev.Instance, "conn", prev.Conn)
		h.kick(prev)
	}
	if h.bus == nil {
		return
	}
	c := cluster.Claim{UserID: userID, Instance: holder.Instance, ConnID: holder.Conn}
	if err := h.bus.PublishClaim(ctx, c); err != nil {
		slog.Warn("publishing session claim", "user", userID, "error", err)
	}
}

// OnRemoteClaim evicts the local holder of a user that logged in elsewhere.
func (h *Hub) OnRemoteClaim(c cluster.Claim) {
	holder, ok := h.registry.Lookup(c.UserID)
	if !ok {
		return
	}
	if h.registry.Release(c.UserID, holder) {
		slog.Info("session claimed by another process", "user", c.UserID, "origin", c.Origin)
		h.kick(holder)
	}
}

// kick de-authenticates and disconnects a holder. A holder that is already
// gone is ignored.
func (h *Hub) kick(holder Holder) {
	s := h.server(holder.Instance)
	if s == nil {
		return
	}
	s.kick(holder.Conn, msgAlreadyLoggedIn)
}

// SaveDirty persists every dirty cached world and returns how many were saved.
// A world is snapshotted under its lock and written without it.
func (h *Hub) SaveDirty(ctx context.Context) int {
	var names []string
	for name := range h.worlds.All() {
		names = append(names, name)
	}

	saved := 0
	for _, name := range names {
		var snap *world.World
		done := func() {}
		h.worlds.View(name, func(w *world.World) {
			if w.Dirty() {
				snap = w.Clone()
				w.MarkClean()
				done = h.worldSaves.begin(name)
			}
		})
		if snap == nil {
			continue
		}
		err := h.repo.SaveWorld(ctx, snap)
		done()
		if err != nil {
			slog.Error("saving world", "world", name, "error", err)
			h.WithWorld(name, func(w *world.World) { w.MarkDirty() })
			continue
		}
		saved++
	}
	return saved
}

// RunSaver flushes dirty worlds every interval and once more on shutdown.
func (h *Hub) RunSaver(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if n := h.SaveDirty(flushCtx); n > 0 {
				slog.Info("saved worlds on shutdown", "count", n)
			}
			h.saves.Wait()
			return nil
		case <-ticker.C:
			if n := h.SaveDirty(ctx); n > 0 {
				slog.Debug("saved dirty worlds", "count", n)
			}
		}
	}
}

// onWorldEvicted saves a dirty world that left the cache. The entry is no
// longer reachable through the cache, so the snapshot is final.
func (h *Hub) onWorldEvicted(name string, w *world.World) {
	if !w.Dirty() {
		return
	}
	snap := w.Clone()
	done := h.worldSaves.begin(name)
	h.saves.Go(func() {
		defer done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.repo.SaveWorld(ctx, snap); err != nil {
			slog.Error("saving evicted world", "world", name, "error", err)
		}
	})
}
