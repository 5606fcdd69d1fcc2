package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/udisondev/growgo/internal/db"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/world"
)

// ErrInjected: ошибка, которую Store возвращает после FailNext.
var ErrInjected = errors.New("injected failure")

// Store: in-memory имплементация репозиториев игроков, миров и сессий.
// Не требует реального PostgreSQL.
type Store struct {
	mu       sync.Mutex
	players  map[string]model.Player // by user id
	worlds   map[string]*world.World
	sessions map[string]model.Session
	nextID   int64
	saves    int
	failIn   int
}

// NewStore создаёт пустой Store.
func NewStore() *Store {
	return &Store{
		players:  make(map[string]model.Player),
		worlds:   make(map[string]*world.World),
		sessions: make(map[string]model.Session),
		failIn:   -1,
	}
}

// FailNext заставляет следующий вызов вернуть ErrInjected.
func (s *Store) FailNext() {
	s.FailAfter(0)
}

// FailAfter пропускает n успешных вызовов, после чего один вызов
// возвращает ErrInjected.
func (s *Store) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failIn = n
}

func (s *Store) failing() bool {
	switch {
	case s.failIn == 0:
		s.failIn = -1
		return true
	case s.failIn > 0:
		s.failIn--
	}
	return false
}

// AddSession регистрирует сессию, как это делает веб-портал.
func (s *Store) AddSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
}

// GetSession имплементирует login.SessionRepository.
func (s *Store) GetSession(_ context.Context, token string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return model.Session{}, ErrInjected
	}
	sess, ok := s.sessions[token]
	if !ok {
		return model.Session{}, db.ErrNotFound
	}
	return sess, nil
}

// GetPlayer ищет игрока по имени.
func (s *Store) GetPlayer(_ context.Context, name string) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return model.Player{}, ErrInjected
	}
	for _, p := range s.players {
		if p.Name == strings.ToLower(name) {
			return clonePlayer(p), nil
		}
	}
	return model.Player{}, db.ErrNotFound
}

// GetOrCreatePlayer возвращает игрока userID, создавая его с дефолтами.
func (s *Store) GetOrCreatePlayer(_ context.Context, userID string, d model.PlayerDefaults) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return model.Player{}, ErrInjected
	}
	if p, ok := s.players[userID]; ok {
		return clonePlayer(p), nil
	}
	s.nextID++
	p := model.NewPlayer(userID, d)
	p.ID = s.nextID
	s.players[userID] = p
	return clonePlayer(p), nil
}

// SavePlayer сохраняет изменяемые поля игрока.
func (s *Store) SavePlayer(_ context.Context, p model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return ErrInjected
	}
	cur, ok := s.players[p.UserID]
	if !ok {
		return db.ErrNotFound
	}
	p.PasswordHash = cur.PasswordHash
	p.CreatedAt = cur.CreatedAt
	s.players[p.UserID] = clonePlayer(p)
	s.saves++
	return nil
}

// SetPassword заменяет хэш пароля.
func (s *Store) SetPassword(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[userID]
	if !ok {
		return db.ErrNotFound
	}
	p.PasswordHash = hash
	s.players[userID] = p
	return nil
}

// Player возвращает сохранённую запись userID.
func (s *Store) Player(userID string) (model.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[userID]
	return clonePlayer(p), ok
}

// PutPlayer кладёт запись напрямую, минуя дефолты.
func (s *Store) PutPlayer(p model.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	}
	s.players[p.UserID] = clonePlayer(p)
}

// PlayerSaves возвращает количество успешных SavePlayer.
func (s *Store) PlayerSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// GetWorld возвращает копию сохранённого мира.
func (s *Store) GetWorld(_ context.Context, name string) (*world.World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return nil, ErrInjected
	}
	w, ok := s.worlds[name]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := w.Clone()
	c.Restore()
	return c, nil
}

// SaveWorld сохраняет копию мира.
func (s *Store) SaveWorld(_ context.Context, w *world.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return ErrInjected
	}
	c := w.Clone()
	c.MarkClean()
	s.worlds[w.Name] = c
	return nil
}

// World возвращает сохранённый мир.
func (s *Store) World(name string) (*world.World, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.worlds[name]
	return w, ok
}

func clonePlayer(p model.Player) model.Player {
	p.Inventory = p.Inventory.Clone()
	return p
}
