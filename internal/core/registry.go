package core

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/someonesays/roomserver/internal/capacity"
	"github.com/someonesays/roomserver/internal/content"
	"github.com/someonesays/roomserver/internal/domain"
)

// ErrAtCapacity reports that the server's soft room-count cap is
// reached and no new room may be created.
var ErrAtCapacity = errors.New("server room capacity reached")

// Registry is the process-wide map from room id to room. Constructed
// once at startup and shared by every connection handler; rooms are
// purely in-memory and lost on restart.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room

	serverID   domain.ServerID
	maxRooms   int
	readyGrace time.Duration
	content    content.Store
	reporter   capacity.Reporter
}

func NewRegistry(serverID domain.ServerID, maxRooms int, readyGrace time.Duration,
	store content.Store, reporter capacity.Reporter) *Registry {
	return &Registry{
		rooms:      make(map[domain.RoomID]*Room),
		serverID:   serverID,
		maxRooms:   maxRooms,
		readyGrace: readyGrace,
		content:    store,
		reporter:   reporter,
	}
}

func (r *Registry) Get(id domain.RoomID) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Create inserts a new empty room. If another handler won the race,
// the existing room is returned with created=false. The new count is
// reported to the capacity tracker asynchronously.
func (r *Registry) Create(id domain.RoomID) (room *Room, created bool, err error) {
	r.mu.Lock()
	if room, ok := r.rooms[id]; ok {
		r.mu.Unlock()
		return room, false, nil
	}
	if r.maxRooms > 0 && len(r.rooms) >= r.maxRooms {
		r.mu.Unlock()
		return nil, false, ErrAtCapacity
	}
	room = NewRoom(id, r.content, r.readyGrace)
	r.rooms[id] = room
	count := len(r.rooms)
	r.mu.Unlock()

	log.Info().Str("module", "core.registry").Str("room", string(id)).Int("rooms", count).Msg("room created")
	capacity.ReportAsync(r.reporter, r.serverID, count)
	return room, true, nil
}

// Remove drops an emptied room and reports the new count. Removing an
// id that is absent (or already replaced) is a no-op.
func (r *Registry) Remove(id domain.RoomID) {
	r.mu.Lock()
	_, ok := r.rooms[id]
	if ok {
		delete(r.rooms, id)
	}
	count := len(r.rooms)
	r.mu.Unlock()
	if !ok {
		return
	}

	log.Info().Str("module", "core.registry").Str("room", string(id)).Int("rooms", count).Msg("room removed")
	capacity.ReportAsync(r.reporter, r.serverID, count)
}
