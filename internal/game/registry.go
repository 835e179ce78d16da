// internal/game/registry.go
package game

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tresillo/internal/models"
)

// DefaultRoomID is the room clients land in when they name none. It is never reaped.
const DefaultRoomID = "default"

// Registry owns every room of the process.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	base  Options
}

// NewRegistry creates the registry and its default room. base is the template
// for every room; each room gets its own executor.
func NewRegistry(base Options) *Registry {
	reg := &Registry{
		rooms: make(map[string]*Room),
		base:  base,
	}
	reg.rooms[DefaultRoomID] = reg.newRoom(DefaultRoomID, base.Mode, base.Rules)
	return reg
}

func (reg *Registry) newRoom(id string, mode models.Mode, rules HouseRules) *Room {
	opts := reg.base
	opts.Executor = nil
	opts.Rand = nil
	if mode.Valid() {
		opts.Mode = mode
	}
	if rules != (HouseRules{}) {
		opts.Rules = rules
	}
	return NewRoom(id, opts)
}

// Create makes a room with a fresh "r-" id.
func (reg *Registry) Create(mode models.Mode, rules HouseRules) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	id := "r-" + uuid.NewString()[:6]
	for reg.rooms[id] != nil {
		id = "r-" + uuid.NewString()[:6]
	}
	room := reg.newRoom(id, mode, rules)
	reg.rooms[id] = room
	return room
}

// Get returns the room with the given id.
func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	return room, ok
}

// Default returns the default room.
func (reg *Registry) Default() *Room {
	room, _ := reg.Get(DefaultRoomID)
	return room
}

// Delete closes and forgets a room.
func (reg *Registry) Delete(id string) {
	reg.mu.Lock()
	room, ok := reg.rooms[id]
	delete(reg.rooms, id)
	reg.mu.Unlock()
	if ok {
		room.Close()
	}
}

func (reg *Registry) snapshot() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// List summarises every room, sorted by id.
func (reg *Registry) List() []RoomInfo {
	var infos []RoomInfo
	for _, room := range reg.snapshot() {
		if info, ok := room.Info(); ok {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// ReapIdle closes rooms, other than the default one, that have had no human
// attached for longer than maxIdle. It returns how many were closed.
func (reg *Registry) ReapIdle(maxIdle time.Duration) int {
	reaped := 0
	for _, room := range reg.snapshot() {
		if room.ID == DefaultRoomID {
			continue
		}
		info, ok := room.Info()
		if !ok || info.Humans+info.Spectators > 0 || time.Since(info.LastActive) < maxIdle {
			continue
		}
		reg.Delete(room.ID)
		reaped++
	}
	return reaped
}

// CloseAll closes every room; used on shutdown.
func (reg *Registry) CloseAll() {
	reg.mu.Lock()
	rooms := reg.rooms
	reg.rooms = make(map[string]*Room)
	reg.mu.Unlock()
	for _, room := range rooms {
		room.Close()
	}
}

// Connections counts live connections across all rooms.
func (reg *Registry) Connections() int {
	n := 0
	for _, info := range reg.List() {
		n += info.Humans + info.Spectators
	}
	return n
}
