package rooms

import (
	"sync"

	"github.com/aukilabs/roomlayout/protocol"
)

// Store contains the rooms of the server.
type Store struct {
	initOnce sync.Once
	mutex    sync.RWMutex
	rooms    map[string]*Room
}

func (s *Store) init() {
	s.rooms = make(map[string]*Room)
}

func (s *Store) Add(room *Room) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rooms[room.ID] = room
	instrumentAddRoom()
}

func (s *Store) Remove(room *Room) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.rooms[room.ID]; !ok {
		return
	}

	delete(s.rooms, room.ID)
	instrumentRemoveRoom(room.ObjectCount())
}

func (s *Store) Get(id string) (*Room, bool) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	room, ok := s.rooms[id]
	return room, ok
}

func (s *Store) Len() int {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.rooms)
}

// Join adds a new participant to a stored room. It returns false when the room
// is no longer in the store, for example because its last participant left.
func (s *Store) Join(room *Room, respond protocol.ResponseSender) (*Participant, bool) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.rooms[room.ID] != room {
		return nil, false
	}

	p := &Participant{
		ID:        room.NewParticipantID(),
		Responder: respond,
	}
	room.AddParticipant(p)
	return p, true
}

// Leave removes a participant from a room and drops the room from the store
// once it is empty. It reports whether the room was dropped.
func (s *Store) Leave(room *Room, p *Participant) bool {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	room.RemoveParticipant(p)
	if room.ParticipantCount() != 0 || s.rooms[room.ID] != room {
		return false
	}

	delete(s.rooms, room.ID)
	instrumentRemoveRoom(room.ObjectCount())
	return true
}
