package rooms

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	var s Store
	room := newTestRoom(t)

	s.Add(room)
	require.Equal(t, 1, s.Len())

	r, ok := s.Get(room.ID)
	require.True(t, ok)
	require.Same(t, room, r)

	s.Remove(room)
	s.Remove(room)
	require.Zero(t, s.Len())
}

func TestStoreJoinAndLeave(t *testing.T) {
	var s Store
	room := newTestRoom(t)
	s.Add(room)

	a, ok := s.Join(room, &responseRecorder{})
	require.True(t, ok)
	b, ok := s.Join(room, &responseRecorder{})
	require.True(t, ok)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2, room.ParticipantCount())

	require.False(t, s.Leave(room, a))
	require.Equal(t, 1, s.Len())

	require.True(t, s.Leave(room, b))
	require.Zero(t, s.Len())

	// A room dropped from the store can no longer be joined.
	_, ok = s.Join(room, &responseRecorder{})
	require.False(t, ok)
	require.Zero(t, room.ParticipantCount())
}

func TestStoreLeaveUnstoredRoom(t *testing.T) {
	var s Store
	room := newTestRoom(t)

	p := &Participant{ID: room.NewParticipantID(), Responder: &responseRecorder{}}
	room.AddParticipant(p)

	require.False(t, s.Leave(room, p))
	require.Zero(t, room.ParticipantCount())
	require.Zero(t, s.Len())
}

func TestStoreConcurrentJoinAndLeave(t *testing.T) {
	var s Store
	room := newTestRoom(t)
	s.Add(room)

	host, ok := s.Join(room, &responseRecorder{})
	require.True(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p, ok := s.Join(room, &responseRecorder{})
			if !ok {
				return
			}
			s.Leave(room, p)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Leave(room, host)
	}()
	wg.Wait()

	// Whoever left last dropped the room, and nobody is left in a room that
	// is no longer stored.
	require.Zero(t, s.Len())
	require.Zero(t, room.ParticipantCount())
}
