package server

import (
	"sync"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/comms"
)

// ConnectionStore tracks client connections and room-channel membership.
type ConnectionStore struct {
	mu      sync.RWMutex
	conns   map[string]*comms.ConnectionWrapper // participant ID -> connection
	members map[string]map[string]bool          // room ID -> {participant ID}
	rooms   map[string]map[string]bool          // participant ID -> {room ID}
}

func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		conns:   make(map[string]*comms.ConnectionWrapper),
		members: make(map[string]map[string]bool),
		rooms:   make(map[string]map[string]bool),
	}
}

func (s *ConnectionStore) Register(conn *comms.ConnectionWrapper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.ParticipantID] = conn
}

// Unregister removes the connection and all its channel memberships. After
// it returns, no further sends can reach the connection.
func (s *ConnectionStore) Unregister(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, participantID)
	for roomID := range s.rooms[participantID] {
		delete(s.members[roomID], participantID)
		if len(s.members[roomID]) == 0 {
			delete(s.members, roomID)
		}
	}
	delete(s.rooms, participantID)
}

func (s *ConnectionStore) JoinChannel(roomID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[roomID] == nil {
		s.members[roomID] = make(map[string]bool)
	}
	s.members[roomID][participantID] = true
	if s.rooms[participantID] == nil {
		s.rooms[participantID] = make(map[string]bool)
	}
	s.rooms[participantID][roomID] = true
}

func (s *ConnectionStore) LeaveChannel(roomID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members[roomID], participantID)
	if len(s.members[roomID]) == 0 {
		delete(s.members, roomID)
	}
	delete(s.rooms[participantID], roomID)
}

// SendToParticipant queues a message for one connection, reporting whether
// the participant is connected.
func (s *ConnectionStore) SendToParticipant(participantID string, message comms.Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.conns[participantID]
	if !ok {
		return false
	}
	conn.Send(message)
	return true
}

// SendToRoom queues a message for every member of the room's channel.
func (s *ConnectionStore) SendToRoom(roomID string, message comms.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for participantID := range s.members[roomID] {
		if conn, ok := s.conns[participantID]; ok {
			conn.Send(message)
		}
	}
}
