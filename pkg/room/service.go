package room

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/comms"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/game"
	"go.uber.org/zap"
)

// Notifier is the transport collaborator boundary. ToRoom must reach every
// current member of the room's channel, ToParticipant exactly one
// identified connection.
type Notifier interface {
	ToRoom(roomID string, message comms.Message)
	ToParticipant(participantID string, message comms.Message)
}

// Result is one participant's canonical outcome of a finished round,
// handed to the persistence collaborator.
type Result struct {
	RoomID        string    `json:"roomID"`
	ParticipantID string    `json:"participantID"`
	Outcome       string    `json:"outcome"` // "win", "lose" or "draw"
	Round         int       `json:"round"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ResultSink receives finished round outcomes for durable storage. It is
// never on the critical path of round resolution.
type ResultSink interface {
	SaveRoundResults(ctx context.Context, results []Result) error
}

// Config carries the timings and capacity the service runs with.
type Config struct {
	MaxPlayers        int
	ReservationGrace  time.Duration
	PlayAgainTimeout  time.Duration
	IdleSweepInterval time.Duration
	IdleRoomMaxAge    time.Duration
}

func (c Config) withDefaults() Config {
	// Round resolution is defined for exactly two slots.
	if c.MaxPlayers <= 0 || c.MaxPlayers > 2 {
		c.MaxPlayers = 2
	}
	if c.ReservationGrace <= 0 {
		c.ReservationGrace = 10 * time.Second
	}
	if c.PlayAgainTimeout <= 0 {
		c.PlayAgainTimeout = 15 * time.Second
	}
	if c.IdleSweepInterval <= 0 {
		c.IdleSweepInterval = time.Minute
	}
	if c.IdleRoomMaxAge <= 0 {
		c.IdleRoomMaxAge = 30 * time.Minute
	}
	return c
}

// Service owns the room registry and runs every room operation on that
// room's serialized chain.
type Service struct {
	log      *zap.Logger
	cfg      Config
	registry *Registry
	dispatch *Dispatcher
	notifier Notifier
	results  ResultSink

	stopSweep chan struct{}
	sweepWG   sync.WaitGroup
}

func NewService(log *zap.Logger, cfg Config, notifier Notifier, results ResultSink) *Service {
	return &Service{
		log:       log,
		cfg:       cfg.withDefaults(),
		registry:  NewRegistry(),
		dispatch:  NewDispatcher(log),
		notifier:  notifier,
		results:   results,
		stopSweep: make(chan struct{}),
	}
}

// Start launches the idle-room sweeper.
func (s *Service) Start() {
	s.sweepWG.Add(1)
	go func() {
		defer s.sweepWG.Done()
		ticker := time.NewTicker(s.cfg.IdleSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.SweepIdle(s.cfg.IdleRoomMaxAge)
			case <-s.stopSweep:
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	close(s.stopSweep)
	s.sweepWG.Wait()
}

// CreateRoom creates the room if missing and joins the participant to it.
func (s *Service) CreateRoom(roomID, participantID string) {
	rid, ok := s.checkIDs(roomID, participantID)
	if !ok {
		return
	}
	s.dispatch.Enqueue(rid, func() {
		room, created := s.registry.GetOrCreate(rid, s.cfg.MaxPlayers)
		if created {
			s.log.Info("room created", zap.String("roomID", rid))
			s.notifier.ToParticipant(participantID, comms.ToMessage(RoomCreatedResponse{RoomID: rid}))
		}
		s.join(room, participantID)
	})
}

// Join adds the participant to the room, creating the room on first join
// to an unknown session identifier.
func (s *Service) Join(roomID, participantID string) {
	rid, ok := s.checkIDs(roomID, participantID)
	if !ok {
		return
	}
	s.dispatch.Enqueue(rid, func() {
		room, created := s.registry.GetOrCreate(rid, s.cfg.MaxPlayers)
		if created {
			s.log.Info("room created", zap.String("roomID", rid))
		}
		s.join(room, participantID)
	})
}

// Leave removes the participant after an explicit leave request.
func (s *Service) Leave(roomID, participantID string) {
	rid, ok := s.checkIDs(roomID, participantID)
	if !ok {
		return
	}
	s.dispatch.Enqueue(rid, func() {
		room, ok := s.registry.Get(rid)
		if !ok {
			return
		}
		s.leave(room, participantID, "player left the game")
	})
}

// Disconnect removes the participant from every room they are part of.
// The transport invokes this exactly once per connection loss.
func (s *Service) Disconnect(participantID string) {
	if !IsValidParticipantID(participantID) {
		return
	}
	for _, rid := range s.registry.IDs() {
		rid := rid
		s.dispatch.Enqueue(rid, func() {
			room, ok := s.registry.Get(rid)
			if !ok {
				return
			}
			if _, ok := room.Players[participantID]; !ok {
				return
			}
			s.leave(room, participantID, "player disconnected")
		})
	}
}

// ListRooms sends the caller a snapshot of all rooms holding at least one
// participant. Each room's summary is read on its own chain.
func (s *Service) ListRooms(participantID string) {
	ids := s.registry.IDs()
	go func() {
		var mu sync.Mutex
		var wg sync.WaitGroup
		summaries := make([]RoomSummary, 0, len(ids))
		for _, rid := range ids {
			rid := rid
			wg.Add(1)
			s.dispatch.Enqueue(rid, func() {
				defer wg.Done()
				if room, ok := s.registry.Get(rid); ok && len(room.Players) > 0 {
					mu.Lock()
					summaries = append(summaries, room.summary())
					mu.Unlock()
				}
			})
		}
		wg.Wait()
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].RoomID < summaries[j].RoomID })
		s.notifier.ToParticipant(participantID, comms.ToMessage(RoomListResponse{Rooms: summaries}))
	}()
}

// SweepIdle deletes rooms that are empty of participants and have seen no
// activity for longer than maxAge. Idle rooms with participants are never
// swept.
func (s *Service) SweepIdle(maxAge time.Duration) {
	for _, rid := range s.registry.IDs() {
		rid := rid
		s.dispatch.Enqueue(rid, func() {
			room, ok := s.registry.Get(rid)
			if !ok {
				return
			}
			if len(room.Players) == 0 && time.Since(room.LastActivity) > maxAge {
				room.cancelTimers()
				s.registry.Delete(rid)
				s.log.Info("idle room swept", zap.String("roomID", rid))
			}
		})
	}
}

// join runs on the room's chain.
func (s *Service) join(room *Room, participantID string) {
	room.touch()
	room.purgeExpiredReservations(time.Now())

	// Idempotent reconnect: clear any reservation held for this player
	// and report their current position.
	if _, ok := room.Players[participantID]; ok {
		if res, ok := room.Reserved[participantID]; ok {
			res.timer.Stop()
			delete(room.Reserved, participantID)
		}
		s.notifier.ToParticipant(participantID, comms.ToMessage(PlayerReconnectedResponse{
			RoomID:   room.ID,
			Position: room.position(participantID),
		}))
		s.broadcastStatus(room)
		return
	}

	if len(room.Active) < room.Settings.MaxPlayers && !room.Round.InProgress {
		// A reservation under the joiner's own ID is the hold made for
		// them; they reclaim the slot. Only other players' holds block.
		if res, ok := room.Reserved[participantID]; ok {
			res.timer.Stop()
			delete(room.Reserved, participantID)
		}
		if len(room.Reserved) > 0 {
			s.reject(participantID, &Rejection{
				Kind:   KindSlotReserved,
				Reason: "slot is being held for a reconnecting player, retry shortly",
				RoomID: room.ID,
			})
			return
		}

		slot := room.assignSlot(participantID)
		room.Players[participantID] = &PlayerEntry{JoinedAt: time.Now(), Slot: slot}
		room.Active = append(room.Active, participantID)

		s.log.Info("player joined as active",
			zap.String("roomID", room.ID),
			zap.String("participantID", participantID),
			zap.Int("slot", slot))
		s.notifier.ToParticipant(participantID, comms.ToMessage(PlayerJoinedResponse{
			RoomID:       room.ID,
			Position:     "active",
			PlayerNumber: slot,
		}))

		if len(room.Active) == room.Settings.MaxPlayers {
			ready := comms.ToMessage(GameReadyBroadcast{RoomID: room.ID, Players: append([]string(nil), room.Active...)})
			for _, id := range room.Active {
				s.notifier.ToParticipant(id, ready)
			}
		}
	} else {
		room.Players[participantID] = &PlayerEntry{JoinedAt: time.Now()}
		room.Queue = append(room.Queue, participantID)

		s.log.Info("player joined queue",
			zap.String("roomID", room.ID),
			zap.String("participantID", participantID),
			zap.Int("queuePosition", len(room.Queue)))
		s.notifier.ToParticipant(participantID, comms.ToMessage(PlayerJoinedResponse{
			RoomID:        room.ID,
			Position:      "queue",
			QueuePosition: len(room.Queue),
		}))
	}

	s.broadcastStatus(room)

	// Rooms with round history re-ready the incumbents when a new
	// opponent takes a slot, so the returning pairing doesn't force an
	// extra ready round-trip. A merely queued joiner changes nothing for
	// the incumbents.
	if room.isActive(participantID) && len(room.Active) >= 2 && !room.Round.InProgress && room.Round.Round > 0 {
		for _, id := range room.Active {
			if id != participantID {
				room.Players[id].Ready = true
			}
		}
		s.broadcastStatus(room)
	}

	if len(room.Active) >= 2 && !room.Round.InProgress && room.allActiveReady() {
		s.startRound(room)
	}
}

// leave runs on the room's chain and handles explicit leaves and
// disconnects alike.
func (s *Service) leave(room *Room, participantID, reason string) {
	entry, ok := room.Players[participantID]
	if !ok {
		return
	}
	wasInRound := room.Round.InProgress

	if entry.Slot > 0 {
		room.Slots[entry.Slot-1] = ""
	}
	delete(room.Players, participantID)
	room.Active = removeID(room.Active, participantID)
	room.Queue = removeID(room.Queue, participantID)
	delete(room.Round.Choices, participantID)
	delete(room.Votes, participantID)
	if res, ok := room.Reserved[participantID]; ok {
		res.timer.Stop()
		delete(room.Reserved, participantID)
	}

	s.log.Info("player left room",
		zap.String("roomID", room.ID),
		zap.String("participantID", participantID),
		zap.String("reason", reason))

	if wasInRound {
		room.Round.InProgress = false
		room.Round.Choices = make(map[string]game.Choice)
		s.notifier.ToRoom(room.ID, comms.ToMessage(GameInterruptedBroadcast{
			RoomID:        room.ID,
			Reason:        reason,
			LeavingPlayer: participantID,
		}))
	}

	s.notifySlotMoves(room, room.compactSlots())

	shouldReserve := len(room.Queue) > 0 || wasInRound
	if len(room.Active) < room.Settings.MaxPlayers && shouldReserve {
		s.reserveSlot(room, participantID)
	} else if len(room.Active) < room.Settings.MaxPlayers {
		s.fillActiveSlots(room)
	}

	s.broadcastStatus(room)
	s.notifier.ToRoom(room.ID, comms.ToMessage(PlayerLeftBroadcast{
		RoomID:        room.ID,
		ParticipantID: participantID,
	}))

	if len(room.Players) == 0 {
		room.cancelTimers()
		s.registry.Delete(room.ID)
		s.log.Info("empty room deleted", zap.String("roomID", room.ID))
	} else {
		room.touch()
	}
}

// reserveSlot holds the departed participant's freed capacity for the
// grace window; expiry re-enters through the room's chain.
func (s *Service) reserveSlot(room *Room, participantID string) {
	roomID := room.ID
	until := time.Now().Add(s.cfg.ReservationGrace)
	res := &Reservation{ParticipantID: participantID, Until: until}
	res.timer = time.AfterFunc(s.cfg.ReservationGrace, func() {
		s.dispatch.Enqueue(roomID, func() {
			s.reservationExpired(roomID, participantID)
		})
	})
	room.Reserved[participantID] = res
	s.log.Info("slot reserved",
		zap.String("roomID", roomID),
		zap.String("participantID", participantID),
		zap.Time("until", until))
}

func (s *Service) reservationExpired(roomID, participantID string) {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return
	}
	if _, ok := room.Reserved[participantID]; !ok {
		return
	}
	delete(room.Reserved, participantID)
	s.log.Info("slot reservation expired",
		zap.String("roomID", roomID),
		zap.String("participantID", participantID))
	s.fillActiveSlots(room)
	s.broadcastStatus(room)
}

func (s *Service) notifySlotMoves(room *Room, moved []string) {
	for _, id := range moved {
		entry := room.Players[id]
		if entry == nil {
			continue
		}
		s.notifier.ToParticipant(id, comms.ToMessage(PlayerJoinedResponse{
			RoomID:       room.ID,
			Position:     "active",
			PlayerNumber: entry.Slot,
		}))
	}
	if len(moved) > 0 {
		s.broadcastStatus(room)
	}
}

func (s *Service) broadcastStatus(room *Room) {
	s.notifier.ToRoom(room.ID, comms.ToMessage(RoomStatusBroadcast{
		RoomID:         room.ID,
		ActivePlayers:  len(room.Active),
		MaxPlayers:     room.Settings.MaxPlayers,
		QueueLength:    len(room.Queue),
		GameInProgress: room.Round.InProgress,
		Reserved:       len(room.Reserved) > 0,
		Players:        room.playerStatuses(),
	}))
}

func (s *Service) reject(participantID string, rejection *Rejection) {
	s.log.Debug("operation rejected",
		zap.String("participantID", participantID),
		zap.String("kind", string(rejection.Kind)),
		zap.String("roomID", rejection.RoomID))
	s.notifier.ToParticipant(participantID, comms.ToMessage(RejectionResponse{
		Kind:    rejection.Kind,
		Message: rejection.Reason,
		RoomID:  rejection.RoomID,
	}))
}

// checkIDs normalizes the room ID and validates both identifiers,
// rejecting malformed operations before they reach a room chain.
func (s *Service) checkIDs(roomID, participantID string) (string, bool) {
	rid := strings.TrimSpace(roomID)
	if rid == "" {
		s.reject(participantID, &Rejection{Kind: KindValidation, Reason: "room ID must not be empty"})
		return "", false
	}
	if !IsValidParticipantID(participantID) {
		s.log.Warn("invalid participant ID", zap.String("participantID", participantID))
		return "", false
	}
	return rid, true
}
