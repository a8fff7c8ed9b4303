package room

import (
	"sort"
	"time"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/game"
	"github.com/google/uuid"
)

// IsValidParticipantID reports whether the given ID is a well-formed
// participant identifier.
func IsValidParticipantID(participantID string) bool {
	_, err := uuid.Parse(participantID)
	return err == nil
}

// Settings holds the per-room configuration the first active player may
// change mid-session.
type Settings struct {
	MaxPlayers              int  `json:"maxPlayers"`
	RotatePlayersAfterRound bool `json:"rotatePlayersAfterRound"`
}

// SettingsPatch is a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	MaxPlayers              *int  `json:"maxPlayers,omitempty" mapstructure:"maxPlayers"`
	RotatePlayersAfterRound *bool `json:"rotatePlayersAfterRound,omitempty" mapstructure:"rotatePlayersAfterRound"`
}

// PlayerEntry is the per-participant state within one room.
type PlayerEntry struct {
	Ready    bool
	Choice   *game.Choice
	JoinedAt time.Time
	// Slot is the 1-based slot number, or 0 while queued.
	Slot int
}

// RoundResult records one resolved round.
type RoundResult struct {
	Round   int                    `json:"round"`
	Winner  string                 `json:"winner"` // winning participant ID, or "draw"
	Choices map[string]game.Choice `json:"choices"`
}

// RoundState tracks the current round and past results.
type RoundState struct {
	InProgress bool
	Round      int
	Choices    map[string]game.Choice
	Results    []RoundResult
}

// Reservation is a time-bounded hold on a vacated slot, protecting a
// briefly-disconnected participant's seat from the queue.
type Reservation struct {
	ParticipantID string
	Until         time.Time
	timer         *time.Timer
}

// Room is the full state of one session. All fields are owned by the
// room's serialized operation chain; nothing here is safe to touch from
// outside it.
type Room struct {
	ID       string
	Players  map[string]*PlayerEntry
	Active   []string // participant IDs currently holding slots
	Slots    []string // 1-based positions; "" marks an empty slot
	Queue    []string // FIFO waiting queue
	Reserved map[string]*Reservation
	Round    RoundState
	Votes    map[string]bool
	Settings Settings

	CreatedAt    time.Time
	LastActivity time.Time

	voteTimer *time.Timer
}

func newRoom(id string, maxPlayers int) *Room {
	now := time.Now()
	return &Room{
		ID:       id,
		Players:  make(map[string]*PlayerEntry),
		Slots:    make([]string, maxPlayers),
		Reserved: make(map[string]*Reservation),
		Round: RoundState{
			Choices: make(map[string]game.Choice),
		},
		Votes: make(map[string]bool),
		Settings: Settings{
			MaxPlayers: maxPlayers,
		},
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (r *Room) touch() {
	r.LastActivity = time.Now()
}

func (r *Room) isActive(participantID string) bool {
	for _, id := range r.Active {
		if id == participantID {
			return true
		}
	}
	return false
}

func (r *Room) queuePosition(participantID string) int {
	for i, id := range r.Queue {
		if id == participantID {
			return i + 1
		}
	}
	return 0
}

func (r *Room) position(participantID string) string {
	if r.isActive(participantID) {
		return "active"
	}
	if r.queuePosition(participantID) > 0 {
		return "queue"
	}
	return "unknown"
}

// assignSlot places the participant into the lowest free slot and returns
// its 1-based number. Callers must check capacity first.
func (r *Room) assignSlot(participantID string) int {
	for i, id := range r.Slots {
		if id == "" {
			r.Slots[i] = participantID
			return i + 1
		}
	}
	return 0
}

func (r *Room) clearSlot(participantID string) {
	for i, id := range r.Slots {
		if id == participantID {
			r.Slots[i] = ""
		}
	}
}

// compactSlots shifts occupants down so the slot array has no gaps,
// keeping "slot 1" a stable designation for tie-breaks and settings
// authority. Returns the IDs whose slot number changed.
func (r *Room) compactSlots() []string {
	var moved []string
	next := 0
	for i, id := range r.Slots {
		if id == "" {
			continue
		}
		if i != next {
			r.Slots[next] = id
			r.Slots[i] = ""
			if entry := r.Players[id]; entry != nil {
				entry.Slot = next + 1
			}
			moved = append(moved, id)
		}
		next++
	}
	return moved
}

func (r *Room) allActiveReady() bool {
	if len(r.Active) == 0 {
		return false
	}
	for _, id := range r.Active {
		entry := r.Players[id]
		if entry == nil || !entry.Ready {
			return false
		}
	}
	return true
}

// purgeExpiredReservations drops reservations whose deadline has passed,
// so stale entries never block a legitimate join.
func (r *Room) purgeExpiredReservations(now time.Time) {
	for id, res := range r.Reserved {
		if now.After(res.Until) {
			res.timer.Stop()
			delete(r.Reserved, id)
		}
	}
}

func (r *Room) cancelTimers() {
	for _, res := range r.Reserved {
		res.timer.Stop()
	}
	r.Reserved = make(map[string]*Reservation)
	if r.voteTimer != nil {
		r.voteTimer.Stop()
		r.voteTimer = nil
	}
}

func (r *Room) summary() RoomSummary {
	return RoomSummary{
		RoomID:         r.ID,
		ActivePlayers:  len(r.Active),
		MaxPlayers:     r.Settings.MaxPlayers,
		QueueLength:    len(r.Queue),
		GameInProgress: r.Round.InProgress,
		Round:          r.Round.Round,
		Reserved:       len(r.Reserved) > 0,
	}
}

func (r *Room) playerStatuses() []PlayerStatus {
	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.Players[ids[i]], r.Players[ids[j]]
		if a.JoinedAt.Equal(b.JoinedAt) {
			return ids[i] < ids[j]
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})

	statuses := make([]PlayerStatus, 0, len(ids))
	for _, id := range ids {
		entry := r.Players[id]
		statuses = append(statuses, PlayerStatus{
			ID:           id,
			Ready:        entry.Ready,
			IsActive:     r.isActive(id),
			InQueue:      r.queuePosition(id) > 0,
			PlayerNumber: entry.Slot,
		})
	}
	return statuses
}

func removeID(ids []string, participantID string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != participantID {
			out = append(out, id)
		}
	}
	return out
}

func containsID(ids []string, participantID string) bool {
	for _, id := range ids {
		if id == participantID {
			return true
		}
	}
	return false
}
