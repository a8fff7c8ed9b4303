package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/comms"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/game"
)

// recorder captures everything the service would have sent over the
// transport, for assertions.
type recordedEvent struct {
	participantID string // empty for room broadcasts
	roomID        string
	msg           comms.Message
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) ToRoom(roomID string, message comms.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{roomID: roomID, msg: message})
}

func (r *recorder) ToParticipant(participantID string, message comms.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{participantID: participantID, msg: message})
}

// ofType returns every recorded event carrying the given message type.
func (r *recorder) ofType(messageType string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.msg.Type == messageType {
			out = append(out, e)
		}
	}
	return out
}

// sentTo returns the messages of the given type addressed directly to
// one participant.
func (r *recorder) sentTo(participantID, messageType string) []comms.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []comms.Message
	for _, e := range r.events {
		if e.participantID == participantID && e.msg.Type == messageType {
			out = append(out, e.msg)
		}
	}
	return out
}

type captureSink struct {
	mu      sync.Mutex
	results []Result
}

func (c *captureSink) SaveRoundResults(_ context.Context, results []Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, results...)
	return nil
}

func (c *captureSink) saved() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func newTestService(results ResultSink) (*Service, *recorder) {
	rec := &recorder{}
	s := NewService(zap.NewNop(), Config{
		MaxPlayers:        2,
		ReservationGrace:  150 * time.Millisecond,
		PlayAgainTimeout:  100 * time.Millisecond,
		IdleSweepInterval: time.Hour,
		IdleRoomMaxAge:    time.Hour,
	}, rec, results)
	return s, rec
}

// onChain runs fn on the room's chain and waits for it, giving tests a
// safe point to inspect room state from.
func onChain(s *Service, roomID string, fn func()) {
	done := make(chan struct{})
	s.dispatch.Enqueue(roomID, func() { fn(); close(done) })
	<-done
}

// settle blocks until every operation enqueued so far on the room's
// chain has run.
func settle(s *Service, roomID string) {
	onChain(s, roomID, func() {})
}

func mustGetRoom(t *testing.T, s *Service, roomID string) *Room {
	t.Helper()
	room, ok := s.registry.Get(roomID)
	require.True(t, ok, "room %s does not exist", roomID)
	return room
}

func TestJoinAssignsSlotsThenQueues(t *testing.T) {
	s, rec := newTestService(nil)
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.Join("42", c)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	assert.Equal(t, []string{a, b}, room.Active)
	assert.Equal(t, []string{a, b}, room.Slots)
	assert.Equal(t, []string{c}, room.Queue)

	joinedA := rec.sentTo(a, "PlayerJoinedResponse")
	require.Len(t, joinedA, 1)
	assert.Equal(t, PlayerJoinedResponse{RoomID: "42", Position: "active", PlayerNumber: 1}, joinedA[0].Contents)

	joinedB := rec.sentTo(b, "PlayerJoinedResponse")
	require.Len(t, joinedB, 1)
	assert.Equal(t, PlayerJoinedResponse{RoomID: "42", Position: "active", PlayerNumber: 2}, joinedB[0].Contents)

	joinedC := rec.sentTo(c, "PlayerJoinedResponse")
	require.Len(t, joinedC, 1)
	assert.Equal(t, PlayerJoinedResponse{RoomID: "42", Position: "queue", QueuePosition: 1}, joinedC[0].Contents)

	// Both slot holders hear that the game can begin, the queued player
	// does not.
	assert.Len(t, rec.sentTo(a, "GameReadyBroadcast"), 1)
	assert.Len(t, rec.sentTo(b, "GameReadyBroadcast"), 1)
	assert.Empty(t, rec.sentTo(c, "GameReadyBroadcast"))
}

func TestCreateRoomIsIdempotent(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.CreateRoom("42", a)
	s.CreateRoom("42", b)
	settle(s, "42")

	assert.Equal(t, 1, s.registry.Len())
	assert.Len(t, rec.ofType("RoomCreatedResponse"), 1)

	room := mustGetRoom(t, s, "42")
	assert.Equal(t, []string{a, b}, room.Active)
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	s, _ := newTestService(nil)

	ids := make([]string, 10)
	var wg sync.WaitGroup
	for i := range ids {
		ids[i] = uuid.NewString()
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Join("42", id)
		}(ids[i])
	}
	wg.Wait()
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	assert.Len(t, room.Active, 2)
	assert.Len(t, room.Queue, 8)
	assert.Len(t, room.Players, 10)

	// Every slot holder is active and vice versa.
	var occupied []string
	for _, id := range room.Slots {
		if id != "" {
			occupied = append(occupied, id)
		}
	}
	assert.ElementsMatch(t, room.Active, occupied)
}

func TestFullRoundResolution(t *testing.T) {
	sink := &captureSink{}
	s, rec := newTestService(sink)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	assert.True(t, room.Round.InProgress)
	assert.Equal(t, 1, room.Round.Round)
	require.Len(t, rec.ofType("GameStartedBroadcast"), 1)

	s.SubmitChoice("42", a, game.Rock)
	settle(s, "42")
	waiting := rec.ofType("WaitingForChoicesBroadcast")
	require.Len(t, waiting, 1)
	assert.Equal(t, WaitingForChoicesBroadcast{RoomID: "42", MadeChoices: 1, TotalPlayers: 2}, waiting[0].msg.Contents)

	s.SubmitChoice("42", b, game.Scissors)
	settle(s, "42")

	assert.False(t, room.Round.InProgress)
	require.Len(t, room.Round.Results, 1)
	assert.Equal(t, a, room.Round.Results[0].Winner)

	finished := rec.ofType("RoundFinishedBroadcast")
	require.Len(t, finished, 1)
	result := finished[0].msg.Contents.(RoundFinishedBroadcast).Result
	assert.Equal(t, 1, result.Round)
	assert.Equal(t, a, result.Winner)
	assert.Equal(t, map[string]game.Choice{a: game.Rock, b: game.Scissors}, result.Choices)

	// Persistence happens off the chain; give it a moment.
	assert.Eventually(t, func() bool { return len(sink.saved()) == 2 }, time.Second, 5*time.Millisecond)
	outcomes := map[string]string{}
	for _, r := range sink.saved() {
		outcomes[r.ParticipantID] = r.Outcome
	}
	assert.Equal(t, map[string]string{a: "win", b: "lose"}, outcomes)
}

func TestDrawLeavesNoWinner(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.SubmitChoice("42", a, game.Paper)
	s.SubmitChoice("42", b, game.Paper)
	settle(s, "42")

	finished := rec.ofType("RoundFinishedBroadcast")
	require.Len(t, finished, 1)
	assert.Equal(t, "draw", finished[0].msg.Contents.(RoundFinishedBroadcast).Result.Winner)
}

func TestSubmitChoiceRejections(t *testing.T) {
	s, rec := newTestService(nil)
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.Join("42", c) // queued
	settle(s, "42")

	// No round in progress yet.
	s.SubmitChoice("42", a, game.Rock)
	settle(s, "42")
	rejections := rec.sentTo(a, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindGameNotActive, rejections[0].Contents.(RejectionResponse).Kind)

	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	settle(s, "42")

	// Queued players cannot play.
	s.SubmitChoice("42", c, game.Rock)
	settle(s, "42")
	rejections = rec.sentTo(c, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindNotActivePlayer, rejections[0].Contents.(RejectionResponse).Kind)

	// Out-of-range choice values are refused.
	s.SubmitChoice("42", a, game.Choice(7))
	settle(s, "42")
	rejections = rec.sentTo(a, "RejectionResponse")
	require.Len(t, rejections, 2)
	assert.Equal(t, KindValidation, rejections[1].Contents.(RejectionResponse).Kind)

	room := mustGetRoom(t, s, "42")
	assert.Empty(t, room.Round.Choices)
}

func TestToggleReadyRequiresActivePlayer(t *testing.T) {
	s, rec := newTestService(nil)
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.Join("42", c)
	s.ToggleReady("42", c)
	settle(s, "42")

	rejections := rec.sentTo(c, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindNotActivePlayer, rejections[0].Contents.(RejectionResponse).Kind)

	s.ToggleReady("missing", a)
	settle(s, "missing")
	rejections = rec.sentTo(a, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindRoomNotFound, rejections[0].Contents.(RejectionResponse).Kind)
}

func TestLeaveMidRoundReservesAndCompacts(t *testing.T) {
	s, rec := newTestService(nil)
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	s.Join("7", a)
	s.Join("7", b)
	s.ToggleReady("7", a)
	s.ToggleReady("7", b)
	s.Join("7", c) // queues behind the running round
	settle(s, "7")

	room := mustGetRoom(t, s, "7")
	require.True(t, room.Round.InProgress)

	s.Leave("7", a)
	settle(s, "7")

	interrupted := rec.ofType("GameInterruptedBroadcast")
	require.Len(t, interrupted, 1)
	assert.Equal(t, a, interrupted[0].msg.Contents.(GameInterruptedBroadcast).LeavingPlayer)

	assert.False(t, room.Round.InProgress)
	assert.Equal(t, []string{b}, room.Active)
	// b was in slot 2 and gets compacted down to slot 1.
	assert.Equal(t, []string{b, ""}, room.Slots)
	assert.Equal(t, 1, room.Players[b].Slot)

	// The freed slot is held for the departed player, blocking new joins.
	require.Contains(t, room.Reserved, a)
	d := uuid.NewString()
	s.Join("7", d)
	settle(s, "7")
	rejections := rec.sentTo(d, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindSlotReserved, rejections[0].Contents.(RejectionResponse).Kind)
	_, known := room.Players[d]
	assert.False(t, known)

	// A queued player may ready up early; promotion must preserve it.
	onChain(s, "7", func() { room.Players[c].Ready = true })

	// Let the reservation lapse; the queued player takes the slot.
	require.Eventually(t, func() bool {
		var active int
		onChain(s, "7", func() { active = len(room.Active) })
		return active == 2
	}, time.Second, 10*time.Millisecond)

	assert.NotContains(t, room.Reserved, a)
	assert.Equal(t, []string{b, c}, room.Active)
	assert.True(t, room.Players[c].Ready)
	promotions := rec.sentTo(c, "PromotedToActiveResponse")
	require.Len(t, promotions, 1)
	assert.Equal(t, 2, promotions[0].Contents.(PromotedToActiveResponse).PlayerNumber)

	// b never re-readied after the interrupted round, so no new round.
	assert.False(t, room.Round.InProgress)
	assert.Len(t, rec.sentTo(c, "GameReadyBroadcast"), 1)
}

func TestRejoinReclaimsOwnReservation(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("7", a)
	s.Join("7", b)
	s.ToggleReady("7", a)
	s.ToggleReady("7", b)
	s.Leave("7", a)
	settle(s, "7")

	room := mustGetRoom(t, s, "7")
	require.Contains(t, room.Reserved, a)

	s.Join("7", a)
	settle(s, "7")

	assert.Empty(t, room.Reserved)
	assert.Equal(t, []string{b, a}, room.Active)
	rejoined := rec.sentTo(a, "PlayerJoinedResponse")
	require.Len(t, rejoined, 2)
	assert.Equal(t, 2, rejoined[1].Contents.(PlayerJoinedResponse).PlayerNumber)
	assert.Empty(t, rec.sentTo(a, "RejectionResponse"))
}

func TestJoinWhileConnectedReportsPosition(t *testing.T) {
	s, rec := newTestService(nil)
	a := uuid.NewString()

	s.Join("42", a)
	s.Join("42", a)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	assert.Equal(t, []string{a}, room.Active)
	reconnects := rec.sentTo(a, "PlayerReconnectedResponse")
	require.Len(t, reconnects, 1)
	assert.Equal(t, PlayerReconnectedResponse{RoomID: "42", Position: "active"}, reconnects[0].Contents)
}

func TestIncumbentsAutoReadyAfterRoundHistory(t *testing.T) {
	s, _ := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.SubmitChoice("42", a, game.Rock)
	s.SubmitChoice("42", b, game.Paper)
	s.Leave("42", b)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	require.Equal(t, 1, room.Round.Round)

	// With history behind them, the incumbent re-readies when a fresh
	// opponent arrives, so only the newcomer has to ready up.
	c := uuid.NewString()
	s.Join("42", c)
	settle(s, "42")

	require.Equal(t, []string{a, c}, room.Active)
	assert.True(t, room.Players[a].Ready)
	assert.False(t, room.Players[c].Ready)
	assert.False(t, room.Round.InProgress)
}

func TestPlayAgainFullVoteStartsNextRound(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.SubmitChoice("42", a, game.Rock)
	s.SubmitChoice("42", b, game.Scissors)
	settle(s, "42")

	// Voting mid-round is refused.
	room := mustGetRoom(t, s, "42")
	require.False(t, room.Round.InProgress)

	s.RequestPlayAgain("42", a)
	settle(s, "42")
	votes := rec.ofType("PlayAgainVoteBroadcast")
	require.Len(t, votes, 1)
	assert.Equal(t, PlayAgainVoteBroadcast{RoomID: "42", Votes: []string{a}, Needed: 2}, votes[0].msg.Contents)
	assert.False(t, room.Round.InProgress)

	s.RequestPlayAgain("42", b)
	settle(s, "42")

	assert.True(t, room.Round.InProgress)
	assert.Equal(t, 2, room.Round.Round)
	assert.Empty(t, room.Votes)
	assert.Nil(t, room.voteTimer)
	assert.Len(t, rec.ofType("GameStartedBroadcast"), 2)
}

func TestPlayAgainRejectedDuringRound(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.RequestPlayAgain("42", a)
	settle(s, "42")

	rejections := rec.sentTo(a, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindValidation, rejections[0].Contents.(RejectionResponse).Kind)
}

func TestPlayAgainTimeoutEvictsNonVoters(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.SubmitChoice("42", a, game.Rock)
	s.SubmitChoice("42", b, game.Scissors)
	s.RequestPlayAgain("42", a)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	require.NotNil(t, room.voteTimer)

	// Only a voted; after the window closes b drops to the queue.
	assert.Eventually(t, func() bool {
		return len(rec.sentTo(b, "RemovedForNoPlayResponse")) == 1
	}, time.Second, 10*time.Millisecond)
	settle(s, "42")

	assert.Equal(t, []string{a}, room.Active)
	assert.Equal(t, []string{b}, room.Queue)
	assert.Equal(t, 0, room.Players[b].Slot)
	assert.Empty(t, room.Votes)

	// One active player is not enough for a new round.
	assert.False(t, room.Round.InProgress)
	assert.Equal(t, 1, room.Round.Round)
}

func TestSettingsAuthority(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	settle(s, "42")

	rotate := true
	s.UpdateSettings("42", b, SettingsPatch{RotatePlayersAfterRound: &rotate})
	settle(s, "42")
	rejections := rec.sentTo(b, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindNotAuthorized, rejections[0].Contents.(RejectionResponse).Kind)

	room := mustGetRoom(t, s, "42")
	assert.False(t, room.Settings.RotatePlayersAfterRound)

	s.UpdateSettings("42", a, SettingsPatch{RotatePlayersAfterRound: &rotate})
	settle(s, "42")
	assert.True(t, room.Settings.RotatePlayersAfterRound)
	updates := rec.ofType("SettingsUpdatedBroadcast")
	require.Len(t, updates, 1)
	assert.True(t, updates[0].msg.Contents.(SettingsUpdatedBroadcast).Settings.RotatePlayersAfterRound)

	three := 3
	s.UpdateSettings("42", a, SettingsPatch{MaxPlayers: &three})
	settle(s, "42")
	rejections = rec.sentTo(a, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindValidation, rejections[0].Contents.(RejectionResponse).Kind)
	assert.Equal(t, 2, room.Settings.MaxPlayers)
}

func TestRotationAfterRound(t *testing.T) {
	s, rec := newTestService(nil)
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.Join("42", c)
	rotate := true
	s.UpdateSettings("42", a, SettingsPatch{RotatePlayersAfterRound: &rotate})
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.SubmitChoice("42", a, game.Rock)
	s.SubmitChoice("42", b, game.Scissors)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	assert.Equal(t, []string{b, c}, room.Active)
	assert.Equal(t, []string{a}, room.Queue)

	moved := rec.sentTo(a, "MovedToQueueResponse")
	require.Len(t, moved, 1)
	assert.Equal(t, MovedToQueueResponse{RoomID: "42", QueuePosition: 1}, moved[0].Contents)
	promotions := rec.sentTo(c, "PromotedToActiveResponse")
	require.Len(t, promotions, 1)
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	s, _ := newTestService(nil)
	a := uuid.NewString()

	s.Join("42", a)
	s.Leave("42", a)
	settle(s, "42")

	assert.Equal(t, 0, s.registry.Len())
}

func TestDisconnectLeavesEveryRoom(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("r1", a)
	s.Join("r2", a)
	s.Join("r2", b)
	settle(s, "r1")
	settle(s, "r2")

	s.Disconnect(a)
	settle(s, "r1")
	settle(s, "r2")

	_, ok := s.registry.Get("r1")
	assert.False(t, ok, "emptied room should be deleted")
	r2 := mustGetRoom(t, s, "r2")
	assert.Equal(t, []string{b}, r2.Active)
	assert.NotEmpty(t, rec.ofType("PlayerLeftBroadcast"))
}

func TestListRoomsSnapshotsOccupiedRooms(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("alpha", a)
	s.Join("beta", b)
	settle(s, "alpha")
	settle(s, "beta")
	s.registry.GetOrCreate("empty", 2)

	s.ListRooms(a)
	assert.Eventually(t, func() bool {
		return len(rec.sentTo(a, "RoomListResponse")) == 1
	}, time.Second, 5*time.Millisecond)

	list := rec.sentTo(a, "RoomListResponse")[0].Contents.(RoomListResponse)
	require.Len(t, list.Rooms, 2)
	assert.Equal(t, "alpha", list.Rooms[0].RoomID)
	assert.Equal(t, "beta", list.Rooms[1].RoomID)
	assert.Equal(t, 1, list.Rooms[0].ActivePlayers)
}

func TestSweepIdleRemovesOnlyEmptyStaleRooms(t *testing.T) {
	s, _ := newTestService(nil)
	a := uuid.NewString()

	s.Join("occupied", a)
	settle(s, "occupied")

	stale, _ := s.registry.GetOrCreate("stale", 2)
	occupied := mustGetRoom(t, s, "occupied")
	onChain(s, "stale", func() { stale.LastActivity = time.Now().Add(-time.Hour) })
	onChain(s, "occupied", func() { occupied.LastActivity = time.Now().Add(-time.Hour) })

	s.SweepIdle(time.Minute)
	settle(s, "stale")
	settle(s, "occupied")

	_, ok := s.registry.Get("stale")
	assert.False(t, ok)
	_, ok = s.registry.Get("occupied")
	assert.True(t, ok, "rooms with participants are never swept")
}

func TestQueuedJoinerDoesNotRestartRound(t *testing.T) {
	s, _ := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.SubmitChoice("42", a, game.Rock)
	s.SubmitChoice("42", b, game.Scissors)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	require.Equal(t, 1, room.Round.Round)
	require.False(t, room.Round.InProgress)

	// A third player joining the queue of a full room is no signal that
	// the incumbents want another round.
	c := uuid.NewString()
	s.Join("42", c)
	settle(s, "42")

	assert.Equal(t, []string{c}, room.Queue)
	assert.False(t, room.Round.InProgress)
	assert.Equal(t, 1, room.Round.Round)
	assert.False(t, room.Players[a].Ready)
	assert.False(t, room.Players[b].Ready)
}

func TestMaxPlayersClampedToTwo(t *testing.T) {
	rec := &recorder{}
	s := NewService(zap.NewNop(), Config{MaxPlayers: 5}, rec, nil)
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.Join("42", c)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	assert.Equal(t, 2, room.Settings.MaxPlayers)
	assert.Len(t, room.Slots, 2)
	assert.Equal(t, []string{a, b}, room.Active)
	assert.Equal(t, []string{c}, room.Queue)
}

func TestReconnectPurgesExpiredReservation(t *testing.T) {
	s, rec := newTestService(nil)
	a, b := uuid.NewString(), uuid.NewString()

	s.Join("42", a)
	s.Join("42", b)
	s.ToggleReady("42", a)
	s.ToggleReady("42", b)
	s.Leave("42", a)
	settle(s, "42")

	room := mustGetRoom(t, s, "42")
	require.Contains(t, room.Reserved, a)

	// Back-date the hold past its deadline without letting the timer run,
	// as if the expiry callback were delayed.
	onChain(s, "42", func() {
		res := room.Reserved[a]
		res.timer.Stop()
		res.Until = time.Now().Add(-time.Second)
	})

	s.Join("42", b) // reconnect
	settle(s, "42")

	assert.Empty(t, room.Reserved)
	statuses := rec.ofType("RoomStatusBroadcast")
	require.NotEmpty(t, statuses)
	last := statuses[len(statuses)-1].msg.Contents.(RoomStatusBroadcast)
	assert.False(t, last.Reserved)
}

func TestMalformedIdentifiersNeverReachARoom(t *testing.T) {
	s, rec := newTestService(nil)
	a := uuid.NewString()

	s.Join("  ", a)
	rejections := rec.sentTo(a, "RejectionResponse")
	require.Len(t, rejections, 1)
	assert.Equal(t, KindValidation, rejections[0].Contents.(RejectionResponse).Kind)

	s.Join("42", "not-a-uuid")
	assert.Equal(t, 0, s.registry.Len())
}
