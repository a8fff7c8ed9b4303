package room

import "github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/game"

// Outbound notifications. Responses go to a single participant, broadcasts
// to every member of the room's channel.

type RoomCreatedResponse struct {
	RoomID string `json:"roomID"`
}

type PlayerJoinedResponse struct {
	RoomID        string `json:"roomID"`
	Position      string `json:"position"` // "active" or "queue"
	PlayerNumber  int    `json:"playerNumber,omitempty"`
	QueuePosition int    `json:"queuePosition,omitempty"`
}

type PlayerReconnectedResponse struct {
	RoomID   string `json:"roomID"`
	Position string `json:"position"`
}

type PlayerStatus struct {
	ID           string `json:"id"`
	Ready        bool   `json:"ready"`
	IsActive     bool   `json:"isActive"`
	InQueue      bool   `json:"inQueue"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
}

type RoomStatusBroadcast struct {
	RoomID         string         `json:"roomID"`
	ActivePlayers  int            `json:"activePlayers"`
	MaxPlayers     int            `json:"maxPlayers"`
	QueueLength    int            `json:"queueLength"`
	GameInProgress bool           `json:"gameInProgress"`
	Reserved       bool           `json:"reserved"`
	Players        []PlayerStatus `json:"players"`
}

type GameReadyBroadcast struct {
	RoomID  string   `json:"roomID"`
	Players []string `json:"players"`
}

type GameStartedBroadcast struct {
	RoomID  string   `json:"roomID"`
	Round   int      `json:"round"`
	Players []string `json:"players"`
}

// RoundChoicesBroadcast carries the cleared choice placeholders for a fresh
// round. It is always sent after the status broadcast so clients reconcile
// membership before gameplay events.
type RoundChoicesBroadcast struct {
	RoomID             string       `json:"roomID"`
	Round              int          `json:"round"`
	Players            []string     `json:"players"`
	FirstPlayerChoice  *game.Choice `json:"firstPlayerChoice"`
	SecondPlayerChoice *game.Choice `json:"secondPlayerChoice"`
}

type WaitingForChoicesBroadcast struct {
	RoomID       string `json:"roomID"`
	MadeChoices  int    `json:"madeChoices"`
	TotalPlayers int    `json:"totalPlayers"`
}

type RoundFinishedBroadcast struct {
	RoomID string      `json:"roomID"`
	Round  int         `json:"round"`
	Result RoundResult `json:"result"`
}

type GameInterruptedBroadcast struct {
	RoomID        string `json:"roomID"`
	Reason        string `json:"reason"`
	LeavingPlayer string `json:"leavingPlayer"`
}

type PlayerLeftBroadcast struct {
	RoomID        string `json:"roomID"`
	ParticipantID string `json:"participantID"`
}

type PromotedToActiveResponse struct {
	RoomID       string `json:"roomID"`
	PlayerNumber int    `json:"playerNumber"`
}

type MovedToQueueResponse struct {
	RoomID        string `json:"roomID"`
	QueuePosition int    `json:"queuePosition"`
}

type RemovedForNoPlayResponse struct {
	RoomID string `json:"roomID"`
}

type PlayAgainVoteBroadcast struct {
	RoomID string   `json:"roomID"`
	Votes  []string `json:"votes"`
	Needed int      `json:"needed"`
}

type SettingsUpdatedBroadcast struct {
	RoomID   string   `json:"roomID"`
	Settings Settings `json:"settings"`
}

type RoomSummary struct {
	RoomID         string `json:"roomID"`
	ActivePlayers  int    `json:"activePlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
	QueueLength    int    `json:"queueLength"`
	GameInProgress bool   `json:"gameInProgress"`
	Round          int    `json:"round"`
	Reserved       bool   `json:"reserved"`
}

type RoomListResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

type RejectionResponse struct {
	Kind    RejectionKind `json:"kind"`
	Message string        `json:"message"`
	RoomID  string        `json:"roomID,omitempty"`
}
