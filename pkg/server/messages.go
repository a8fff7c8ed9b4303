package server

import "github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/room"

// Inbound request contents, decoded from Message.Contents.

type RoomCreateRequest struct {
	RoomID string `mapstructure:"roomID"`
}

type RoomJoinRequest struct {
	RoomID string `mapstructure:"roomID"`
}

type RoomLeaveRequest struct {
	RoomID string `mapstructure:"roomID"`
}

type PlayerReadyRequest struct {
	RoomID string `mapstructure:"roomID"`
}

type PlayerChoiceRequest struct {
	RoomID string `mapstructure:"roomID"`
	Choice int    `mapstructure:"choice"`
}

type PlayAgainRequest struct {
	RoomID string `mapstructure:"roomID"`
}

type RoomSettingsRequest struct {
	RoomID   string             `mapstructure:"roomID"`
	Settings room.SettingsPatch `mapstructure:"settings"`
}

type RoomListRequest struct{}

type WinListRequest struct{}

// ConnectedResponse tells a client the participant ID its connection is
// registered under.
type ConnectedResponse struct {
	ParticipantID string `json:"participantID"`
}

type WinListResponse struct {
	Winners []room.Result `json:"winners"`
}
