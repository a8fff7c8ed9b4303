package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/comms"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/game"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/room"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// HistoryReader answers recent-history queries. It may be nil when
// history storage is disabled.
type HistoryReader interface {
	RecentWinners(ctx context.Context, limit int) ([]room.Result, error)
}

// Server stores all connection dependencies for the websocket server.
type Server struct {
	log            *zap.Logger
	store          *ConnectionStore
	service        *room.Service
	history        HistoryReader
	socketUpgrader websocket.Upgrader
}

// NewServer constructs a new Server instance wired to a fresh room
// service. The server itself is the service's transport notifier.
func NewServer(log *zap.Logger, cfg room.Config, checkOriginFunc func(r *http.Request) bool, results room.ResultSink, history HistoryReader) *Server {
	s := &Server{
		log:            log,
		store:          NewConnectionStore(),
		history:        history,
		socketUpgrader: websocket.Upgrader{CheckOrigin: checkOriginFunc},
	}
	s.service = room.NewService(log, cfg, s, results)
	return s
}

// Service exposes the room service, mainly for lifecycle control.
func (s *Server) Service() *room.Service {
	return s.service
}

// ToRoom implements room.Notifier.
func (s *Server) ToRoom(roomID string, message comms.Message) {
	s.store.SendToRoom(roomID, message)
}

// ToParticipant implements room.Notifier.
func (s *Server) ToParticipant(participantID string, message comms.Message) {
	s.syncMembership(participantID, message)
	if !s.store.SendToParticipant(participantID, message) {
		s.log.Debug("dropping message for disconnected participant",
			zap.String("participantID", participantID),
			zap.String("type", message.Type))
	}
}

// syncMembership mirrors the room service's admission decisions onto the
// channel tables. A connection subscribes to a room's broadcasts only once
// the service has admitted it, and a refusal that denies the participant
// any standing in the room drops the subscription, so a rejected join
// never leaves one behind.
func (s *Server) syncMembership(participantID string, message comms.Message) {
	switch contents := message.Contents.(type) {
	case room.PlayerJoinedResponse:
		s.store.JoinChannel(contents.RoomID, participantID)
	case room.PlayerReconnectedResponse:
		s.store.JoinChannel(contents.RoomID, participantID)
	case room.RejectionResponse:
		if contents.RoomID == "" {
			return
		}
		if contents.Kind == room.KindSlotReserved || contents.Kind == room.KindRoomNotFound {
			s.store.LeaveChannel(contents.RoomID, participantID)
		}
	}
}

// Start starts up the websocket server.
func (s *Server) Start(port string) error {
	s.service.Start()
	defer s.service.Stop()

	http.HandleFunc("/", s.connectionHandler)
	s.log.Info(fmt.Sprintf("Started server on port %s", port))
	return http.ListenAndServe(":"+port, nil)
}

// connectionHandler upgrades new HTTP requests from clients to websockets,
// reading in further messages from those clients.
func (s *Server) connectionHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := s.socketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("unable to upgrade connection", zap.Error(err))
		return
	}

	// Returning clients reconnect under their previous participant ID.
	participantID := r.URL.Query().Get("participantID")
	if !room.IsValidParticipantID(participantID) {
		participantID = uuid.NewString()
	}

	conn := comms.NewConnectionWrapper(socket, participantID)
	s.store.Register(conn)
	go conn.WritePump()
	conn.Send(comms.ToMessage(ConnectedResponse{ParticipantID: participantID}))
	s.log.Info("client connected", zap.String("participantID", participantID))

	defer func() {
		s.store.Unregister(participantID)
		s.service.Disconnect(participantID)
		conn.Close()
		s.log.Info("client disconnected", zap.String("participantID", participantID))
	}()

	// Forever handle messages from this client
	for {
		message, err := conn.ReadMessage()
		if websocket.IsUnexpectedCloseError(err) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return
		} else if err != nil {
			s.log.Warn("unable to read incoming message",
				zap.String("participantID", participantID),
				zap.Error(err))
			return
		}
		s.handleMessage(conn, message)
	}
}

// handleMessage decodes and routes one inbound message. Malformed
// payloads get a validation rejection on the issuing connection.
func (s *Server) handleMessage(conn *comms.ConnectionWrapper, message comms.Message) {
	participantID := conn.ParticipantID

	decode := func(out interface{}) bool {
		if err := mapstructure.Decode(message.Contents, out); err != nil {
			conn.Send(comms.ToMessage(room.RejectionResponse{
				Kind:    room.KindValidation,
				Message: fmt.Sprintf("unable to parse %s contents", message.Type),
			}))
			return false
		}
		return true
	}

	switch message.Type {
	case "RoomCreateRequest":
		var req RoomCreateRequest
		if decode(&req) {
			s.service.CreateRoom(req.RoomID, participantID)
		}

	case "RoomJoinRequest":
		var req RoomJoinRequest
		if decode(&req) {
			s.service.Join(req.RoomID, participantID)
		}

	case "RoomLeaveRequest":
		var req RoomLeaveRequest
		if decode(&req) {
			s.service.Leave(req.RoomID, participantID)
			s.store.LeaveChannel(req.RoomID, participantID)
		}

	case "PlayerReadyRequest":
		var req PlayerReadyRequest
		if decode(&req) {
			s.service.ToggleReady(req.RoomID, participantID)
		}

	case "PlayerChoiceRequest":
		var req PlayerChoiceRequest
		if decode(&req) {
			s.service.SubmitChoice(req.RoomID, participantID, game.Choice(req.Choice))
		}

	case "PlayAgainRequest":
		var req PlayAgainRequest
		if decode(&req) {
			s.service.RequestPlayAgain(req.RoomID, participantID)
		}

	case "RoomSettingsRequest":
		var req RoomSettingsRequest
		if decode(&req) {
			s.service.UpdateSettings(req.RoomID, participantID, req.Settings)
		}

	case "RoomListRequest":
		s.service.ListRooms(participantID)

	case "WinListRequest":
		s.sendWinList(conn)

	default:
		conn.Send(comms.ToMessage(room.RejectionResponse{
			Kind:    room.KindValidation,
			Message: fmt.Sprintf("%s is an invalid message type", message.Type),
		}))
	}
}

func (s *Server) sendWinList(conn *comms.ConnectionWrapper) {
	if s.history == nil {
		conn.Send(comms.ToMessage(WinListResponse{}))
		return
	}
	go func() {
		winners, err := s.history.RecentWinners(context.Background(), 10)
		if err != nil {
			s.log.Error("unable to load win list", zap.Error(err))
			return
		}
		s.store.SendToParticipant(conn.ParticipantID, comms.ToMessage(WinListResponse{Winners: winners}))
	}()
}
