package room

import "fmt"

// RejectionKind is a machine-readable rejection code a client can branch on
// without string matching.
type RejectionKind string

const (
	KindValidation      RejectionKind = "VALIDATION"
	KindRoomNotFound    RejectionKind = "ROOM_NOT_FOUND"
	KindNotActivePlayer RejectionKind = "NOT_ACTIVE_PLAYER"
	KindSlotReserved    RejectionKind = "SLOT_RESERVED"
	KindGameNotActive   RejectionKind = "GAME_NOT_ACTIVE"
	KindNotAuthorized   RejectionKind = "NOT_AUTHORIZED"
	KindInternal        RejectionKind = "INTERNAL"
)

// Rejection is a structured refusal of an operation. Rejections go back to
// the originating connection only and never mutate room state.
type Rejection struct {
	Kind   RejectionKind
	Reason string
	RoomID string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s (room %s)", r.Kind, r.Reason, r.RoomID)
}
