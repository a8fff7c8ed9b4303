package comms

import "reflect"

// Messages used in conversation with a client
type Message struct {
	Type     string      `json:"type"`
	Contents interface{} `json:"contents,omitempty"`
}

// ToMessage wraps contents into a Message, using the name of the contents
// struct as the message type.
func ToMessage(contents interface{}) Message {
	return Message{
		Type:     reflect.TypeOf(contents).Name(),
		Contents: contents,
	}
}
