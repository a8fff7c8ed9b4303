package comms

import (
	"github.com/gorilla/websocket"
)

// ConnectionWrapper wraps a client connection, handling communication.
// Writes go through WriteChannel so that a single goroutine owns the
// socket's write side.
type ConnectionWrapper struct {
	Socket        *websocket.Conn
	WriteChannel  chan Message
	ParticipantID string
}

func NewConnectionWrapper(socket *websocket.Conn, participantID string) *ConnectionWrapper {
	return &ConnectionWrapper{
		Socket:        socket,
		WriteChannel:  make(chan Message, 32),
		ParticipantID: participantID,
	}
}

// ReadMessage reads a message in from the client.
func (c *ConnectionWrapper) ReadMessage() (Message, error) {
	var message Message
	err := c.Socket.ReadJSON(&message)
	return message, err
}

// WritePump drains WriteChannel onto the socket until the channel closes.
func (c *ConnectionWrapper) WritePump() {
	for message := range c.WriteChannel {
		if err := c.Socket.WriteJSON(message); err != nil {
			return
		}
	}
}

// Send queues a message for delivery, dropping it if the client's write
// buffer is full so a slow consumer cannot stall room processing.
func (c *ConnectionWrapper) Send(message Message) bool {
	select {
	case c.WriteChannel <- message:
		return true
	default:
		return false
	}
}

func (c *ConnectionWrapper) Close() {
	close(c.WriteChannel)
	c.Socket.Close()
}
