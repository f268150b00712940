package frame

import "github.com/gorilla/websocket"

// Message is an inbound socket message. It is one of Text, Binary or Unknown.
type Message interface {
	isMessage()
}

// Text is a text frame. It is diagnostic only.
type Text string

// Binary is a binary frame carrying an orientation record.
type Binary []byte

// Unknown is any other frame kind the transport hands up.
type Unknown struct {
	Opcode int
	Data   []byte
}

func (Text) isMessage()    {}
func (Binary) isMessage()  {}
func (Unknown) isMessage() {}

// FromWebsocket classifies a frame returned by (*websocket.Conn).ReadMessage.
func FromWebsocket(messageType int, data []byte) Message {
	switch messageType {
	case websocket.TextMessage:
		return Text(data)
	case websocket.BinaryMessage:
		return Binary(data)
	default:
		return Unknown{Opcode: messageType, Data: data}
	}
}
