package hub

// MessageType distinguishes JSON payloads from raw binary ones.
type MessageType int

const (
	// JSONMessage carries encoded JSON (stats snapshots, events).
	JSONMessage MessageType = iota
	// BinaryMessage carries raw bytes (preview frames).
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps encoded JSON for broadcast.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes for broadcast.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
