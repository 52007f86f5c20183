package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/frontierstation/damagecast/pkg/core"
)

// Message type constants matching the client protocol.
const (
	TypeChatMessage = "chat_message"
	TypeWelcome     = "welcome"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChatPayload carries narration text. Text keeps its inline markup.
type ChatPayload struct {
	Text string `json:"text"`
}

// WelcomePayload tells a freshly connected client its handle.
type WelcomePayload struct {
	Handle core.Handle   `json:"handle"`
	Entity core.EntityID `json:"entity"`
}

// ServerMessage is an application-level message bound for one client.
type ServerMessage struct {
	Type    string
	Payload any
}

// ChatMessage builds a chat message carrying text.
func ChatMessage(text string) ServerMessage {
	return ServerMessage{Type: TypeChatMessage, Payload: ChatPayload{Text: text}}
}

// Outbound pairs a message with the handle it is addressed to.
type Outbound struct {
	Handle  core.Handle
	Message ServerMessage
}

// Marshal encodes m as a JSON envelope.
func (m ServerMessage) Marshal() ([]byte, error) {
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.Type, err)
	}
	data, err := json.Marshal(Envelope{Type: m.Type, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", m.Type, err)
	}
	return data, nil
}
