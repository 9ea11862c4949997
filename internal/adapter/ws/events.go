package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/promptbox/internal/domain/fork"
)

// Message types exchanged with clients besides the fork events.
const (
	TypePing = "ping"
	TypePong = "pong"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type   string          `json:"type"`
	ForkID string          `json:"forkId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// eventMessage converts a lifecycle event into its wire envelope.
func eventMessage(ev fork.Event) Message {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		slog.Error("marshal fork event", "type", ev.Type, "fork_id", ev.ForkID, "error", err)
	}
	return Message{Type: string(ev.Type), ForkID: ev.ForkID, Data: data}
}
