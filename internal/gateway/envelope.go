package gateway

import (
	"encoding/json"
	"time"

	"mon-resto/internal/order/domain/models"
)

// Envelope is the wire frame the gateway sends to observers. A keepalive
// frame carries no payload; observers treat any frame as proof of life.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	FrameStatusEvent = "status_event"
	FrameKeepalive   = "keepalive"
)

func EventFrame(event models.StatusEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:      FrameStatusEvent,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
}

func KeepaliveFrame() []byte {
	frame, _ := json.Marshal(Envelope{
		Type:      FrameKeepalive,
		CreatedAt: time.Now().UTC(),
	})
	return frame
}
