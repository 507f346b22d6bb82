package stream

import "github.com/playalter/maskstream/pkg/mask"

// Control actions a client may push between frames.
const (
	ActionUpdateMask = "update_mask"
	ActionGetStats   = "get_stats"
)

// Ack statuses sent back on the text channel.
const (
	StatusMaskUpdated = "mask_updated"
	StatusStats       = "stats"
	StatusError       = "error"
)

// Control is an inbound text message on the streaming socket.
type Control struct {
	Action       string       `json:"action"`
	MaskSettings *mask.Config `json:"mask_settings,omitempty"`
}

// Ack is the reply to a control message.
type Ack struct {
	Status   string       `json:"status"`
	Settings *mask.Config `json:"settings,omitempty"`
	Data     interface{}  `json:"data,omitempty"`
	Message  string       `json:"message,omitempty"`
}
