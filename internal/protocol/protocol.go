package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello        = "HELLO"
	TypeWelcome      = "WELCOME"
	TypeAct          = "ACT"
	TypeActionResult = "ACTION_RESULT"
	TypeState        = "STATE"
)

// Player actions carried by ACT.
const (
	ActAccept         = "ACCEPT"
	ActTurnIn         = "TURN_IN"
	ActArrive         = "ARRIVE"
	ActTrade          = "TRADE"
	ActConverse       = "CONVERSE"
	ActLocationAction = "LOCATION_ACTION"
	ActSpend          = "SPEND"
	ActRest           = "REST"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
