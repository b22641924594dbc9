package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	SessionID       string            `json:"session_id"`
	Catalogs        map[string]string `json:"catalogs,omitempty"`
	State           any               `json:"state"`
}

// ACT (client -> server). Only the fields the action needs are read.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Action          string `json:"action"`

	ContractID string `json:"contract_id,omitempty"`
	LocationID string `json:"location_id,omitempty"`
	NPCID      string `json:"npc_id,omitempty"`
	ActionID   string `json:"action_id,omitempty"`

	ItemID    string `json:"item_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	UnitPrice int    `json:"unit_price,omitempty"`

	Blocks int `json:"blocks,omitempty"`
}

// ACTION_RESULT (server -> client)
type ActionResultMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Ref             string   `json:"ref"`
	OK              bool     `json:"ok"`
	Code            string   `json:"code,omitempty"`
	Message         string   `json:"message,omitempty"`
	Completed       []string `json:"completed,omitempty"`
	Failed          []string `json:"failed,omitempty"`
}

// STATE (server -> client)
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	State           any    `json:"state"`
}

func NewActionResult(ref string, ok bool, code, message string) ActionResultMsg {
	return ActionResultMsg{
		Type:            TypeActionResult,
		ProtocolVersion: Version,
		Ref:             ref,
		OK:              ok,
		Code:            code,
		Message:         message,
	}
}

func NewState(state any) StateMsg {
	return StateMsg{Type: TypeState, ProtocolVersion: Version, State: state}
}
