package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrMalformed       = "E_MALFORMED"

	// Rule/action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoPermission  = "E_NO_PERMISSION"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrBlocked       = "E_BLOCKED"
	ErrInternal      = "E_INTERNAL"

	// Contract lifecycle.
	ErrNoBudget      = "E_NO_BUDGET"
	ErrNotAvailable  = "E_NOT_AVAILABLE"
	ErrIneligible    = "E_INELIGIBLE"
	ErrNotCompleted  = "E_NOT_COMPLETED"
	ErrTerminal      = "E_TERMINAL"
	ErrNotActive     = "E_NOT_ACTIVE"
	ErrAlreadyActive = "E_ALREADY_ACTIVE"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrMalformed:       {},
	ErrBadRequest:      {},
	ErrNoPermission:    {},
	ErrNoResource:      {},
	ErrInvalidTarget:   {},
	ErrBlocked:         {},
	ErrInternal:        {},
	ErrNoBudget:        {},
	ErrNotAvailable:    {},
	ErrIneligible:      {},
	ErrNotCompleted:    {},
	ErrTerminal:        {},
	ErrNotActive:       {},
	ErrAlreadyActive:   {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
