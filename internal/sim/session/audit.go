package session

import "errors"

type AuditEntry struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Seq        uint64         `json:"seq"`
	Day        int            `json:"day"`
	Hour       int            `json:"hour"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	ContractID string         `json:"contract_id,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

type AuditSink interface {
	WriteAudit(e AuditEntry) error
}

// DaySummary is recorded once for every day the calendar leaves behind.
type DaySummary struct {
	SessionID  string `json:"session_id"`
	Day        int    `json:"day"`
	Active     int    `json:"active"`
	Failed     int    `json:"failed"`
	Settled    int    `json:"settled"`
	Coins      int    `json:"coins"`
	Reputation int    `json:"reputation"`
}

type DaySink interface {
	RecordDay(s DaySummary) error
}

// MultiSink fans an entry out to every sink and joins their errors.
type MultiSink []AuditSink

func (m MultiSink) WriteAudit(e AuditEntry) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.WriteAudit(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
