// Package events defines audit event types and publisher interfaces for
// dispatched backend actions.
package events

// AuditEvent is emitted for every dispatched mutating action.
type AuditEvent struct {
	Action    string `json:"action"`
	UserID    string `json:"userId,omitempty"`
	Ok        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Timestamp string `json:"timestamp"`
}
