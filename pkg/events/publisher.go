package events

import "context"

// Publisher is the interface for publishing audit events.
type Publisher interface {
	PublishAudit(ctx context.Context, event *AuditEvent) error
}

// NoOpPublisher is a Publisher that does nothing (for in-process usage
// without an event stream).
type NoOpPublisher struct{}

// PublishAudit is a no-op.
func (p *NoOpPublisher) PublishAudit(_ context.Context, _ *AuditEvent) error {
	return nil
}

// CallbackPublisher is a Publisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *AuditEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *AuditEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishAudit calls the callback.
func (p *CallbackPublisher) PublishAudit(ctx context.Context, event *AuditEvent) error {
	return p.callback(ctx, event)
}
