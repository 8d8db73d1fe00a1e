package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/xotizwf-create/Uchet/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// StreamSubject overrides the global audit subject (e.g. from AUDIT_SUBJECT).
	StreamSubject string
}

// CommsPublisher publishes audit events to COMMS subjects.
type CommsPublisher struct {
	nc            *comms.Conn
	streamSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	streamSubject := commsutil.SubjectAudit
	if opts != nil && opts.StreamSubject != "" {
		streamSubject = opts.StreamSubject
	}
	return &CommsPublisher{nc: nc, streamSubject: streamSubject}
}

// PublishAudit publishes an AuditEvent to both the per-action and the
// global audit subjects.
func (p *CommsPublisher) PublishAudit(_ context.Context, event *AuditEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	actionSubject := commsutil.BuildAuditSubject(event.Action)
	if err := p.nc.Publish(actionSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, actionSubject, err))
		return err
	}

	if err := p.nc.Publish(p.streamSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.streamSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published audit event for %s", commsPublisherLogPrefix, event.Action))
	return nil
}
