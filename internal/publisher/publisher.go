package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fory-finance/p2p-desk/internal/metrics"
	"github.com/fory-finance/p2p-desk/pkg/logger"
	"github.com/fory-finance/p2p-desk/pkg/model"
)

// Publisher wraps a NATS connection and publishes canonical order events for
// downstream desk tooling (reconciliation, ops dashboards).
type Publisher struct {
	nc            *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
	service       string
}

// New creates a new Publisher with JetStream enabled if available.
func New(nc *nats.Conn, subjectPrefix, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:            nc,
		js:            js,
		subjectPrefix: subjectPrefix,
		service:       service,
	}, nil
}

// OrderSubmitted emits an evt.order.submitted event. Satisfies flow.EventSink.
func (p *Publisher) OrderSubmitted(ctx context.Context, order model.OrderSummary) error {
	return p.publishOrderEvent(ctx, "submitted", order.UserID, model.OrderEvent{
		Status:    "submitted",
		Order:     order,
		Timestamp: time.Now().UTC(),
	})
}

// OrderCancelled emits an evt.order.cancelled event.
func (p *Publisher) OrderCancelled(ctx context.Context, userID int64) error {
	return p.publishOrderEvent(ctx, "cancelled", userID, model.OrderEvent{
		Status:    "cancelled",
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) publishOrderEvent(ctx context.Context, status string, userID int64, event model.OrderEvent) error {
	subject := p.subjectPrefix + "." + status + ".v1"

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		EventType:     "order." + status,
		Version:       "1.0.0",
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}

	return p.publishEnvelope(subject, env)
}

func (p *Publisher) publishEnvelope(subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Infow("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
