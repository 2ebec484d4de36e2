package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/pkg/logger"
	"rideshare/pkg/rabbitmq"
)

// amqpPublisher is the part of *rabbitmq.Connection the publishers need.
type amqpPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// RabbitMQNotifier publishes notifications to the notifications exchange
// with routing key notify.<recipient>.
type RabbitMQNotifier struct {
	rabbit amqpPublisher
	now    func() time.Time
}

func NewRabbitMQNotifier(rabbit amqpPublisher) *RabbitMQNotifier {
	return &RabbitMQNotifier{rabbit: rabbit, now: time.Now}
}

func (n *RabbitMQNotifier) Notify(ctx context.Context, to domain.Contact, message string) error {
	body, err := encode(to, message, n.now())
	if err != nil {
		return err
	}
	if err := n.rabbit.Publish(ctx, rabbitmq.ExchangeNotifications, "notify."+recipient(to), body); err != nil {
		return fmt.Errorf("publish notification to rabbitmq: %w", err)
	}
	return nil
}

// RabbitMQEventPublisher publishes ride lifecycle events on ride_topic. The
// routing key is the event type.
type RabbitMQEventPublisher struct {
	rabbit amqpPublisher
	log    logger.Logger
}

func NewRabbitMQEventPublisher(rabbit amqpPublisher, log logger.Logger) *RabbitMQEventPublisher {
	return &RabbitMQEventPublisher{rabbit: rabbit, log: log}
}

func (p *RabbitMQEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	payload := eventPayload(event)
	if payload == nil {
		return fmt.Errorf("unsupported event type: %s", event.EventType())
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rabbit.Publish(ctx, rabbitmq.ExchangeRides, event.EventType(), body); err != nil {
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.log.WithFields(logger.LogFields{
		"event_type":   event.EventType(),
		"aggregate_id": event.AggregateID(),
	}).Debug("event_published", "Domain event published to RabbitMQ")
	return nil
}

func location(l domain.Location) map[string]interface{} {
	return map[string]interface{}{
		"address":  l.Address(),
		"postcode": l.Postcode(),
	}
}

func eventPayload(event domain.DomainEvent) map[string]interface{} {
	switch e := event.(type) {
	case domain.RideRequestedEvent:
		return map[string]interface{}{
			"request_id":   e.RequestID,
			"rider_id":     e.RiderID,
			"pickup":       location(e.Pickup),
			"dropoff":      location(e.Dropoff),
			"requested_at": e.RequestedAt,
		}

	case domain.RideMatchedEvent:
		return map[string]interface{}{
			"ride_id":    e.RideID,
			"request_id": e.RequestID,
			"rider_id":   e.RiderID,
			"driver_id":  e.DriverID,
			"status":     domain.StatusMatched,
			"fare":       e.Fare.String(),
			"matched_at": e.MatchedAt,
		}

	case domain.RideStatusChangedEvent:
		return map[string]interface{}{
			"ride_id":    e.RideID,
			"rider_id":   e.RiderID,
			"driver_id":  e.DriverID,
			"old_status": e.OldStatus,
			"status":     e.NewStatus,
			"version":    e.Version,
			"changed_at": e.ChangedAt,
		}

	case domain.RequestCancelledEvent:
		return map[string]interface{}{
			"request_id":   e.RequestID,
			"rider_id":     e.RiderID,
			"driver_id":    e.DriverID,
			"ride_id":      e.RideID,
			"old_status":   e.OldStatus,
			"status":       domain.StatusCancelled,
			"cancelled_at": e.CancelledAt,
		}

	case domain.PaymentSettledEvent:
		return map[string]interface{}{
			"payment_id": e.PaymentID,
			"ride_id":    e.RideID,
			"payer_id":   e.PayerID,
			"payee_id":   e.PayeeID,
			"amount":     e.Amount.String(),
			"settled_at": e.SettledAt,
		}
	}
	return nil
}
