package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/service"
	"rideshare/pkg/logger"
	"rideshare/pkg/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DriverResponseMessage is a driver's answer to an assigned ride, published
// on driver_topic as driver.response.<ride_id>.
type DriverResponseMessage struct {
	RideID        string    `json:"ride_id"`
	DriverID      string    `json:"driver_id"`
	Accepted      bool      `json:"accepted"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RespondedAt   time.Time `json:"responded_at,omitempty"`
}

type rideAccepter interface {
	AcceptRide(ctx context.Context, cmd service.RideCommand) (*domain.Ride, error)
}

type queueConsumer interface {
	Consume(ctx context.Context, queue string, handler func(amqp.Delivery))
}

// RideConsumer turns driver responses into AcceptRide calls.
type RideConsumer struct {
	rabbit queueConsumer
	rides  rideAccepter
	log    logger.Logger
}

func New(rabbit queueConsumer, rides rideAccepter, log logger.Logger) *RideConsumer {
	return &RideConsumer{
		rabbit: rabbit,
		rides:  rides,
		log:    log.WithFields(logger.LogFields{"component": "driver_response_consumer"}),
	}
}

// StartConsuming returns immediately; deliveries are handled until ctx ends.
func (c *RideConsumer) StartConsuming(ctx context.Context) {
	c.rabbit.Consume(ctx, rabbitmq.QueueDriverResponses, func(msg amqp.Delivery) {
		c.handle(ctx, msg)
	})
	c.log.Info("consumers_started", "Driver response consumer started")
}

func (c *RideConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	requeue, err := c.process(ctx, msg.Body)
	if requeue {
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.log.Error("nack_failed", nackErr)
		}
		return
	}
	if err != nil {
		c.log.Error("driver_response_dropped", err)
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.log.Error("ack_failed", ackErr)
	}
}

// process reports whether the message should go back on the queue. Lock
// timeouts and version conflicts are worth another try; everything else is
// final.
func (c *RideConsumer) process(ctx context.Context, body []byte) (bool, error) {
	var resp DriverResponseMessage
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, err
	}
	log := c.log.WithFields(logger.LogFields{
		"ride_id":   resp.RideID,
		"driver_id": resp.DriverID,
		"accepted":  resp.Accepted,
	})
	if resp.RideID == "" || resp.DriverID == "" {
		return false, errors.New("driver response without ride_id or driver_id")
	}
	if !resp.Accepted {
		log.Info("driver_declined", "Driver declined the ride")
		return false, nil
	}

	_, err := c.rides.AcceptRide(ctx, service.RideCommand{RideID: resp.RideID, DriverID: resp.DriverID})
	switch {
	case err == nil:
		log.Info("driver_response_applied", "Ride accepted from driver response")
		return false, nil
	case domain.IsRetryable(err):
		log.Warn("driver_response_requeued", err.Error())
		return true, err
	default:
		return false, err
	}
}
