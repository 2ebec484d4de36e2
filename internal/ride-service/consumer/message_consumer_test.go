package consumer

import (
	"context"
	"testing"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/service"
	"rideshare/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type fakeAcker struct {
	acked, nacked, requeued bool
}

func (a *fakeAcker) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAcker) Reject(uint64, bool) error { return nil }

type fakeRides struct {
	calls []service.RideCommand
	err   error
}

func (f *fakeRides) AcceptRide(_ context.Context, cmd service.RideCommand) (*domain.Ride, error) {
	f.calls = append(f.calls, cmd)
	return nil, f.err
}

func deliver(t *testing.T, rides *fakeRides, body string) *fakeAcker {
	t.Helper()
	c := New(nil, rides, logger.Nop())
	acker := &fakeAcker{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte(body)})
	return acker
}

func TestAcceptedResponseCallsAcceptRide(t *testing.T) {
	rides := &fakeRides{}
	acker := deliver(t, rides, `{"ride_id":"ride-1","driver_id":"d1","accepted":true}`)

	assert.True(t, acker.acked)
	assert.Equal(t, []service.RideCommand{{RideID: "ride-1", DriverID: "d1"}}, rides.calls)
}

func TestDeclinedResponseIsAcked(t *testing.T) {
	rides := &fakeRides{}
	acker := deliver(t, rides, `{"ride_id":"ride-1","driver_id":"d1","accepted":false}`)

	assert.True(t, acker.acked)
	assert.Empty(t, rides.calls)
}

func TestRetryableOutcomesAreRequeued(t *testing.T) {
	for name, err := range map[string]error{
		"busy":     &domain.ResourceBusyError{Resource: "ride ride-1"},
		"conflict": &domain.ConcurrentModificationError{Entity: "ride", ID: "ride-1", ExpectedVersion: 1},
	} {
		t.Run(name, func(t *testing.T) {
			acker := deliver(t, &fakeRides{err: err}, `{"ride_id":"ride-1","driver_id":"d1","accepted":true}`)
			assert.True(t, acker.nacked)
			assert.True(t, acker.requeued)
			assert.False(t, acker.acked)
		})
	}
}

func TestFinalOutcomesAreAcked(t *testing.T) {
	for name, tc := range map[string]struct {
		body string
		err  error
	}{
		"malformed":     {body: `{not json`},
		"missing ids":   {body: `{"accepted":true}`},
		"wrong driver":  {body: `{"ride_id":"ride-1","driver_id":"d2","accepted":true}`, err: domain.ErrDriverNotAssigned},
		"already taken": {body: `{"ride_id":"ride-1","driver_id":"d1","accepted":true}`, err: &domain.InvalidStateTransitionError{Entity: "ride", ID: "ride-1", Expected: "MATCHED", Actual: domain.StatusAccepted}},
		"unknown ride":  {body: `{"ride_id":"nope","driver_id":"d1","accepted":true}`, err: domain.NewNotFoundError("ride", "nope")},
	} {
		t.Run(name, func(t *testing.T) {
			acker := deliver(t, &fakeRides{err: tc.err}, tc.body)
			assert.True(t, acker.acked)
			assert.False(t, acker.nacked)
		})
	}
}
