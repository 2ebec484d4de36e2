package service

import (
	"context"
	"fmt"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/logger"
)

// CompleteRide moves an IN_PROGRESS ride to COMPLETED. A ride with a fare is
// settled in the same transaction: the rider's wallet is debited, the
// driver's credited and a payment recorded. If the rider cannot pay nothing
// is committed.
func (s *RideService) CompleteRide(ctx context.Context, cmd RideCommand) (*domain.Ride, error) {
	var payment *domain.Payment

	ride, _, err := s.transitionRide(ctx, cmd, rideTransition{
		action:  "ride_completed",
		ride:    (*domain.Ride).Complete,
		request: (*domain.RideRequest).MarkCompleted,
		lockKeys: func(r *domain.Ride) []string {
			if r.Fare() <= 0 {
				return nil
			}
			return sortedWalletKeys(r.RiderID(), r.DriverID())
		},
		within: func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork, r *domain.Ride) error {
			var err error
			payment, err = s.settle(ctx, tx, uow, r)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	if payment != nil {
		s.log.WithFields(logger.LogFields{
			"ride_id":    ride.ID(),
			"payment_id": payment.ID(),
			"rider_id":   payment.PayerID(),
			"driver_id":  payment.PayeeID(),
			"amount":     payment.Amount().String(),
		}).Info("payment_settled", "Fare moved from rider to driver")

		s.publish(ctx, domain.PaymentSettledEvent{
			PaymentID: payment.ID(),
			RideID:    ride.ID(),
			PayerID:   payment.PayerID(),
			PayeeID:   payment.PayeeID(),
			Amount:    payment.Amount(),
			SettledAt: payment.CreatedAt(),
		})
	}

	s.notify(ctx, s.riderContact(ctx, ride.RiderID()), fmt.Sprintf("Ride completed, fare $%s", ride.Fare()))
	s.notify(ctx, s.driverContact(ctx, ride.DriverID()), fmt.Sprintf("Ride completed, earned $%s", ride.Fare()))
	return ride, nil
}

func (s *RideService) settle(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork, ride *domain.Ride) (*domain.Payment, error) {
	fare := ride.Fare()
	if fare <= 0 {
		return nil, nil
	}

	wallets := tx.Wallets()
	for _, id := range []string{ride.RiderID(), ride.DriverID()} {
		if err := wallets.Ensure(ctx, id); err != nil {
			return nil, fmt.Errorf("ensure wallet %s: %w", id, err)
		}
	}

	payer, err := wallets.FindByUser(ctx, ride.RiderID())
	if err != nil {
		return nil, err
	}
	payee, err := wallets.FindByUser(ctx, ride.DriverID())
	if err != nil {
		return nil, err
	}

	if err := payer.Debit(fare); err != nil {
		return nil, err
	}
	if err := payee.Credit(fare); err != nil {
		return nil, err
	}

	payment, err := domain.NewPayment(s.newID(), ride.ID(), ride.RiderID(), ride.DriverID(), fare)
	if err != nil {
		return nil, err
	}

	for _, e := range []unitofwork.Entity{payer, payee} {
		if err := uow.RegisterDirty(e); err != nil {
			return nil, err
		}
	}
	if err := uow.RegisterNew(payment); err != nil {
		return nil, err
	}
	return payment, nil
}
