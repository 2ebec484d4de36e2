package service

import (
	"context"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/logger"
)

// TopUpWallet adds amount to a user's balance, creating the wallet if needed.
func (s *ParticipantService) TopUpWallet(ctx context.Context, userID string, amount domain.Money) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	var wallet *domain.Wallet
	err := withLocks(ctx, s.locks, s.lockTimeout, []string{walletKey(userID)}, func() error {
		return inTx(ctx, s.store, func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork) error {
			if err := tx.Wallets().Ensure(ctx, userID); err != nil {
				return err
			}
			var err error
			wallet, err = tx.Wallets().FindByUser(ctx, userID)
			if err != nil {
				return err
			}
			if err := wallet.Credit(amount); err != nil {
				return err
			}
			return uow.RegisterDirty(wallet)
		})
	})
	if err != nil {
		s.log.WithFields(logger.LogFields{"user_id": userID}).Error("top_up_failed", err)
		return nil, err
	}

	s.log.WithFields(logger.LogFields{
		"user_id": userID,
		"amount":  amount.String(),
		"balance": wallet.Balance().String(),
	}).Info("wallet_topped_up", "Wallet topped up")
	return wallet, nil
}

func (s *ParticipantService) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.store.Wallets().FindByUser(ctx, userID)
}
