package domain

import (
	"time"
)

// Wallet is a user's balance as read from storage. Debits and credits change
// the in-memory balance; storage applies the change only if the stored
// balance still equals the balance that was read.
type Wallet struct {
	userID  string
	loaded  Money
	balance Money
}

func ReconstructWallet(userID string, balance Money) *Wallet {
	return &Wallet{userID: userID, loaded: balance, balance: balance}
}

// Debit fails with ErrInsufficientFunds when amount exceeds the balance.
func (w *Wallet) Debit(amount Money) error {
	if amount < 0 {
		return NewValidationError("amount", "must not be negative")
	}
	if w.balance < amount {
		return ErrInsufficientFunds
	}
	w.balance -= amount
	return nil
}

func (w *Wallet) Credit(amount Money) error {
	if amount < 0 {
		return NewValidationError("amount", "must not be negative")
	}
	w.balance += amount
	return nil
}

func (w *Wallet) UserID() string { return w.userID }
func (w *Wallet) Balance() Money { return w.balance }

// LoadedBalance is the balance the stored row must still hold for an update
// to apply.
func (w *Wallet) LoadedBalance() Money { return w.loaded }

// MarkPersisted makes the current balance the new baseline.
func (w *Wallet) MarkPersisted() { w.loaded = w.balance }

func (w *Wallet) EntityKey() string { return "wallet:" + w.userID }

// Payment records a settled fare.
type Payment struct {
	id        string
	rideID    string
	payerID   string
	payeeID   string
	amount    Money
	createdAt time.Time
}

func NewPayment(id, rideID, payerID, payeeID string, amount Money) (*Payment, error) {
	if amount <= 0 {
		return nil, NewValidationError("amount", "must be positive")
	}
	return &Payment{
		id:        id,
		rideID:    rideID,
		payerID:   payerID,
		payeeID:   payeeID,
		amount:    amount,
		createdAt: time.Now(),
	}, nil
}

func ReconstructPayment(id, rideID, payerID, payeeID string, amount Money, createdAt time.Time) *Payment {
	return &Payment{id: id, rideID: rideID, payerID: payerID, payeeID: payeeID, amount: amount, createdAt: createdAt}
}

func (p *Payment) ID() string           { return p.id }
func (p *Payment) RideID() string       { return p.rideID }
func (p *Payment) PayerID() string      { return p.payerID }
func (p *Payment) PayeeID() string      { return p.payeeID }
func (p *Payment) Amount() Money        { return p.amount }
func (p *Payment) CreatedAt() time.Time { return p.createdAt }

func (p *Payment) EntityKey() string { return "payment:" + p.id }
