// Package spend authorizes wallet debits. A spend is only appended
// after recomputing the balance from a fresh, success-only fetch of
// the ledger; cached balances are never trusted. Spends for one user
// are serialized so two concurrent debits cannot both pass the check
// and overdraw the wallet.
package spend

import (
	"context"
	"fmt"
	"log"
	"sync"

	"perka/internal/errors"
	"perka/internal/models"
	"perka/internal/notifier"
	"perka/internal/repositories"
	"perka/internal/services/balance"

	"github.com/shopspring/decimal"
)

// Service is the spend authorizer interface.
type Service interface {
	Spend(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*models.WalletTransaction, error)
}

type service struct {
	ledger    repositories.WalletLedgerRepository
	publisher notifier.Publisher

	// userLocks serializes the check-then-append sequence per user.
	mu        sync.Mutex
	userLocks map[uint]*sync.Mutex
}

func NewService(ledger repositories.WalletLedgerRepository, publisher notifier.Publisher) Service {
	if ledger == nil {
		panic("ledger repository is required")
	}
	if publisher == nil {
		publisher = notifier.NoopPublisher{}
	}
	return &service{
		ledger:    ledger,
		publisher: publisher,
		userLocks: make(map[uint]*sync.Mutex),
	}
}

// Spend debits the user's wallet. The requested amount must be
// positive; the appended row carries the negated amount and status
// success, because spends are synchronous local debits not subject to
// external payment confirmation.
func (s *service) Spend(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	// Re-fetch and recompute. Whatever balance the caller may have
	// seen is stale by definition once we are here.
	history, err := s.ledger.ListSuccessfulByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger for balance check: %w", err)
	}

	summary := balance.ComputeWalletSummary(history)
	if summary.Balance.LessThan(amount) {
		return nil, errors.ErrInsufficientFunds
	}

	tx := &models.WalletTransaction{
		UserID:      userID,
		Type:        models.WalletTxSpend,
		Amount:      amount.Neg(),
		Status:      models.StatusSuccess,
		Description: description,
	}
	if err := s.ledger.Create(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.publisher.LedgerChanged(ctx, userID, notifier.TableWallet); err != nil {
		log.Printf("spend: change notification failed for user %d: %v", userID, err)
	}
	return tx, nil
}

func (s *service) lockFor(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}
