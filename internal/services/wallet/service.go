// Package wallet is the read side of the ledger: every read recomputes
// wallet and bonus balances from the transaction log. The Redis
// snapshot it refreshes on change signals is advisory only.
package wallet

import (
	"context"
	"log"

	"perka/internal/models"
	"perka/internal/repositories"
	"perka/internal/repositories/cache"
	"perka/internal/services/balance"

	"github.com/shopspring/decimal"
)

// Overview is the derived state served to wallet owners.
type Overview struct {
	UserID       uint                  `json:"user_id"`
	Wallet       balance.WalletSummary `json:"wallet"`
	BonusBalance decimal.Decimal       `json:"bonus_balance"`
}

// Service exposes derived ledger state.
type Service interface {
	Overview(ctx context.Context, userID uint) (*Overview, error)
	History(ctx context.Context, userID uint, limit, offset int) ([]models.WalletTransaction, error)
	BonusHistory(ctx context.Context, userID uint) ([]models.BonusTransaction, error)
	// RefreshSummary recomputes a user's balances and stores the
	// advisory snapshot. Invoked by the change-signal observer.
	RefreshSummary(ctx context.Context, userID uint) error
}

type service struct {
	ledger repositories.WalletLedgerRepository
	bonus  repositories.BonusLedgerRepository
	cache  *cache.CacheService
}

func NewService(
	ledger repositories.WalletLedgerRepository,
	bonus repositories.BonusLedgerRepository,
	cacheService *cache.CacheService,
) Service {
	if ledger == nil {
		panic("ledger repository is required")
	}
	if bonus == nil {
		panic("bonus repository is required")
	}
	return &service{
		ledger: ledger,
		bonus:  bonus,
		cache:  cacheService,
	}
}

func (s *service) Overview(ctx context.Context, userID uint) (*Overview, error) {
	walletTxs, err := s.ledger.ListByUser(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}
	bonusTxs, err := s.bonus.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Overview{
		UserID:       userID,
		Wallet:       balance.ComputeWalletSummary(walletTxs),
		BonusBalance: balance.ComputeBonusBalance(bonusTxs),
	}, nil
}

func (s *service) History(ctx context.Context, userID uint, limit, offset int) ([]models.WalletTransaction, error) {
	return s.ledger.ListByUser(ctx, userID, limit, offset)
}

func (s *service) BonusHistory(ctx context.Context, userID uint) ([]models.BonusTransaction, error) {
	return s.bonus.ListByUser(ctx, userID)
}

func (s *service) RefreshSummary(ctx context.Context, userID uint) error {
	overview, err := s.Overview(ctx, userID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Set(ctx, cache.WalletSummaryKey(userID), overview); err != nil {
		log.Printf("wallet: summary cache refresh failed for user %d: %v", userID, err)
	}
	return nil
}
