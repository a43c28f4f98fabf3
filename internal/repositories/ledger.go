package repositories

import (
	"context"

	"perka/internal/models"

	"github.com/shopspring/decimal"
)

// WalletLedgerRepository is the generic query/insert/update capability
// over the append-only wallet ledger. Rows are never updated after
// creation except for their status, and never deleted.
type WalletLedgerRepository interface {
	Create(ctx context.Context, tx *models.WalletTransaction) error
	GetByID(ctx context.Context, id uint) (*models.WalletTransaction, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.WalletTransaction, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.WalletTransaction, error)
	// ListSuccessfulByUser fetches only status=success rows, the sole
	// input the balance fold may trust.
	ListSuccessfulByUser(ctx context.Context, userID uint) ([]models.WalletTransaction, error)
	// ListSuccessfulTopups returns every success-status topup across
	// all users, oldest first, for reconciliation replay.
	ListSuccessfulTopups(ctx context.Context) ([]models.WalletTransaction, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

// BonusLedgerRepository covers the promotional ledger. Delete exists
// solely as the compensating action for a partial backfill; it is not
// business logic.
type BonusLedgerRepository interface {
	Create(ctx context.Context, tx *models.BonusTransaction) error
	Delete(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint) ([]models.BonusTransaction, error)
	// FindPairedBonus looks up the topup_bonus row paired with a wallet
	// topup, returning nil when no pairing exists.
	FindPairedBonus(ctx context.Context, userID, walletTxID uint) (*models.BonusTransaction, error)
	UpdateBalanceAfter(ctx context.Context, id uint, balance decimal.Decimal) error
}

// PackageRepository serves topup package definitions.
type PackageRepository interface {
	GetByID(ctx context.Context, id uint) (*models.TopupPackage, error)
	ListActive(ctx context.Context) ([]models.TopupPackage, error)
}
