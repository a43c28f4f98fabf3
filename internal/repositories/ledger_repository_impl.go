package repositories

import (
	"context"
	stderrors "errors"
	"fmt"

	"perka/internal/errors"
	"perka/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type walletLedgerRepository struct {
	db *gorm.DB
}

func NewWalletLedgerRepository(db *gorm.DB) WalletLedgerRepository {
	return &walletLedgerRepository{db: db}
}

func (r *walletLedgerRepository) Create(ctx context.Context, tx *models.WalletTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}
	return nil
}

func (r *walletLedgerRepository) GetByID(ctx context.Context, id uint) (*models.WalletTransaction, error) {
	var tx models.WalletTransaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get wallet transaction: %w", err)
	}
	return &tx, nil
}

func (r *walletLedgerRepository) GetByOrderID(ctx context.Context, orderID string) (*models.WalletTransaction, error) {
	var tx models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("metadata->>'order_id' = ?", orderID).
		First(&tx).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get wallet transaction by order: %w", err)
	}
	return &tx, nil
}

func (r *walletLedgerRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = -1 // gorm: no limit
	}
	var txs []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	return txs, nil
}

func (r *walletLedgerRepository) ListSuccessfulByUser(ctx context.Context, userID uint) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.StatusSuccess).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list successful transactions: %w", err)
	}
	return txs, nil
}

func (r *walletLedgerRepository) ListSuccessfulTopups(ctx context.Context) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ?", models.WalletTxTopup, models.StatusSuccess).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list successful topups: %w", err)
	}
	return txs, nil
}

func (r *walletLedgerRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

// IsDuplicateKeyError reports whether err is a unique-constraint
// violation. Both the gorm-translated sentinel and the raw Postgres
// 23505 code are checked; which one surfaces depends on the driver
// path the error took.
func IsDuplicateKeyError(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
