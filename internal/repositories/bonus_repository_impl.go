package repositories

import (
	"context"
	stderrors "errors"
	"fmt"

	"perka/internal/errors"
	"perka/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type bonusLedgerRepository struct {
	db *gorm.DB
}

func NewBonusLedgerRepository(db *gorm.DB) BonusLedgerRepository {
	return &bonusLedgerRepository{db: db}
}

func (r *bonusLedgerRepository) Create(ctx context.Context, tx *models.BonusTransaction) error {
	// Duplicate-key errors pass through unwrapped so callers can
	// detect the benign already-paired case.
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("failed to create bonus transaction: %w", err)
	}
	return nil
}

func (r *bonusLedgerRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.BonusTransaction{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete bonus transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

func (r *bonusLedgerRepository) ListByUser(ctx context.Context, userID uint) ([]models.BonusTransaction, error) {
	var txs []models.BonusTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus transactions: %w", err)
	}
	return txs, nil
}

func (r *bonusLedgerRepository) FindPairedBonus(ctx context.Context, userID, walletTxID uint) (*models.BonusTransaction, error) {
	var tx models.BonusTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND wallet_transaction_id = ?",
			userID, models.BonusTxTopupBonus, walletTxID).
		First(&tx).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up paired bonus: %w", err)
	}
	return &tx, nil
}

func (r *bonusLedgerRepository) UpdateBalanceAfter(ctx context.Context, id uint, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.BonusTransaction{}).
		Where("id = ?", id).
		Update("balance_after", balance)
	if result.Error != nil {
		return fmt.Errorf("failed to update balance snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}
