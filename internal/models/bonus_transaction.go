package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bonus transaction types
const (
	BonusTxEarn       = "earn"
	BonusTxSpend      = "spend"
	BonusTxTopupBonus = "topup_bonus"
	BonusTxGrant      = "grant"
	BonusTxRefund     = "refund"
	BonusTxAdjustment = "adjustment"
	BonusTxRevoke     = "revoke"
)

// BonusTransaction is a row in the append-only promotional ledger.
// Amount is an unsigned magnitude; the sign is implied by Type (see
// SignedAmount). For topup_bonus rows, WalletTransactionID links the
// bonus to the originating topup; the composite unique index on
// (user_id, type, wallet_transaction_id) guarantees at most one bonus
// per topup.
type BonusTransaction struct {
	ID                  uint            `gorm:"primarykey" json:"id"`
	UserID              uint            `gorm:"not null;index;uniqueIndex:idx_bonus_topup_pairing" json:"user_id"`
	Type                string          `gorm:"size:20;not null;uniqueIndex:idx_bonus_topup_pairing" json:"type"`
	Amount              decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	BalanceAfter        decimal.Decimal `gorm:"type:numeric(20,2)" json:"balance_after"` // advisory snapshot, never authoritative
	WalletTransactionID *uint           `gorm:"uniqueIndex:idx_bonus_topup_pairing" json:"wallet_transaction_id,omitempty"`
	Description         string          `json:"description,omitempty"`
	Metadata            JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt           time.Time       `gorm:"index" json:"created_at"`
}

func (BonusTransaction) TableName() string {
	return "bonus_transactions"
}

// SignedAmount maps Type to the contribution the row makes to the
// bonus balance: earn, topup_bonus, grant and refund add, spend and
// revoke subtract, adjustment carries its own sign.
func (t *BonusTransaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case BonusTxEarn, BonusTxTopupBonus, BonusTxGrant, BonusTxRefund:
		return t.Amount
	case BonusTxSpend, BonusTxRevoke:
		return t.Amount.Neg()
	case BonusTxAdjustment:
		return t.Amount
	default:
		return decimal.Zero
	}
}

// IsBackfilled reports whether the row was written by the
// reconciliation job rather than the crediting path.
func (t *BonusTransaction) IsBackfilled() bool {
	return t.Metadata.Bool(MetaBackfilled)
}
