package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet transaction types
const (
	WalletTxTopup  = "topup"
	WalletTxSpend  = "spend"
	WalletTxBonus  = "bonus"
	WalletTxRefund = "refund"
)

// Wallet transaction statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// WalletTransaction is a row in the append-only wallet ledger. Rows are
// never modified after creation except for the status transition driven
// by the external payment flow. Balances are always derived by summing
// this table, never read from a stored total.
type WalletTransaction struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Type        string          `gorm:"size:20;not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"` // topup/refund positive, spend negative
	Status      string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Description string          `json:"description,omitempty"`
	Metadata    JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// BonusAmount reads the qualifying bonus recorded on a topup row.
func (t *WalletTransaction) BonusAmount() decimal.Decimal {
	return t.Metadata.Decimal(MetaBonusAmount)
}

// OrderID returns the external order reference carried in metadata.
func (t *WalletTransaction) OrderID() string {
	return t.Metadata.String(MetaOrderID)
}

var statusTransitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusSuccess, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusSuccess, StatusFailed, StatusCancelled},
}

// CanTransition reports whether the payment flow may move a row from
// one status to another. Final statuses have no outgoing transitions.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsFinalStatus reports whether a status accepts no further transitions.
func IsFinalStatus(status string) bool {
	return len(statusTransitions[status]) == 0
}
