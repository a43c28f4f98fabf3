// Package balance derives wallet and bonus balances from transaction
// history. There is no stored balance anywhere in the system: these
// folds over the ledger are the single source of truth, and both are
// commutative so input order never affects the result.
package balance

import (
	"perka/internal/models"

	"github.com/shopspring/decimal"
)

// WalletSummary is the derived state of one user's wallet ledger.
type WalletSummary struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalTopups  decimal.Decimal `json:"total_topups"`
	TotalSpends  decimal.Decimal `json:"total_spends"`
	SuccessCount int             `json:"success_count"`
	PendingCount int             `json:"pending_count"`
	FailedCount  int             `json:"failed_count"`
}

// ComputeWalletSummary folds a user's wallet transactions into a
// summary. Only status=success rows contribute to the sums; pending
// and processing rows are counted but excluded entirely, as are failed
// and cancelled ones. The balance is clamped at zero as a defensive
// floor.
func ComputeWalletSummary(txs []models.WalletTransaction) WalletSummary {
	s := WalletSummary{
		Balance:     decimal.Zero,
		TotalTopups: decimal.Zero,
		TotalSpends: decimal.Zero,
	}

	for _, tx := range txs {
		switch tx.Status {
		case models.StatusSuccess:
			s.SuccessCount++
			s.Balance = s.Balance.Add(tx.Amount)
			if tx.Amount.IsNegative() {
				s.TotalSpends = s.TotalSpends.Add(tx.Amount.Neg())
			} else {
				s.TotalTopups = s.TotalTopups.Add(tx.Amount)
			}
		case models.StatusPending, models.StatusProcessing:
			s.PendingCount++
		case models.StatusFailed, models.StatusCancelled:
			s.FailedCount++
		}
	}

	if s.Balance.IsNegative() {
		s.Balance = decimal.Zero
	}
	return s
}

// ComputeBonusBalance folds a user's bonus transactions into the
// promotional balance, clamped at zero. The balance_after snapshots on
// individual rows are advisory and deliberately ignored here.
func ComputeBonusBalance(txs []models.BonusTransaction) decimal.Decimal {
	total := decimal.Zero
	for i := range txs {
		total = total.Add(txs[i].SignedAmount())
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
