// Package reconcile is the batch repair for topups whose paired bonus
// was never written. It replays successful topups oldest-first and
// backfills the missing topup_bonus rows, dated with the original
// topup's timestamp so history reads correctly. The job is idempotent:
// already-paired topups are skipped, and a concurrent run losing the
// insert race sees a duplicate-key violation and also skips.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"perka/internal/errors"
	"perka/internal/models"
	"perka/internal/repositories"
	"perka/internal/services/balance"

	"github.com/shopspring/decimal"
)

// Summary is the operator-facing result of one batch run.
type Summary struct {
	Processed    int             `json:"processed"`
	Awarded      int             `json:"awarded"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	TotalAwarded decimal.Decimal `json:"total_awarded"`
}

// Job scans the wallet ledger and backfills missing bonus pairings.
type Job struct {
	ledger repositories.WalletLedgerRepository
	bonus  repositories.BonusLedgerRepository
	now    func() time.Time
}

func NewJob(ledger repositories.WalletLedgerRepository, bonus repositories.BonusLedgerRepository) *Job {
	return &Job{
		ledger: ledger,
		bonus:  bonus,
		now:    time.Now,
	}
}

// Run processes every successful topup once. A fatal error reading the
// candidate set aborts the batch; per-item failures are logged, counted
// and never stop the remaining items.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	topups, err := j.ledger.ListSuccessfulTopups(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot read ledger for reconciliation: %w", err)
	}

	summary := &Summary{TotalAwarded: decimal.Zero}
	for i := range topups {
		j.processTopup(ctx, &topups[i], summary)
	}

	log.Printf("reconcile: done processed=%d awarded=%d skipped=%d failed=%d total_awarded=%s",
		summary.Processed, summary.Awarded, summary.Skipped, summary.Failed, summary.TotalAwarded)
	return summary, nil
}

func (j *Job) processTopup(ctx context.Context, topup *models.WalletTransaction, summary *Summary) {
	summary.Processed++

	bonusAmount := topup.BonusAmount()
	if !bonusAmount.IsPositive() {
		summary.Skipped++
		return
	}

	existing, err := j.bonus.FindPairedBonus(ctx, topup.UserID, topup.ID)
	if err != nil {
		log.Printf("reconcile: topup %d: pairing lookup failed: %v", topup.ID, err)
		summary.Failed++
		return
	}
	if existing != nil {
		summary.Skipped++
		return
	}

	history, err := j.bonus.ListByUser(ctx, topup.UserID)
	if err != nil {
		log.Printf("reconcile: topup %d: bonus history fetch failed: %v", topup.ID, err)
		summary.Failed++
		return
	}
	newBalance := balance.ComputeBonusBalance(history).Add(bonusAmount)

	walletTxID := topup.ID
	row := &models.BonusTransaction{
		UserID:              topup.UserID,
		Type:                models.BonusTxTopupBonus,
		Amount:              bonusAmount,
		WalletTransactionID: &walletTxID,
		// Dated with the original topup so the audit trail keeps its
		// historical order.
		CreatedAt: topup.CreatedAt,
		Metadata: models.JSON{
			models.MetaWalletTransID: walletTxID,
			models.MetaOrderID:       topup.OrderID(),
			models.MetaOrderNumber:   topup.Metadata.String(models.MetaOrderNumber),
			models.MetaPackageID:     topup.Metadata[models.MetaPackageID],
			models.MetaBackfilled:    true,
			models.MetaBackfillDate:  j.now().UTC().Format(time.RFC3339),
		},
	}

	if err := j.bonus.Create(ctx, row); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			// A concurrent run won the insert race.
			log.Printf("reconcile: topup %d: bonus already exists, skipping", topup.ID)
			summary.Skipped++
			return
		}
		log.Printf("reconcile: topup %d: bonus insert failed: %v", topup.ID, err)
		summary.Failed++
		return
	}

	if err := j.bonus.UpdateBalanceAfter(ctx, row.ID, newBalance); err != nil {
		j.compensate(ctx, row)
		log.Printf("reconcile: topup %d: %v: %v", topup.ID, errors.ErrPartialReconciliation, err)
		summary.Failed++
		return
	}

	log.Printf("reconcile: topup %d: awarded %s bonus to user %d", topup.ID, bonusAmount, topup.UserID)
	summary.Awarded++
	summary.TotalAwarded = summary.TotalAwarded.Add(bonusAmount)
}

// compensate deletes a bonus row whose follow-up snapshot write failed,
// so no half-applied item is left behind. The topup it paired with
// becomes a detectable gap again and is retried on the next run.
func (j *Job) compensate(ctx context.Context, row *models.BonusTransaction) {
	if err := j.bonus.Delete(ctx, row.ID); err != nil {
		// The row survives with a stale snapshot; the pairing itself
		// is still unique, so the next run will not double-award.
		log.Printf("reconcile: compensation failed for bonus %d: %v", row.ID, err)
	}
}
