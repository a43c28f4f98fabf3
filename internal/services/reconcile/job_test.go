package reconcile

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"perka/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeWalletLedger serves a fixed, ordered topup history.
type fakeWalletLedger struct {
	topups  []models.WalletTransaction
	listErr error
}

func (f *fakeWalletLedger) ListSuccessfulTopups(context.Context) ([]models.WalletTransaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.topups, nil
}

func (f *fakeWalletLedger) Create(context.Context, *models.WalletTransaction) error { return nil }
func (f *fakeWalletLedger) GetByID(context.Context, uint) (*models.WalletTransaction, error) {
	return nil, nil
}
func (f *fakeWalletLedger) GetByOrderID(context.Context, string) (*models.WalletTransaction, error) {
	return nil, nil
}
func (f *fakeWalletLedger) ListByUser(context.Context, uint, int, int) ([]models.WalletTransaction, error) {
	return nil, nil
}
func (f *fakeWalletLedger) ListSuccessfulByUser(context.Context, uint) ([]models.WalletTransaction, error) {
	return nil, nil
}
func (f *fakeWalletLedger) UpdateStatus(context.Context, uint, string) error { return nil }

// fakeBonusLedger is an in-memory bonus store with failure injection.
type fakeBonusLedger struct {
	txs    []*models.BonusTransaction
	nextID uint

	createErr       error
	createErrOnce   bool
	balanceAfterErr error
	findErr         error
	deleted         []uint
}

func newFakeBonusLedger() *fakeBonusLedger { return &fakeBonusLedger{nextID: 1} }

func (f *fakeBonusLedger) Create(_ context.Context, tx *models.BonusTransaction) error {
	if f.createErr != nil {
		err := f.createErr
		if f.createErrOnce {
			f.createErr = nil
		}
		return err
	}
	if tx.WalletTransactionID != nil {
		for _, existing := range f.txs {
			if existing.Type == tx.Type &&
				existing.UserID == tx.UserID &&
				existing.WalletTransactionID != nil &&
				*existing.WalletTransactionID == *tx.WalletTransactionID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	tx.ID = f.nextID
	f.nextID++
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeBonusLedger) Delete(_ context.Context, id uint) error {
	for i, tx := range f.txs {
		if tx.ID == id {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return stderrors.New("not found")
}

func (f *fakeBonusLedger) ListByUser(_ context.Context, userID uint) ([]models.BonusTransaction, error) {
	var out []models.BonusTransaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeBonusLedger) FindPairedBonus(_ context.Context, userID, walletTxID uint) (*models.BonusTransaction, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, tx := range f.txs {
		if tx.UserID == userID &&
			tx.Type == models.BonusTxTopupBonus &&
			tx.WalletTransactionID != nil &&
			*tx.WalletTransactionID == walletTxID {
			return tx, nil
		}
	}
	return nil, nil
}

func (f *fakeBonusLedger) UpdateBalanceAfter(_ context.Context, id uint, bal decimal.Decimal) error {
	if f.balanceAfterErr != nil {
		return f.balanceAfterErr
	}
	for _, tx := range f.txs {
		if tx.ID == id {
			tx.BalanceAfter = bal
			return nil
		}
	}
	return stderrors.New("not found")
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func topupRow(id, userID uint, amount, bonusAmount string, createdAt time.Time) models.WalletTransaction {
	meta := models.JSON{
		models.MetaOrderID:     "order-" + amount,
		models.MetaOrderNumber: "TOPUP-" + amount,
		models.MetaPackageID:   float64(1),
	}
	if bonusAmount != "" {
		meta[models.MetaBonusAmount] = bonusAmount
	}
	return models.WalletTransaction{
		ID:        id,
		UserID:    userID,
		Type:      models.WalletTxTopup,
		Amount:    dec(amount),
		Status:    models.StatusSuccess,
		Metadata:  meta,
		CreatedAt: createdAt,
	}
}

func TestRun_BackfillsMissingBonus(t *testing.T) {
	origin := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "5", origin),
	}}
	bonus := newFakeBonusLedger()

	job := NewJob(ledger, bonus)
	summary, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Awarded)
	assert.Equal(t, 0, summary.Skipped)
	assert.True(t, dec("5").Equal(summary.TotalAwarded))

	require.Len(t, bonus.txs, 1)
	row := bonus.txs[0]
	assert.Equal(t, models.BonusTxTopupBonus, row.Type)
	assert.True(t, dec("5").Equal(row.Amount))
	require.NotNil(t, row.WalletTransactionID)
	assert.Equal(t, uint(1), *row.WalletTransactionID)

	// Backfilled rows are dated with the original topup, not "now",
	// and carry the audit markers.
	assert.Equal(t, origin, row.CreatedAt)
	assert.True(t, row.IsBackfilled())
	assert.NotEmpty(t, row.Metadata.String(models.MetaBackfillDate))
	assert.Equal(t, "order-50", row.Metadata.String(models.MetaOrderID))
	assert.True(t, dec("5").Equal(row.BalanceAfter))
}

func TestRun_SecondRunAwardsNothing(t *testing.T) {
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "5", time.Now().UTC()),
	}}
	bonus := newFakeBonusLedger()
	job := NewJob(ledger, bonus)

	first, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Awarded)

	second, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Awarded)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, bonus.txs, 1)
}

func TestRun_SkipsTopupsWithoutBonus(t *testing.T) {
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "", time.Now().UTC()),
		topupRow(2, 42, "20", "0", time.Now().UTC()),
		topupRow(3, 42, "100", "10", time.Now().UTC()),
	}}
	bonus := newFakeBonusLedger()

	summary, err := NewJob(ledger, bonus).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Awarded)
	assert.Equal(t, 2, summary.Skipped)
	assert.True(t, dec("10").Equal(summary.TotalAwarded))
}

func TestRun_DuplicateInsertCountedAsSkipped(t *testing.T) {
	// A concurrent run wins the insert race: the duplicate-key
	// violation is benign.
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "5", time.Now().UTC()),
	}}
	bonus := newFakeBonusLedger()
	bonus.createErr = gorm.ErrDuplicatedKey

	summary, err := NewJob(ledger, bonus).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Awarded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
}

func TestRun_SnapshotFailureCompensates(t *testing.T) {
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "5", time.Now().UTC()),
	}}
	bonus := newFakeBonusLedger()
	bonus.balanceAfterErr = stderrors.New("snapshot write failed")

	job := NewJob(ledger, bonus)
	summary, err := job.Run(context.Background())
	require.NoError(t, err)

	// The inserted row must be deleted again: no half-applied state.
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Awarded)
	assert.Empty(t, bonus.txs)
	assert.Len(t, bonus.deleted, 1)

	// After the fault clears, the next run repairs the gap.
	bonus.balanceAfterErr = nil
	summary, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Awarded)
	assert.Len(t, bonus.txs, 1)
}

func TestRun_OneFailureDoesNotAbortBatch(t *testing.T) {
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "5", time.Now().UTC()),
		topupRow(2, 43, "100", "10", time.Now().UTC()),
	}}
	bonus := newFakeBonusLedger()
	bonus.createErr = stderrors.New("store hiccup")
	bonus.createErrOnce = true

	summary, err := NewJob(ledger, bonus).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Awarded)
	assert.True(t, dec("10").Equal(summary.TotalAwarded))
}

func TestRun_PairingLookupFailureCountsItemFailed(t *testing.T) {
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "5", time.Now().UTC()),
	}}
	bonus := newFakeBonusLedger()
	bonus.findErr = stderrors.New("store unavailable")

	summary, err := NewJob(ledger, bonus).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, bonus.txs)
}

func TestRun_FatalWhenLedgerUnreadable(t *testing.T) {
	ledger := &fakeWalletLedger{listErr: stderrors.New("connection refused")}
	summary, err := NewJob(ledger, newFakeBonusLedger()).Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestRun_BalanceAccumulatesAcrossBackfills(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := &fakeWalletLedger{topups: []models.WalletTransaction{
		topupRow(1, 42, "50", "5", base),
		topupRow(2, 42, "100", "10", base.AddDate(0, 1, 0)),
	}}
	bonus := newFakeBonusLedger()

	summary, err := NewJob(ledger, bonus).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Awarded)
	assert.True(t, dec("15").Equal(summary.TotalAwarded))
	require.Len(t, bonus.txs, 2)
	assert.True(t, dec("5").Equal(bonus.txs[0].BalanceAfter))
	assert.True(t, dec("15").Equal(bonus.txs[1].BalanceAfter))
}
