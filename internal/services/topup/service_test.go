package topup

import (
	"context"
	stderrors "errors"
	"testing"

	"perka/internal/errors"
	"perka/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeLedger is an in-memory wallet ledger.
type fakeLedger struct {
	txs    []*models.WalletTransaction
	nextID uint
}

func newFakeLedger() *fakeLedger { return &fakeLedger{nextID: 1} }

func (f *fakeLedger) Create(_ context.Context, tx *models.WalletTransaction) error {
	tx.ID = f.nextID
	f.nextID++
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeLedger) GetByID(_ context.Context, id uint) (*models.WalletTransaction, error) {
	for _, tx := range f.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, errors.ErrTransactionNotFound
}

func (f *fakeLedger) GetByOrderID(_ context.Context, orderID string) (*models.WalletTransaction, error) {
	for _, tx := range f.txs {
		if tx.OrderID() == orderID {
			return tx, nil
		}
	}
	return nil, errors.ErrTransactionNotFound
}

func (f *fakeLedger) ListByUser(context.Context, uint, int, int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeLedger) ListSuccessfulByUser(context.Context, uint) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeLedger) ListSuccessfulTopups(context.Context) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, id uint, status string) error {
	for _, tx := range f.txs {
		if tx.ID == id {
			tx.Status = status
			return nil
		}
	}
	return errors.ErrTransactionNotFound
}

// fakeBonusLedger is an in-memory bonus ledger enforcing the pairing
// uniqueness the real table's composite index provides.
type fakeBonusLedger struct {
	txs    []*models.BonusTransaction
	nextID uint

	failCreate       error
	failBalanceAfter error
}

func newFakeBonusLedger() *fakeBonusLedger { return &fakeBonusLedger{nextID: 1} }

func (f *fakeBonusLedger) Create(_ context.Context, tx *models.BonusTransaction) error {
	if f.failCreate != nil {
		return f.failCreate
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
			return nil
		}
	}
	return errors.ErrTransactionNotFound
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
	if f.failBalanceAfter != nil {
		return f.failBalanceAfter
	}
	for _, tx := range f.txs {
		if tx.ID == id {
			tx.BalanceAfter = bal
			return nil
		}
	}
	return errors.ErrTransactionNotFound
}

// fakePackages serves a fixed set of packages.
type fakePackages struct {
	pkgs []models.TopupPackage
}

func (f *fakePackages) GetByID(_ context.Context, id uint) (*models.TopupPackage, error) {
	for i := range f.pkgs {
		if f.pkgs[i].ID == id && f.pkgs[i].Active {
			return &f.pkgs[i], nil
		}
	}
	return nil, errors.ErrPackageNotFound
}

func (f *fakePackages) ListActive(context.Context) ([]models.TopupPackage, error) {
	var out []models.TopupPackage
	for _, p := range f.pkgs {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newTestService(ledger *fakeLedger, bonus *fakeBonusLedger) Service {
	packages := &fakePackages{pkgs: []models.TopupPackage{
		{ID: 1, Name: "Starter", Amount: dec("50"), BonusAmount: dec("5"), Active: true},
		{ID: 2, Name: "Plus", Amount: dec("100"), BonusAmount: dec("15"), Active: true},
		{ID: 3, Name: "Legacy", Amount: dec("25"), Active: false},
	}}
	return NewService(ledger, bonus, packages, nil)
}

func TestCredit_PairsBonusWithTopup(t *testing.T) {
	ledger := newFakeLedger()
	bonus := newFakeBonusLedger()
	s := newTestService(ledger, bonus)

	tx, err := s.Credit(context.Background(), 42, dec("50"), dec("5"), nil)
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, models.WalletTxTopup, tx.Type)
	assert.Equal(t, models.StatusSuccess, tx.Status)
	assert.True(t, dec("50").Equal(tx.Amount))
	assert.NotEmpty(t, tx.OrderID())

	require.Len(t, bonus.txs, 1)
	row := bonus.txs[0]
	assert.Equal(t, models.BonusTxTopupBonus, row.Type)
	assert.True(t, dec("5").Equal(row.Amount))
	require.NotNil(t, row.WalletTransactionID)
	assert.Equal(t, tx.ID, *row.WalletTransactionID)
	assert.NotEmpty(t, row.Metadata.String(models.MetaOrderNumber))
	assert.True(t, dec("5").Equal(row.BalanceAfter))
}

func TestCredit_NoBonusOwed(t *testing.T) {
	ledger := newFakeLedger()
	bonus := newFakeBonusLedger()
	s := newTestService(ledger, bonus)

	tx, err := s.Credit(context.Background(), 42, dec("50"), decimal.Zero, nil)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Empty(t, bonus.txs)
}

func TestCredit_InvalidAmount(t *testing.T) {
	s := newTestService(newFakeLedger(), newFakeBonusLedger())
	_, err := s.Credit(context.Background(), 42, dec("-1"), decimal.Zero, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
}

func TestCredit_BonusFailureSurfacesPartialCredit(t *testing.T) {
	ledger := newFakeLedger()
	bonus := newFakeBonusLedger()
	bonus.failCreate = stderrors.New("bonus store down")
	s := newTestService(ledger, bonus)

	tx, err := s.Credit(context.Background(), 42, dec("50"), dec("5"), nil)

	// The wallet row must survive so the reconciliation job can find
	// and repair the gap.
	require.NotNil(t, tx)
	assert.Len(t, ledger.txs, 1)
	assert.ErrorIs(t, err, errors.ErrPartialCreditFailure)
	assert.Empty(t, bonus.txs)
}

func TestCredit_DuplicateBonusIsBenign(t *testing.T) {
	ledger := newFakeLedger()
	bonus := newFakeBonusLedger()
	bonus.failCreate = gorm.ErrDuplicatedKey
	s := newTestService(ledger, bonus)

	_, err := s.Credit(context.Background(), 42, dec("50"), dec("5"), nil)
	assert.NoError(t, err)
}

func TestInitiateTopup(t *testing.T) {
	ledger := newFakeLedger()
	s := newTestService(ledger, newFakeBonusLedger())

	tx, err := s.InitiateTopup(context.Background(), 42, 2)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, tx.Status)
	assert.True(t, dec("100").Equal(tx.Amount))
	assert.True(t, dec("15").Equal(tx.BonusAmount()))
	assert.NotEmpty(t, tx.OrderID())
}

func TestInitiateTopup_UnknownOrInactivePackage(t *testing.T) {
	s := newTestService(newFakeLedger(), newFakeBonusLedger())

	_, err := s.InitiateTopup(context.Background(), 42, 99)
	assert.ErrorIs(t, err, errors.ErrPackageNotFound)

	_, err = s.InitiateTopup(context.Background(), 42, 3)
	assert.ErrorIs(t, err, errors.ErrPackageNotFound)
}

func TestConfirmPayment_SettlementGrantsBonus(t *testing.T) {
	ledger := newFakeLedger()
	bonus := newFakeBonusLedger()
	s := newTestService(ledger, bonus)

	pending, err := s.InitiateTopup(context.Background(), 42, 1)
	require.NoError(t, err)

	confirmed, err := s.ConfirmPayment(context.Background(), pending.OrderID(), "settlement")
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, confirmed.Status)
	require.Len(t, bonus.txs, 1)
	assert.True(t, dec("5").Equal(bonus.txs[0].Amount))
}

func TestConfirmPayment_RepeatedConfirmationIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	bonus := newFakeBonusLedger()
	s := newTestService(ledger, bonus)

	pending, _ := s.InitiateTopup(context.Background(), 42, 1)

	_, err := s.ConfirmPayment(context.Background(), pending.OrderID(), "settlement")
	require.NoError(t, err)
	_, err = s.ConfirmPayment(context.Background(), pending.OrderID(), "settlement")
	require.NoError(t, err)

	// The pairing constraint keeps the second confirmation from
	// double-crediting.
	assert.Len(t, bonus.txs, 1)
}

func TestConfirmPayment_FailureWritesNoBonus(t *testing.T) {
	ledger := newFakeLedger()
	bonus := newFakeBonusLedger()
	s := newTestService(ledger, bonus)

	pending, _ := s.InitiateTopup(context.Background(), 42, 1)

	tx, err := s.ConfirmPayment(context.Background(), pending.OrderID(), "deny")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Empty(t, bonus.txs)
}

func TestConfirmPayment_RejectsTransitionOutOfFinalStatus(t *testing.T) {
	ledger := newFakeLedger()
	s := newTestService(ledger, newFakeBonusLedger())

	pending, _ := s.InitiateTopup(context.Background(), 42, 1)
	_, err := s.ConfirmPayment(context.Background(), pending.OrderID(), "deny")
	require.NoError(t, err)

	_, err = s.ConfirmPayment(context.Background(), pending.OrderID(), "settlement")
	assert.ErrorIs(t, err, errors.ErrInvalidStatusTransition)
}

func TestConfirmPayment_UnknownOrder(t *testing.T) {
	s := newTestService(newFakeLedger(), newFakeBonusLedger())
	_, err := s.ConfirmPayment(context.Background(), "no-such-order", "settlement")
	assert.ErrorIs(t, err, errors.ErrTransactionNotFound)
}
