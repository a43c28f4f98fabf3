// Package topup records wallet credits and grants the paired
// promotional bonus a qualifying topup earns. The wallet write always
// lands first; when the bonus-side write then fails the topup is not
// rolled back — the failure is surfaced and the gap is closed later by
// the reconciliation job. This is a deliberate eventual-consistency
// choice, not a missing transaction.
package topup

import (
	"context"
	"fmt"
	"log"

	"perka/internal/errors"
	"perka/internal/models"
	"perka/internal/notifier"
	"perka/internal/repositories"
	"perka/internal/services/balance"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service credits wallet topups and their paired bonuses.
type Service interface {
	// InitiateTopup creates a pending topup row for a package purchase
	// and returns it; the order id in its metadata is what the payment
	// gateway will confirm against.
	InitiateTopup(ctx context.Context, userID, packageID uint) (*models.WalletTransaction, error)

	// Credit records a confirmed topup and, when bonusAmount is
	// positive, the paired topup_bonus row.
	Credit(ctx context.Context, userID uint, amount, bonusAmount decimal.Decimal, meta models.JSON) (*models.WalletTransaction, error)

	// ConfirmPayment applies a gateway confirmation event to the
	// pending topup identified by orderID.
	ConfirmPayment(ctx context.Context, orderID, gatewayStatus string) (*models.WalletTransaction, error)

	// ListPackages returns the purchasable topup packages.
	ListPackages(ctx context.Context) ([]models.TopupPackage, error)
}

type service struct {
	ledger    repositories.WalletLedgerRepository
	bonus     repositories.BonusLedgerRepository
	packages  repositories.PackageRepository
	publisher notifier.Publisher
}

func NewService(
	ledger repositories.WalletLedgerRepository,
	bonus repositories.BonusLedgerRepository,
	packages repositories.PackageRepository,
	publisher notifier.Publisher,
) Service {
	if ledger == nil {
		panic("ledger repository is required")
	}
	if bonus == nil {
		panic("bonus repository is required")
	}
	if publisher == nil {
		publisher = notifier.NoopPublisher{}
	}
	return &service{
		ledger:    ledger,
		bonus:     bonus,
		packages:  packages,
		publisher: publisher,
	}
}

func (s *service) InitiateTopup(ctx context.Context, userID, packageID uint) (*models.WalletTransaction, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}

	tx := &models.WalletTransaction{
		UserID: userID,
		Type:   models.WalletTxTopup,
		Amount: pkg.Amount,
		Status: models.StatusPending,
		Metadata: models.JSON{
			models.MetaOrderID:     uuid.NewString(),
			models.MetaPackageID:   pkg.ID,
			models.MetaBonusAmount: pkg.BonusAmount.InexactFloat64(),
		},
	}
	if err := s.ledger.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *service) Credit(ctx context.Context, userID uint, amount, bonusAmount decimal.Decimal, meta models.JSON) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	if meta == nil {
		meta = models.JSON{}
	}
	if meta.String(models.MetaOrderID) == "" {
		meta[models.MetaOrderID] = uuid.NewString()
	}
	if bonusAmount.IsPositive() {
		meta[models.MetaBonusAmount] = bonusAmount.InexactFloat64()
	}

	tx := &models.WalletTransaction{
		UserID:   userID,
		Type:     models.WalletTxTopup,
		Amount:   amount,
		Status:   models.StatusSuccess,
		Metadata: meta,
	}
	if err := s.ledger.Create(ctx, tx); err != nil {
		return nil, err
	}

	if bonusAmount.IsPositive() {
		if _, err := s.grantBonus(ctx, tx, bonusAmount); err != nil && err != errors.ErrDuplicateBonus {
			// The topup row stays; the reconciliation job will pair
			// it on its next run.
			return tx, fmt.Errorf("%w: %v", errors.ErrPartialCreditFailure, err)
		}
	}

	s.notify(ctx, userID)
	return tx, nil
}

func (s *service) ConfirmPayment(ctx context.Context, orderID, gatewayStatus string) (*models.WalletTransaction, error) {
	tx, err := s.ledger.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := mapGatewayStatus(gatewayStatus)
	if status == tx.Status {
		return tx, nil
	}
	if !models.CanTransition(tx.Status, status) {
		return nil, errors.ErrInvalidStatusTransition
	}
	if err := s.ledger.UpdateStatus(ctx, tx.ID, status); err != nil {
		return nil, err
	}
	tx.Status = status

	if status != models.StatusSuccess {
		return tx, nil
	}

	if bonusAmount := tx.BonusAmount(); bonusAmount.IsPositive() {
		if _, err := s.grantBonus(ctx, tx, bonusAmount); err != nil && err != errors.ErrDuplicateBonus {
			s.notify(ctx, tx.UserID)
			return tx, fmt.Errorf("%w: %v", errors.ErrPartialCreditFailure, err)
		}
	}

	s.notify(ctx, tx.UserID)
	return tx, nil
}

func (s *service) ListPackages(ctx context.Context) ([]models.TopupPackage, error) {
	return s.packages.ListActive(ctx)
}

// grantBonus appends the topup_bonus row paired with a wallet topup.
// The unique index on (user_id, type, wallet_transaction_id) makes the
// call safe to repeat: a duplicate insert surfaces as ErrDuplicateBonus.
func (s *service) grantBonus(ctx context.Context, topup *models.WalletTransaction, amount decimal.Decimal) (*models.BonusTransaction, error) {
	orderNumber := topup.Metadata.String(models.MetaOrderNumber)
	if orderNumber == "" {
		orderNumber = fmt.Sprintf("TOPUP-%s", uuid.NewString())
	}

	walletTxID := topup.ID
	row := &models.BonusTransaction{
		UserID:              topup.UserID,
		Type:                models.BonusTxTopupBonus,
		Amount:              amount,
		WalletTransactionID: &walletTxID,
		Metadata: models.JSON{
			models.MetaWalletTransID: walletTxID,
			models.MetaOrderID:       topup.OrderID(),
			models.MetaOrderNumber:   orderNumber,
			models.MetaPackageID:     topup.Metadata[models.MetaPackageID],
		},
	}

	if err := s.bonus.Create(ctx, row); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, errors.ErrDuplicateBonus
		}
		return nil, err
	}

	// Advisory snapshot of the balance after this credit. A failure
	// here leaves the ledger correct, so it is logged and not
	// propagated; balance derivation never reads this field back.
	if history, err := s.bonus.ListByUser(ctx, topup.UserID); err == nil {
		snapshot := balance.ComputeBonusBalance(history)
		if err := s.bonus.UpdateBalanceAfter(ctx, row.ID, snapshot); err != nil {
			log.Printf("topup: balance snapshot update failed for bonus %d: %v", row.ID, err)
		} else {
			row.BalanceAfter = snapshot
		}
	} else {
		log.Printf("topup: balance snapshot fetch failed for user %d: %v", topup.UserID, err)
	}

	if err := s.publisher.LedgerChanged(ctx, topup.UserID, notifier.TableBonus); err != nil {
		log.Printf("topup: change notification failed for user %d: %v", topup.UserID, err)
	}
	return row, nil
}

func (s *service) notify(ctx context.Context, userID uint) {
	if err := s.publisher.LedgerChanged(ctx, userID, notifier.TableWallet); err != nil {
		log.Printf("topup: change notification failed for user %d: %v", userID, err)
	}
}

// mapGatewayStatus translates payment-gateway transaction states into
// the internal status machine. The gateway protocol itself is a black
// box; only its terminal verdicts matter here.
func mapGatewayStatus(gatewayStatus string) string {
	switch gatewayStatus {
	case "capture", "settlement", "success":
		return models.StatusSuccess
	case "deny", "failure", "failed":
		return models.StatusFailed
	case "cancel", "expire", "cancelled":
		return models.StatusCancelled
	case "pending":
		return models.StatusProcessing
	default:
		return models.StatusProcessing
	}
}
