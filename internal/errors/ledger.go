package errors

var (
	// ErrInsufficientFunds declines a spend whose freshly computed
	// balance does not cover the requested amount. User-visible, not
	// retried automatically.
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient wallet balance",
	}
	// ErrDuplicateBonus is the unique-constraint outcome when a paired
	// bonus already exists for a topup. Benign: counted as skipped.
	ErrDuplicateBonus = &DomainError{
		Code:    "DUPLICATE_BONUS",
		Message: "bonus already granted for this topup",
	}
	// ErrPartialCreditFailure means the wallet-side write succeeded but
	// the paired bonus write did not. The gap is closed later by the
	// reconciliation job.
	ErrPartialCreditFailure = &DomainError{
		Code:    "PARTIAL_CREDIT_FAILURE",
		Message: "topup recorded but bonus credit failed",
	}
	// ErrPartialReconciliation means the balance snapshot step failed
	// after a backfilled bonus row was inserted; the row is deleted as
	// compensation and the item recorded as failed.
	ErrPartialReconciliation = &DomainError{
		Code:    "PARTIAL_RECONCILIATION",
		Message: "bonus backfill rolled back after snapshot failure",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
	}
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "ledger transaction not found",
	}
	ErrPackageNotFound = &DomainError{
		Code:    "PACKAGE_NOT_FOUND",
		Message: "topup package not found or inactive",
	}
	ErrInvalidStatusTransition = &DomainError{
		Code:    "INVALID_STATUS_TRANSITION",
		Message: "transaction status transition not permitted",
	}
)
