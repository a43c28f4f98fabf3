// Package errors defines the domain error taxonomy for the ledger.
// Infrastructure failures are wrapped with %w and surfaced as-is;
// these values cover the business outcomes callers branch on.
package errors

import "fmt"

// DomainError is a business-level failure with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
