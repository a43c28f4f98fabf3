package notifier

import (
	"context"
	"log"
)

// SummaryRefresher is anything that can re-derive a user's balances
// from the log when told the ledger changed.
type SummaryRefresher interface {
	RefreshSummary(ctx context.Context, userID uint) error
}

// Listen consumes change events until the channel closes, re-invoking
// the balance derivation for each affected user. Refresh failures are
// logged and skipped; the next signal for that user retries naturally.
func Listen(ctx context.Context, events <-chan Event, refresher SummaryRefresher) {
	for ev := range events {
		if err := refresher.RefreshSummary(ctx, ev.UserID); err != nil {
			log.Printf("notifier: summary refresh failed for user %d (%s): %v", ev.UserID, ev.Table, err)
		}
	}
}
