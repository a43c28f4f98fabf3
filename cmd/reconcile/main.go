// Package main is the standalone reconciliation batch. It scans the
// wallet ledger for successful topups whose paired bonus credit was
// never written and backfills them. Safe to run any number of times;
// takes no flags and reads store credentials from the environment.
package main

import (
	"context"
	"log"
	"os"

	"perka/internal/config"
	"perka/internal/repositories"
	"perka/internal/services/reconcile"
)

func main() {
	config.LoadEnv()

	if err := repositories.InitLedgerStore(); err != nil {
		log.Fatalf("failed to connect to ledger store: %v", err)
	}
	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("failed to get database instance: %v", err)
	}
	defer sqlDB.Close()

	ledgerRepo := repositories.NewWalletLedgerRepository(repositories.DB)
	bonusRepo := repositories.NewBonusLedgerRepository(repositories.DB)

	job := reconcile.NewJob(ledgerRepo, bonusRepo)
	summary, err := job.Run(context.Background())
	if err != nil {
		log.Printf("reconciliation aborted: %v", err)
		os.Exit(1)
	}

	log.Printf("reconciliation complete: processed=%d awarded=%d skipped=%d failed=%d total_awarded=%s",
		summary.Processed, summary.Awarded, summary.Skipped, summary.Failed, summary.TotalAwarded)
}
