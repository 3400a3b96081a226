package events

import (
	"context"

	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/log"
)

// LedgerHook adapts pub to ledger.WithCommitHook. Publish errors are logged.
func LedgerHook(pub Publisher, logger log.Logger) ledger.CommitHook {
	if logger == nil {
		logger = log.NewNop()
	}

	return func(ctx context.Context, receipt ledger.Receipt) {
		event := FromReceipt(receipt)

		if err := pub.Publish(ctx, event); err != nil {
			logger.Log(ctx, log.LevelError, "failed to publish ledger event",
				log.Stringer("event_id", event.ID),
				log.Stringer("receipt_id", receipt.ID),
				log.Err(err))

			return
		}

		logger.Log(ctx, log.LevelDebug, "ledger event published",
			log.Stringer("event_id", event.ID),
			log.Stringer("receipt_id", receipt.ID))
	}
}
