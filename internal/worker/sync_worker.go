package worker

import (
	"context"
	"fmt"
	"time"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/log"
	"ledgerbot/internal/sheets"
)

const (
	// seenWindow covers broker redelivery after a lost ack.
	seenWindow = 24 * time.Hour
	seenMax    = 50_000
)

// SyncWorker mirrors ledger events into a spreadsheet.
type SyncWorker struct {
	writer sheets.LedgerWriter
	seen   *cache.LRUCache[struct{}]
	logger *log.Logger
}

func NewSyncWorker(writer sheets.LedgerWriter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		writer: writer,
		seen:   cache.NewLRUCache[struct{}](seenMax, seenWindow),
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Seen exposes the redelivery cache so the caller can register it with a
// cache.Manager.
func (w *SyncWorker) Seen() cache.Cleaner {
	return w.seen
}

// HandleLedgerEvent appends expense and reset rows. Other event types carry
// nothing the sheet mirrors. An event id is handled at most once while it
// stays in the redelivery cache; a failed append clears it so the requeued
// delivery is retried.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	key := ev.ID.String()
	if !w.seen.SetIfAbsent(key, struct{}{}) {
		w.logger.DebugContext(ctx, "Skipping redelivered event", log.FieldEventID, key)
		return nil
	}

	var (
		ref string
		err error
	)
	switch ev.Type {
	case amqp.EventExpenseRecorded:
		e, convErr := ev.Expense()
		if convErr != nil {
			return convErr
		}
		ref, err = w.writer.AppendExpense(ctx, e)
	case amqp.EventLedgerReset:
		ref, err = w.writer.AppendReset(ctx, ev.UserID, ev.OccurredAt)
	default:
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEventType, string(ev.Type))
		return nil
	}
	if err != nil {
		w.seen.Delete(key)
		return fmt.Errorf("mirror %s: %w", ev.Type, err)
	}

	w.logger.InfoContext(ctx, "Mirrored ledger event",
		log.FieldEventID, key,
		log.FieldEventType, string(ev.Type),
		log.FieldUserID, ev.UserID,
		"row", ref)
	return nil
}
