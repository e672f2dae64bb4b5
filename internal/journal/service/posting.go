package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/journal/events"
)

// PostSingleTransaction converts one source row into a persisted journal,
// exactly once. The whole attempt runs in a single transaction with the
// source row locked: idempotency check, optional force-repost teardown,
// preview assembly, header/line persistence, source status update and a
// SUCCESS audit row commit together. On failure everything rolls back and
// a FAILED audit row is written in a second, independent transaction
// before the original error is returned.
//
// The returned id is nil for non-financial transactions.
func (s *PostingService) PostSingleTransaction(ctx context.Context, table string, id int64, forceRepost bool) (*int64, error) {
	// Resolve table metadata up front so no catalog queries run while the
	// row lock is held; later lookups hit the cache.
	if _, err := s.transTypeColumn(table); err != nil {
		return nil, err
	}

	var (
		journalID  *int64
		newJournal *domain.JournalHeader
		preview    *Preview
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := s.fetchSourceRow(ctx, tx, table, id, true)
		if err != nil {
			return err
		}

		existingID, hasJournal := rowInt64(row, "fin_journal_id")

		// Idempotent no-op: the row already carries a journal.
		if rowString(row, "fin_post_status") == domain.PostStatusPosted && hasJournal && !forceRepost {
			journalID = &existingID
			return s.logOutcome(ctx, tx, table, id, domain.LogSuccess,
				fmt.Sprintf("Already posted; journal %d", existingID))
		}

		if forceRepost && hasJournal {
			if err := s.journal.DeleteJournal(ctx, tx, existingID); err != nil {
				return err
			}
			// The old journal is gone; the row must not keep pointing at
			// it. If the rebuild below skips (the trans type was remapped
			// to non-financial) the row ends up cleanly unposted instead
			// of POSTED with a dangling journal id.
			if _, err := s.catalog.UpdateRowByID(tx, table, id, map[string]any{
				"fin_post_status": nil,
				"fin_journal_id":  nil,
				"fin_posted_at":   nil,
			}); err != nil {
				return err
			}
		}

		pv, err := s.previewRow(ctx, tx, table, id, row)
		if err != nil {
			return err
		}
		preview = pv

		if pv.NonFinancial {
			return s.logOutcome(ctx, tx, table, id, domain.LogSuccess,
				"Skipped non-financial transaction")
		}

		now := time.Now()
		postingDate := now
		if t, ok := rowTime(row, "transaction_date"); ok {
			postingDate = t
		}

		header := &domain.JournalHeader{
			SourceTable:      table,
			SourceID:         id,
			TransType:        pv.TransType,
			FinJournalRuleID: &pv.Rule.ID,
			FinFlagSetCode:   pv.FlagSetCode,
			PostingDate:      postingDate,
			LedgerCode:       s.ledgerCode,
			CreatedAt:        now,
		}
		if err := s.journal.CreateHeader(ctx, tx, header); err != nil {
			return err
		}

		for _, line := range pv.Lines {
			persisted := &domain.JournalLine{
				FinJournalHeaderID: header.ID,
				LineNo:             line.LineNo,
				AccountCode:        line.AccountCode,
				DebitAmount:        line.DebitAmount,
				CreditAmount:       line.CreditAmount,
				DimensionTypeCode:  line.DimensionTypeCode,
				DimensionID:        line.DimensionID,
				CreatedAt:          now,
			}
			if err := s.journal.CreateLine(ctx, tx, persisted); err != nil {
				return err
			}
		}

		affected, err := s.catalog.UpdateRowByID(tx, table, id, map[string]any{
			"fin_post_status": domain.PostStatusPosted,
			"fin_journal_id":  header.ID,
			"fin_posted_at":   now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("posting status update of %s/%d touched no rows", table, id)
		}

		if err := s.logOutcome(ctx, tx, table, id, domain.LogSuccess,
			fmt.Sprintf("Posted journal %d", header.ID)); err != nil {
			return err
		}

		journalID = &header.ID
		newJournal = header
		return nil
	})

	if err != nil {
		s.logFailure(ctx, table, id, err)
		return nil, err
	}

	if newJournal != nil {
		s.publish(ctx, newJournal, preview)
	}
	return journalID, nil
}

// logOutcome appends an audit row on the given session (the posting tx
// for success paths).
func (s *PostingService) logOutcome(ctx context.Context, db *gorm.DB, table string, id int64, status, message string) error {
	entry := &domain.PostingLog{
		SourceTable: table,
		SourceID:    id,
		Status:      status,
		Message:     &message,
		CreatedAt:   time.Now(),
	}
	return s.journal.WritePostingLog(ctx, db, entry)
}

// logFailure records a FAILED audit row after the main transaction rolled
// back. It runs on a fresh session so the entry survives the rollback;
// its own failure is swallowed so the original error is never masked.
func (s *PostingService) logFailure(ctx context.Context, table string, id int64, cause error) {
	if err := s.logOutcome(ctx, s.db, table, id, domain.LogFailed, cause.Error()); err != nil {
		s.logger.Warn("posting failure could not be logged",
			zap.String("table", table),
			zap.Int64("id", id),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	}
}

// publish emits the post-commit event. Best-effort: a broker outage never
// fails a committed posting.
func (s *PostingService) publish(ctx context.Context, header *domain.JournalHeader, pv *Preview) {
	event := events.JournalPosted{
		EventID:     uuid.NewString(),
		SourceTable: header.SourceTable,
		SourceID:    header.SourceID,
		JournalID:   header.ID,
		TransType:   header.TransType,
		FlagSetCode: header.FinFlagSetCode,
		TotalDebit:  pv.TotalDebit,
		TotalCredit: pv.TotalCredit,
		PostedAt:    header.CreatedAt,
	}
	if err := s.publisher.PublishJournalPosted(ctx, event); err != nil {
		s.logger.Warn("journal posted event not published",
			zap.Int64("journal_id", header.ID),
			zap.Error(err),
		)
	}
}
