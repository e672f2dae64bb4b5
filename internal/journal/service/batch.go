package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/platform/database"
)

// BatchRowResult is the outcome of one row's posting attempt.
type BatchRowResult struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	JournalID    *int64 `json:"journal_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	RunID   string           `json:"run_id"`
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Results []BatchRowResult `json:"results"`
}

// PostBatch posts every eligible unposted row of table, optionally
// bounded by date (transaction_date when the table has one, else
// created_at, else unbounded). Rows are processed sequentially in
// ascending id order; each attempt is its own transaction, so one row's
// failure never blocks the rest.
func (s *PostingService) PostBatch(ctx context.Context, table, dateFrom, dateTo string) (*BatchResult, error) {
	safe, err := database.ValidateIdentifier(table)
	if err != nil {
		return nil, err
	}

	dateCol, err := s.batchDateColumn(safe)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Table(safe).
		Where("fin_post_status IS NULL OR fin_post_status <> ?", domain.PostStatusPosted)
	if dateCol != "" {
		if dateFrom != "" {
			q = q.Where(dateCol+" >= ?", dateFrom)
		}
		if dateTo != "" {
			q = q.Where(dateCol+" <= ?", dateTo)
		}
	}

	var ids []int64
	if err := q.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	result := &BatchResult{
		RunID:   uuid.NewString(),
		Total:   len(ids),
		Results: make([]BatchRowResult, 0, len(ids)),
	}

	for _, id := range ids {
		journalID, err := s.PostSingleTransaction(ctx, safe, id, false)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, BatchRowResult{
				ID:           id,
				Status:       domain.LogFailed,
				ErrorMessage: err.Error(),
			})
			s.logger.Warn("batch row failed",
				zap.String("run_id", result.RunID),
				zap.String("table", safe),
				zap.Int64("id", id),
				zap.Error(err),
			)
			continue
		}
		result.Success++
		result.Results = append(result.Results, BatchRowResult{
			ID:        id,
			Status:    domain.LogSuccess,
			JournalID: journalID,
		})
	}

	s.logger.Info("batch run finished",
		zap.String("run_id", result.RunID),
		zap.String("table", safe),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// batchDateColumn picks the date bound column of table.
func (s *PostingService) batchDateColumn(table string) (string, error) {
	for _, col := range []string{"transaction_date", "created_at"} {
		ok, err := s.catalog.HasColumn(table, col)
		if err != nil {
			return "", err
		}
		if ok {
			return col, nil
		}
	}
	return "", nil
}
