package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/journal/events"
	"github.com/zlin640/finpost/backend/internal/platform/database"
)

// PostingService is the rule-driven journal posting engine. It is
// stateless apart from read-mostly caches (column sets via the catalog,
// trans-type alias columns); concurrency comes from callers sharing the
// pool.
type PostingService struct {
	db         *gorm.DB
	catalog    *database.Catalog
	config     domain.ConfigRepository
	journal    domain.JournalRepository
	publisher  events.Publisher
	logger     *zap.Logger
	ledgerCode string

	// trans-type column per source table, resolved once (alias probing
	// happens at first use, not on every read).
	aliasMu       sync.RWMutex
	transTypeCols map[string]string
}

func NewPostingService(
	db *gorm.DB,
	catalog *database.Catalog,
	config domain.ConfigRepository,
	journal domain.JournalRepository,
	publisher events.Publisher,
	logger *zap.Logger,
	ledgerCode string,
) *PostingService {
	if ledgerCode == "" {
		ledgerCode = domain.DefaultLedgerCode
	}
	return &PostingService{
		db:            db,
		catalog:       catalog,
		config:        config,
		journal:       journal,
		publisher:     publisher,
		logger:        logger,
		ledgerCode:    ledgerCode,
		transTypeCols: make(map[string]string),
	}
}

// fetchSourceRow reads one row of an arbitrary source table as a map.
// With forUpdate the row is locked for the lifetime of tx, serializing
// concurrent posting of the same row (dialects without FOR UPDATE rely on
// their own write locking).
func (s *PostingService) fetchSourceRow(ctx context.Context, tx *gorm.DB, table string, id int64, forUpdate bool) (map[string]any, error) {
	safe, err := database.ValidateIdentifier(table)
	if err != nil {
		return nil, err
	}

	q := tx.WithContext(ctx).Table(safe).Where("id = ?", id)
	if forUpdate && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	row := map[string]any{}
	if err := q.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.E(domain.KindTransactionNotFound, "transaction %s/%d not found", safe, id)
		}
		return nil, err
	}
	return row, nil
}

// transTypeColumn returns the alias column carrying the transaction-type
// code for table, "" when the table has none. Resolved once per table.
func (s *PostingService) transTypeColumn(table string) (string, error) {
	s.aliasMu.RLock()
	col, ok := s.transTypeCols[table]
	s.aliasMu.RUnlock()
	if ok {
		return col, nil
	}

	cols, err := s.catalog.ColumnsOf(table)
	if err != nil {
		return "", err
	}
	col = ""
	for _, alias := range domain.TransTypeAliases {
		if cols[alias] {
			col = alias
			break
		}
	}

	s.aliasMu.Lock()
	s.transTypeCols[table] = col
	s.aliasMu.Unlock()
	return col, nil
}

// transTypeOf extracts the transaction-type code of a fetched row.
func (s *PostingService) transTypeOf(table string, row map[string]any) (string, error) {
	col, err := s.transTypeColumn(table)
	if err != nil {
		return "", err
	}
	if col == "" {
		return "", domain.E(domain.KindMissingTransType, "table %s has no transaction type column", table)
	}
	tt := rowString(row, col)
	if tt == "" {
		return "", domain.E(domain.KindMissingTransType, "row %s/%v has no transaction type", table, row["id"])
	}
	return tt, nil
}

func rowString(row map[string]any, col string) string {
	v, ok := row[col]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return ""
}

func rowInt64(row map[string]any, col string) (int64, bool) {
	v, ok := row[col]
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	}
	return 0, false
}

func rowTime(row map[string]any, col string) (time.Time, bool) {
	v, ok := row[col]
	if !ok || v == nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	return time.Time{}, false
}
