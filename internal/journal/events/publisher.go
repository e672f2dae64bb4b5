package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// JournalPosted is emitted after a posting transaction commits. Downstream
// consumers (reporting, notifications) subscribe to it; the engine never
// depends on delivery.
type JournalPosted struct {
	EventID     string          `json:"event_id"`
	SourceTable string          `json:"source_table"`
	SourceID    int64           `json:"source_id"`
	JournalID   int64           `json:"journal_id"`
	TransType   string          `json:"trans_type"`
	FlagSetCode string          `json:"flag_set_code"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	PostedAt    time.Time       `json:"posted_at"`
}

// Publisher pushes posting events to the outside world.
type Publisher interface {
	PublishJournalPosted(ctx context.Context, event JournalPosted) error
}

// Noop is wired when no broker is configured.
type Noop struct{}

func (Noop) PublishJournalPosted(context.Context, JournalPosted) error { return nil }
