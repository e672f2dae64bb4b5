package domain

import (
	"context"

	"gorm.io/gorm"
)

// ConfigRepository loads the posting configuration tables. Every method
// runs on the caller's session: the posting orchestrator passes its
// transaction so rule loads under a row lock share it, previews pass the
// pool handle.
type ConfigRepository interface {
	// FindTransTypeMapping returns the code_transaction row for transType,
	// or gorm.ErrRecordNotFound.
	FindTransTypeMapping(ctx context.Context, db *gorm.DB, transType string) (*CodeTransaction, error)

	// LoadFieldMap returns the canonical field mappings of sourceTable.
	LoadFieldMap(ctx context.Context, db *gorm.DB, sourceTable string) ([]FieldMapping, error)

	// LoadRules returns the rules of a flag set ordered by (priority, id).
	LoadRules(ctx context.Context, db *gorm.DB, flagSetCode string) ([]JournalRule, error)

	// LoadConditions returns the conditions of a rule.
	LoadConditions(ctx context.Context, db *gorm.DB, ruleID int64) ([]JournalRuleCondition, error)

	// LoadRuleLines returns a rule's lines ordered by line_no (NULLs
	// last) then id.
	LoadRuleLines(ctx context.Context, db *gorm.DB, ruleID int64) ([]JournalRuleLine, error)

	// FindAccountResolver returns the resolver with the given code, or
	// gorm.ErrRecordNotFound.
	FindAccountResolver(ctx context.Context, db *gorm.DB, code string) (*AccountResolver, error)

	// FindAmountExpression returns the named expression, or
	// gorm.ErrRecordNotFound.
	FindAmountExpression(ctx context.Context, db *gorm.DB, code string) (*AmountExpression, error)
}

// JournalRepository persists journal output. Writes take the caller's tx
// so header, lines, status update and success log commit atomically.
type JournalRepository interface {
	CreateHeader(ctx context.Context, tx *gorm.DB, h *JournalHeader) error
	CreateLine(ctx context.Context, tx *gorm.DB, l *JournalLine) error

	// DeleteJournal removes a header and its lines (force repost).
	DeleteJournal(ctx context.Context, tx *gorm.DB, headerID int64) error

	// WritePostingLog appends one audit row on the given session. Failure
	// logging passes a fresh session here so the entry survives the
	// rollback of the failed work.
	WritePostingLog(ctx context.Context, db *gorm.DB, entry *PostingLog) error
}
