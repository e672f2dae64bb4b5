package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CodeTransaction maps a transaction-type code to its flag set.
// Table: code_transaction
type CodeTransaction struct {
	ID             int64   `gorm:"primaryKey;autoIncrement"`
	TransType      string  `gorm:"column:trans_type;uniqueIndex;type:varchar(32);not null"`
	FinFlagSetCode *string `gorm:"column:fin_flag_set_code;type:varchar(64)"`
}

func (CodeTransaction) TableName() string { return "code_transaction" }

// FieldMapping projects one raw column of a source table onto a canonical
// financial field code.
// Table: fin_transaction_field_map
type FieldMapping struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	SourceTable        string `gorm:"column:source_table;index;type:varchar(64);not null"`
	SourceField        string `gorm:"column:source_field;type:varchar(64)"`
	FinancialFieldCode string `gorm:"column:financial_field_code;type:varchar(64)"`
}

func (FieldMapping) TableName() string { return "fin_transaction_field_map" }

// JournalRule is one prioritized posting rule of a flag set.
// Table: fin_journal_rule
type JournalRule struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	FinFlagSetCode string `gorm:"column:fin_flag_set_code;index;type:varchar(64);not null"`
	Priority       int    `gorm:"column:priority;not null;default:0"`
}

func (JournalRule) TableName() string { return "fin_journal_rule" }

// JournalRuleCondition gates its rule on the presence or absence of a
// flag. A nil FlagCode is vacuously true.
// Table: fin_journal_rule_condition
type JournalRuleCondition struct {
	ID            int64         `gorm:"primaryKey;autoIncrement"`
	RuleID        int64         `gorm:"column:rule_id;index;not null"`
	ConditionType ConditionType `gorm:"column:condition_type;type:varchar(16);not null"`
	FlagCode      *string       `gorm:"column:flag_code;type:varchar(64)"`
}

func (JournalRuleCondition) TableName() string { return "fin_journal_rule_condition" }

// JournalRuleLine is the template of one output journal line.
// Table: fin_journal_rule_line
type JournalRuleLine struct {
	ID                   int64            `gorm:"primaryKey;autoIncrement"`
	RuleID               int64            `gorm:"column:rule_id;index;not null"`
	LineNo               *int             `gorm:"column:line_no"`
	EntryType            string           `gorm:"column:entry_type;type:varchar(8);not null"`
	AccountResolverCode  *string          `gorm:"column:account_resolver_code;type:varchar(64)"`
	AccountCode          *string          `gorm:"column:account_code;type:varchar(32)"`
	AmountExpressionCode *string          `gorm:"column:amount_expression_code;type:varchar(64)"`
	FixedAmount          *decimal.Decimal `gorm:"column:fixed_amount;type:decimal(20,4)"`
	DimensionTypeCode    *string          `gorm:"column:dimension_type_code;type:varchar(32)"`
	DimensionID          *string          `gorm:"column:dimension_id;type:varchar(64)"`
	DimensionFieldCode   *string          `gorm:"column:dimension_field_code;type:varchar(64)"`
	DimensionExpression  *string          `gorm:"column:dimension_expression;type:text"`
}

func (JournalRuleLine) TableName() string { return "fin_journal_rule_line" }

// AccountResolver is a configured strategy for computing an account code.
// Table: fin_account_resolver
type AccountResolver struct {
	ID              int64       `gorm:"primaryKey;autoIncrement"`
	Code            string      `gorm:"column:code;uniqueIndex;type:varchar(64);not null"`
	ResolveMode     ResolveMode `gorm:"column:resolve_mode;type:varchar(16);not null"`
	AccountCode     *string     `gorm:"column:account_code;type:varchar(32)"`
	SourceFieldCode *string     `gorm:"column:source_field_code;type:varchar(64)"`
	Expression      *string     `gorm:"column:expression;type:text"`
}

func (AccountResolver) TableName() string { return "fin_account_resolver" }

// AmountExpression is a named expression in the posting sub-language.
// Table: fin_amount_expression
type AmountExpression struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Code       string `gorm:"column:code;uniqueIndex;type:varchar(64);not null"`
	Expression string `gorm:"column:expression;type:text;not null"`
}

func (AmountExpression) TableName() string { return "fin_amount_expression" }

// JournalHeader is created exactly once per successfully posted source
// row (force-repost replaces the whole header/line set).
// Table: fin_journal_header
type JournalHeader struct {
	ID               int64     `gorm:"primaryKey;autoIncrement"`
	SourceTable      string    `gorm:"column:source_table;index:idx_journal_source;type:varchar(64);not null"`
	SourceID         int64     `gorm:"column:source_id;index:idx_journal_source;not null"`
	TransType        string    `gorm:"column:trans_type;type:varchar(32);not null"`
	FinJournalRuleID *int64    `gorm:"column:fin_journal_rule_id"`
	FinFlagSetCode   string    `gorm:"column:fin_flag_set_code;type:varchar(64);not null"`
	PostingDate      time.Time `gorm:"column:posting_date;not null"`
	LedgerCode       string    `gorm:"column:ledger_code;type:varchar(32);not null;default:'PRIMARY'"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (JournalHeader) TableName() string { return "fin_journal_header" }

// JournalLine is one persisted double-entry line. Exactly one of
// DebitAmount/CreditAmount is non-zero.
// Table: fin_journal_line
type JournalLine struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement"`
	FinJournalHeaderID int64           `gorm:"column:fin_journal_header_id;index;not null"`
	LineNo             int             `gorm:"column:line_no;not null"`
	AccountCode        string          `gorm:"column:account_code;type:varchar(32);not null"`
	DebitAmount        decimal.Decimal `gorm:"column:debit_amount;type:decimal(20,4);not null"`
	CreditAmount       decimal.Decimal `gorm:"column:credit_amount;type:decimal(20,4);not null"`
	DimensionTypeCode  *string         `gorm:"column:dimension_type_code;type:varchar(32)"`
	DimensionID        *string         `gorm:"column:dimension_id;type:varchar(64)"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
}

func (JournalLine) TableName() string { return "fin_journal_line" }

// PostingLog is the append-only audit trail of posting attempts. Rows are
// never updated or deleted. Message carries the outcome for both
// statuses: the failure cause on FAILED rows, a short note on SUCCESS.
// Table: fin_posting_log
type PostingLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	SourceTable string    `gorm:"column:source_table;type:varchar(64);not null"`
	SourceID    int64     `gorm:"column:source_id;not null"`
	Status      string    `gorm:"column:status;type:varchar(16);not null"`
	Message     *string   `gorm:"column:message;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (PostingLog) TableName() string { return "fin_posting_log" }
