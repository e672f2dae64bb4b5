package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zlin640/finpost/backend/internal/journal/adapter/repo"
	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/journal/events"
	"github.com/zlin640/finpost/backend/internal/platform/database"
)

// incomeTxn is the test stand-in for a caller-owned source table.
type incomeTxn struct {
	ID              int64      `gorm:"primaryKey;autoIncrement"`
	TransType       string     `gorm:"column:trans_type"`
	Amount          float64    `gorm:"column:amount"`
	CompanyID       int64      `gorm:"column:company_id"`
	DiscountFlag    int        `gorm:"column:discount_flag"`
	FinFlags        *string    `gorm:"column:fin_flags"`
	TransactionDate *time.Time `gorm:"column:transaction_date"`
	FinPostStatus   *string    `gorm:"column:fin_post_status"`
	FinJournalID    *int64     `gorm:"column:fin_journal_id"`
	FinPostedAt     *time.Time `gorm:"column:fin_posted_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
}

func (incomeTxn) TableName() string { return "transactions_income" }

// newTestEngine builds a posting service on an isolated in-memory sqlite
// database with every engine table migrated. A single pooled connection
// keeps the whole engine flow, transactions included, on one sqlite
// handle.
func newTestEngine(t *testing.T) (*PostingService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.CodeTransaction{},
		&domain.FieldMapping{},
		&domain.JournalRule{},
		&domain.JournalRuleCondition{},
		&domain.JournalRuleLine{},
		&domain.AccountResolver{},
		&domain.AmountExpression{},
		&domain.JournalHeader{},
		&domain.JournalLine{},
		&domain.PostingLog{},
		&incomeTxn{},
	))

	svc := NewPostingService(
		db,
		database.NewCatalog(db),
		repo.NewConfigRepo(),
		repo.NewJournalRepo(),
		events.Noop{},
		zap.NewNop(),
		"",
	)
	return svc, db
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedTransType maps a trans-type code to a flag set.
func seedTransType(t *testing.T, db *gorm.DB, transType, flagSet string) {
	t.Helper()
	require.NoError(t, db.Create(&domain.CodeTransaction{
		TransType:      transType,
		FinFlagSetCode: ptr(flagSet),
	}).Error)
}

func seedFieldMap(t *testing.T, db *gorm.DB, table, sourceField, code string) {
	t.Helper()
	require.NoError(t, db.Create(&domain.FieldMapping{
		SourceTable:        table,
		SourceField:        sourceField,
		FinancialFieldCode: code,
	}).Error)
}

func seedRule(t *testing.T, db *gorm.DB, flagSet string, priority int) int64 {
	t.Helper()
	rule := &domain.JournalRule{FinFlagSetCode: flagSet, Priority: priority}
	require.NoError(t, db.Create(rule).Error)
	return rule.ID
}

func seedCondition(t *testing.T, db *gorm.DB, ruleID int64, condType domain.ConditionType, flagCode *string) {
	t.Helper()
	require.NoError(t, db.Create(&domain.JournalRuleCondition{
		RuleID:        ruleID,
		ConditionType: condType,
		FlagCode:      flagCode,
	}).Error)
}

func seedLine(t *testing.T, db *gorm.DB, line *domain.JournalRuleLine) {
	t.Helper()
	require.NoError(t, db.Create(line).Error)
}

func seedResolver(t *testing.T, db *gorm.DB, r *domain.AccountResolver) {
	t.Helper()
	require.NoError(t, db.Create(r).Error)
}

func seedAmountExpression(t *testing.T, db *gorm.DB, code, expression string) {
	t.Helper()
	require.NoError(t, db.Create(&domain.AmountExpression{
		Code:       code,
		Expression: expression,
	}).Error)
}

// seedSalesConfig wires the standard happy path: SALE transactions map to
// FS_SALES with one balanced two-line rule (debit 1001 via a STATIC
// resolver, credit 4000 inline), both lines sized by the TOTAL_AMOUNT
// field.
func seedSalesConfig(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	seedTransType(t, db, "SALE", "FS_SALES")
	seedFieldMap(t, db, "transactions_income", "amount", "TOTAL_AMOUNT")
	seedFieldMap(t, db, "transactions_income", "company_id", "COMPANY")
	seedResolver(t, db, &domain.AccountResolver{
		Code:        "AR_RECEIVABLE",
		ResolveMode: domain.ResolveStatic,
		AccountCode: ptr("1001"),
	})
	seedAmountExpression(t, db, "AE_TOTAL", "fields.TOTAL_AMOUNT")

	ruleID := seedRule(t, db, "FS_SALES", 10)
	seedLine(t, db, &domain.JournalRuleLine{
		RuleID:               ruleID,
		LineNo:               ptr(1),
		EntryType:            "DEBIT",
		AccountResolverCode:  ptr("AR_RECEIVABLE"),
		AmountExpressionCode: ptr("AE_TOTAL"),
	})
	seedLine(t, db, &domain.JournalRuleLine{
		RuleID:               ruleID,
		LineNo:               ptr(2),
		EntryType:            "CREDIT",
		AccountCode:          ptr("4000"),
		AmountExpressionCode: ptr("AE_TOTAL"),
	})
	return ruleID
}

func seedIncomeRow(t *testing.T, db *gorm.DB, row *incomeTxn) int64 {
	t.Helper()
	require.NoError(t, db.Create(row).Error)
	return row.ID
}

func countOf(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
