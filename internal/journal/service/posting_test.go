package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
)

func TestPostBalancedTransaction(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedSalesConfig(t, db)
	txDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	id := seedIncomeRow(t, db, &incomeTxn{
		TransType:       "SALE",
		Amount:          250.5,
		CompanyID:       7,
		TransactionDate: &txDate,
	})

	journalID, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	require.NotNil(t, journalID)

	var header domain.JournalHeader
	require.NoError(t, db.First(&header, *journalID).Error)
	assert.Equal(t, "transactions_income", header.SourceTable)
	assert.Equal(t, id, header.SourceID)
	assert.Equal(t, "SALE", header.TransType)
	assert.Equal(t, "FS_SALES", header.FinFlagSetCode)
	assert.Equal(t, "PRIMARY", header.LedgerCode)
	assert.Equal(t, txDate.Unix(), header.PostingDate.Unix(), "posting date comes from the source row")

	var lines []domain.JournalLine
	require.NoError(t, db.Where("fin_journal_header_id = ?", header.ID).Order("line_no ASC").Find(&lines).Error)
	require.Len(t, lines, 2)

	assert.Equal(t, 1, lines[0].LineNo)
	assert.Equal(t, "1001", lines[0].AccountCode)
	assert.True(t, lines[0].DebitAmount.Equal(dec("250.5")), "debit = %s", lines[0].DebitAmount)
	assert.True(t, lines[0].CreditAmount.IsZero())

	assert.Equal(t, 2, lines[1].LineNo)
	assert.Equal(t, "4000", lines[1].AccountCode)
	assert.True(t, lines[1].CreditAmount.Equal(dec("250.5")))
	assert.True(t, lines[1].DebitAmount.IsZero())

	var row incomeTxn
	require.NoError(t, db.First(&row, id).Error)
	require.NotNil(t, row.FinPostStatus)
	assert.Equal(t, domain.PostStatusPosted, *row.FinPostStatus)
	require.NotNil(t, row.FinJournalID)
	assert.Equal(t, header.ID, *row.FinJournalID)
	assert.NotNil(t, row.FinPostedAt)

	var logs []domain.PostingLog
	require.NoError(t, db.Where("source_table = ? AND source_id = ?", "transactions_income", id).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogSuccess, logs[0].Status)
}

func TestPostIsIdempotent(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedSalesConfig(t, db)
	id := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100})

	first, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)

	assert.EqualValues(t, 1, countOf(t, db, &domain.JournalHeader{}))
	assert.EqualValues(t, 2, countOf(t, db, &domain.JournalLine{}))

	var logs []domain.PostingLog
	require.NoError(t, db.Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.LogSuccess, logs[1].Status)
	require.NotNil(t, logs[1].Message)
	assert.Contains(t, *logs[1].Message, "Already posted")
}

func TestPostNonFinancialSkips(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedTransType(t, db, "NOTE", domain.FlagSetNonFinancial)
	id := seedIncomeRow(t, db, &incomeTxn{TransType: "NOTE", Amount: 50})

	journalID, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	assert.Nil(t, journalID)

	assert.EqualValues(t, 0, countOf(t, db, &domain.JournalHeader{}))

	var row incomeTxn
	require.NoError(t, db.First(&row, id).Error)
	assert.Nil(t, row.FinPostStatus, "skipped rows are never marked posted")

	var log domain.PostingLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, domain.LogSuccess, log.Status)
	require.NotNil(t, log.Message)
	assert.Contains(t, *log.Message, "non-financial")
}

func TestForceRepostReplacesJournal(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedSalesConfig(t, db)
	id := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100})

	first, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Amended source amount; a plain repost must not pick it up, a forced
	// one must.
	require.NoError(t, db.Model(&incomeTxn{}).Where("id = ?", id).Update("amount", 300).Error)

	unforced, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	assert.Equal(t, *first, *unforced)

	forced, err := svc.PostSingleTransaction(ctx, "transactions_income", id, true)
	require.NoError(t, err)
	require.NotNil(t, forced)

	assert.EqualValues(t, 1, countOf(t, db, &domain.JournalHeader{}), "old journal is gone")
	assert.EqualValues(t, 2, countOf(t, db, &domain.JournalLine{}))

	var lines []domain.JournalLine
	require.NoError(t, db.Where("fin_journal_header_id = ?", *forced).Order("line_no ASC").Find(&lines).Error)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].DebitAmount.Equal(dec("300")))
	assert.True(t, lines[1].CreditAmount.Equal(dec("300")))

	var row incomeTxn
	require.NoError(t, db.First(&row, id).Error)
	require.NotNil(t, row.FinJournalID)
	assert.Equal(t, *forced, *row.FinJournalID)
}

func TestForceRepostAfterNonFinancialRemap(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedSalesConfig(t, db)
	id := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100})

	first, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	require.NotNil(t, first)

	// SALE reclassified as non-financial after the fact; a forced repost
	// must tear the journal down and leave the row cleanly unposted, not
	// POSTED with a journal id pointing at nothing.
	require.NoError(t, db.Model(&domain.CodeTransaction{}).
		Where("trans_type = ?", "SALE").
		Update("fin_flag_set_code", domain.FlagSetNonFinancial).Error)

	journalID, err := svc.PostSingleTransaction(ctx, "transactions_income", id, true)
	require.NoError(t, err)
	assert.Nil(t, journalID)

	assert.EqualValues(t, 0, countOf(t, db, &domain.JournalHeader{}))
	assert.EqualValues(t, 0, countOf(t, db, &domain.JournalLine{}))

	var row incomeTxn
	require.NoError(t, db.First(&row, id).Error)
	assert.Nil(t, row.FinPostStatus)
	assert.Nil(t, row.FinJournalID)
	assert.Nil(t, row.FinPostedAt)

	// Nothing dangling: a later plain post skips again without error.
	again, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestPostImbalanceRollsBack(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedTransType(t, db, "SALE", "FS_SALES")
	seedFieldMap(t, db, "transactions_income", "amount", "TOTAL_AMOUNT")
	seedAmountExpression(t, db, "AE_TOTAL", "fields.TOTAL_AMOUNT")
	ruleID := seedRule(t, db, "FS_SALES", 10)
	seedLine(t, db, &domain.JournalRuleLine{
		RuleID:               ruleID,
		EntryType:            "DEBIT",
		AccountCode:          ptr("1001"),
		AmountExpressionCode: ptr("AE_TOTAL"),
	})

	id := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100})

	_, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.Error(t, err)
	assert.Equal(t, domain.KindJournalImbalance, domain.KindOf(err))
	assert.True(t, domain.IsBusiness(err))

	assert.EqualValues(t, 0, countOf(t, db, &domain.JournalHeader{}))
	assert.EqualValues(t, 0, countOf(t, db, &domain.JournalLine{}))

	var row incomeTxn
	require.NoError(t, db.First(&row, id).Error)
	assert.Nil(t, row.FinPostStatus)
	assert.Nil(t, row.FinJournalID)

	// The rollback does not eat the audit trail.
	var log domain.PostingLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, domain.LogFailed, log.Status)
	require.NotNil(t, log.Message)
	assert.Contains(t, *log.Message, "does not balance")
}

func TestZeroAmountLinesAreDropped(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	ruleID := seedSalesConfig(t, db)
	zero := dec("0")
	seedLine(t, db, &domain.JournalRuleLine{
		RuleID:      ruleID,
		LineNo:      ptr(3),
		EntryType:   "CR",
		AccountCode: ptr("4090"),
		FixedAmount: &zero,
	})

	id := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100})

	journalID, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	require.NotNil(t, journalID)

	var lines []domain.JournalLine
	require.NoError(t, db.Where("fin_journal_header_id = ?", *journalID).Find(&lines).Error)
	assert.Len(t, lines, 2, "the zero line never materializes")
	for _, line := range lines {
		assert.NotEqual(t, "4090", line.AccountCode)
	}
}

func TestPostFlagDrivenRuleSelection(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedSalesConfig(t, db)
	seedFieldMap(t, db, "transactions_income", "discount_flag", "FLAG_DISCOUNT")

	discountRule := seedRule(t, db, "FS_SALES", 5)
	seedCondition(t, db, discountRule, domain.ConditionRequired, ptr("FLAG_DISCOUNT"))
	seedLine(t, db, &domain.JournalRuleLine{
		RuleID:               discountRule,
		LineNo:               ptr(1),
		EntryType:            "DEBIT",
		AccountResolverCode:  ptr("AR_RECEIVABLE"),
		AmountExpressionCode: ptr("AE_TOTAL"),
	})
	seedLine(t, db, &domain.JournalRuleLine{
		RuleID:               discountRule,
		LineNo:               ptr(2),
		EntryType:            "CREDIT",
		AccountCode:          ptr("4100"),
		AmountExpressionCode: ptr("AE_TOTAL"),
	})

	plain := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100})
	discounted := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100, DiscountFlag: 1})

	creditAccount := func(id int64) string {
		journalID, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
		require.NoError(t, err)
		require.NotNil(t, journalID)
		var line domain.JournalLine
		require.NoError(t, db.Where("fin_journal_header_id = ? AND credit_amount > 0", *journalID).First(&line).Error)
		return line.AccountCode
	}

	assert.Equal(t, "4000", creditAccount(plain))
	assert.Equal(t, "4100", creditAccount(discounted))
}

func TestPostErrorKinds(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedTransType(t, db, "SALE", "FS_SALES")

	blank := seedIncomeRow(t, db, &incomeTxn{TransType: "", Amount: 10})
	unmapped := seedIncomeRow(t, db, &incomeTxn{TransType: "REFUND", Amount: 10})
	ruleless := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 10})

	_, err := svc.PostSingleTransaction(ctx, "transactions_income", blank, false)
	assert.Equal(t, domain.KindMissingTransType, domain.KindOf(err))

	_, err = svc.PostSingleTransaction(ctx, "transactions_income", unmapped, false)
	assert.Equal(t, domain.KindUnmappedTransactionType, domain.KindOf(err))

	_, err = svc.PostSingleTransaction(ctx, "transactions_income", ruleless, false)
	assert.Equal(t, domain.KindNoMatchingRule, domain.KindOf(err))

	_, err = svc.PostSingleTransaction(ctx, "transactions_income", 99999, false)
	assert.Equal(t, domain.KindTransactionNotFound, domain.KindOf(err))

	_, err = svc.PostSingleTransaction(ctx, "transactions_income; DROP TABLE x", 1, false)
	assert.Equal(t, domain.KindInvalidIdentifier, domain.KindOf(err))

	var failed int64
	require.NoError(t, db.Model(&domain.PostingLog{}).Where("status = ?", domain.LogFailed).Count(&failed).Error)
	assert.EqualValues(t, 4, failed, "every attempt that reached the engine leaves a FAILED row")
}

func TestPreviewIsReadOnly(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedSalesConfig(t, db)
	seedFieldMap(t, db, "transactions_income", "discount_flag", "FLAG_DISCOUNT")
	id := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 75.25, DiscountFlag: 1})

	result, err := svc.PreviewSingleTransaction(ctx, "transactions_income", id)
	require.NoError(t, err)

	assert.Equal(t, "SALE", result.TransType)
	assert.Equal(t, "FS_SALES", result.FlagSetCode)
	assert.False(t, result.NonFinancial)
	assert.Contains(t, result.Flags, "FLAG_DISCOUNT")
	assert.True(t, result.TotalDebit.Equal(dec("75.25")))
	assert.True(t, result.TotalCredit.Equal(dec("75.25")))
	require.Len(t, result.Lines, 2)
	assert.Equal(t, "", result.Status.FinPostStatus)
	assert.Nil(t, result.Status.FinJournalID)

	assert.EqualValues(t, 0, countOf(t, db, &domain.JournalHeader{}))
	assert.EqualValues(t, 0, countOf(t, db, &domain.JournalLine{}))
	assert.EqualValues(t, 0, countOf(t, db, &domain.PostingLog{}))
}

func TestPreviewShowsPostingStatus(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedSalesConfig(t, db)
	id := seedIncomeRow(t, db, &incomeTxn{TransType: "SALE", Amount: 100})

	journalID, err := svc.PostSingleTransaction(ctx, "transactions_income", id, false)
	require.NoError(t, err)
	require.NotNil(t, journalID)

	result, err := svc.PreviewSingleTransaction(ctx, "transactions_income", id)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusPosted, result.Status.FinPostStatus)
	require.NotNil(t, result.Status.FinJournalID)
	assert.Equal(t, *journalID, *result.Status.FinJournalID)
	assert.NotNil(t, result.Status.FinPostedAt)
}

func TestPreviewNonFinancial(t *testing.T) {
	svc, db := newTestEngine(t)
	ctx := context.Background()

	seedTransType(t, db, "NOTE", domain.FlagSetNonFinancial)
	id := seedIncomeRow(t, db, &incomeTxn{TransType: "NOTE"})

	result, err := svc.PreviewSingleTransaction(ctx, "transactions_income", id)
	require.NoError(t, err)
	assert.True(t, result.NonFinancial)
	assert.Empty(t, result.Lines)
	assert.True(t, result.TotalDebit.IsZero())
	assert.True(t, result.TotalCredit.IsZero())
}
