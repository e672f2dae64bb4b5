package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/journal/expr"
)

// balanceTolerance is the allowed |Σdebit − Σcredit| of an assembled
// journal. Amounts are decimals, so any real drift is a configuration
// bug; the tolerance is a ceiling, not a rounding crutch.
var balanceTolerance = decimal.New(1, -6)

// Preview is a fully assembled journal that has not touched storage.
type Preview struct {
	SourceTable  string              `json:"source_table"`
	SourceID     int64               `json:"source_id"`
	Row          map[string]any      `json:"row"`
	TransType    string              `json:"trans_type"`
	FlagSetCode  string              `json:"flag_set_code"`
	Fields       map[string]any      `json:"fields"`
	Flags        []string            `json:"flags"`
	NonFinancial bool                `json:"non_financial"`
	Rule         *domain.JournalRule `json:"rule,omitempty"`
	Lines        []ResolvedLine      `json:"lines"`
	TotalDebit   decimal.Decimal     `json:"total_debit"`
	TotalCredit  decimal.Decimal     `json:"total_credit"`
}

// PostingStatus is the source row's current posting state, returned with
// read-only previews.
type PostingStatus struct {
	FinPostStatus string     `json:"fin_post_status"`
	FinJournalID  *int64     `json:"fin_journal_id"`
	FinPostedAt   *time.Time `json:"fin_posted_at"`
}

// PreviewResult is the API-facing preview payload.
type PreviewResult struct {
	Preview
	Status PostingStatus `json:"status"`
}

// assemblePreview builds a Preview for one source row: flag set
// resolution, field context, flag derivation, rule selection, line
// resolution and the balance check. No storage is mutated.
func (s *PostingService) assemblePreview(ctx context.Context, tx *gorm.DB, table string, id int64, forUpdate bool) (*Preview, error) {
	row, err := s.fetchSourceRow(ctx, tx, table, id, forUpdate)
	if err != nil {
		return nil, err
	}
	return s.previewRow(ctx, tx, table, id, row)
}

// previewRow assembles the preview from an already fetched (possibly
// locked) row.
func (s *PostingService) previewRow(ctx context.Context, db *gorm.DB, table string, id int64, row map[string]any) (*Preview, error) {
	transType, err := s.transTypeOf(table, row)
	if err != nil {
		return nil, err
	}

	flagSetCode, err := s.resolveFlagSetCode(ctx, db, transType)
	if err != nil {
		return nil, err
	}

	pv := &Preview{
		SourceTable: table,
		SourceID:    id,
		Row:         row,
		TransType:   transType,
		FlagSetCode: flagSetCode,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}

	// Non-financial transactions never produce a journal.
	if flagSetCode == domain.FlagSetNonFinancial {
		pv.NonFinancial = true
		return pv, nil
	}

	fields, err := s.buildFieldContext(ctx, db, table, row)
	if err != nil {
		return nil, err
	}
	pv.Fields = fields

	flags := deriveFlags(row, fields)
	pv.Flags = sortedFlags(flags)

	rule, err := s.selectRule(ctx, db, flagSetCode, flags)
	if err != nil {
		return nil, err
	}
	pv.Rule = rule

	ruleLines, err := s.config.LoadRuleLines(ctx, db, rule.ID)
	if err != nil {
		return nil, err
	}
	if len(ruleLines) == 0 {
		return nil, domain.E(domain.KindRuleHasNoLines, "rule %d has no lines", rule.ID)
	}

	ectx := expr.Context{Txn: row, Fields: fields}
	lines, totalDebit, totalCredit, err := s.resolveLines(ctx, db, ruleLines, ectx)
	if err != nil {
		return nil, err
	}
	pv.Lines = lines
	pv.TotalDebit = totalDebit
	pv.TotalCredit = totalCredit

	if totalDebit.Sub(totalCredit).Abs().GreaterThan(balanceTolerance) {
		return nil, domain.E(domain.KindJournalImbalance,
			"journal does not balance: debit=%s credit=%s", totalDebit, totalCredit)
	}

	return pv, nil
}

// PreviewSingleTransaction assembles a preview without locking or
// mutating anything; it may observe a row mid-post, which is acceptable
// for an advisory read.
func (s *PostingService) PreviewSingleTransaction(ctx context.Context, table string, id int64) (*PreviewResult, error) {
	pv, err := s.assemblePreview(ctx, s.db, table, id, false)
	if err != nil {
		return nil, err
	}

	status := PostingStatus{FinPostStatus: rowString(pv.Row, "fin_post_status")}
	if jid, ok := rowInt64(pv.Row, "fin_journal_id"); ok {
		status.FinJournalID = &jid
	}
	if at, ok := rowTime(pv.Row, "fin_posted_at"); ok {
		status.FinPostedAt = &at
	}

	return &PreviewResult{Preview: *pv, Status: status}, nil
}

func sortedFlags(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for f := range flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
