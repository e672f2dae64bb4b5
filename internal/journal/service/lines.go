package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/journal/expr"
)

// ResolvedLine is one fully computed journal line of a preview. Exactly
// one of DebitAmount/CreditAmount is non-zero.
type ResolvedLine struct {
	LineNo            int              `json:"line_no"`
	EntryType         domain.EntryType `json:"entry_type"`
	AccountCode       string           `json:"account_code"`
	DebitAmount       decimal.Decimal  `json:"debit_amount"`
	CreditAmount      decimal.Decimal  `json:"credit_amount"`
	DimensionTypeCode *string          `json:"dimension_type_code,omitempty"`
	DimensionID       *string          `json:"dimension_id,omitempty"`
}

// resolveLines turns the selected rule's line templates into concrete
// journal lines and accumulates debit/credit totals. Lines whose amount
// resolves to exactly zero are dropped, not errors.
func (s *PostingService) resolveLines(ctx context.Context, db *gorm.DB, ruleLines []domain.JournalRuleLine, ectx expr.Context) ([]ResolvedLine, decimal.Decimal, decimal.Decimal, error) {
	var (
		out         []ResolvedLine
		totalDebit  = decimal.Zero
		totalCredit = decimal.Zero
	)

	for _, tpl := range ruleLines {
		entryType, ok := domain.NormalizeEntryType(tpl.EntryType)
		if !ok {
			return nil, decimal.Zero, decimal.Zero, domain.E(domain.KindUnsupportedEntryType,
				"rule line %d has unsupported entry type %q", tpl.ID, tpl.EntryType)
		}

		account, err := s.resolveAccount(ctx, db, &tpl, ectx)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}

		amount, err := s.resolveAmount(ctx, db, &tpl, ectx)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}
		if amount.IsZero() {
			continue
		}

		line := ResolvedLine{
			LineNo:            len(out) + 1,
			EntryType:         entryType,
			AccountCode:       account,
			DebitAmount:       decimal.Zero,
			CreditAmount:      decimal.Zero,
			DimensionTypeCode: tpl.DimensionTypeCode,
			DimensionID:       resolveDimension(&tpl, ectx),
		}
		if entryType == domain.Debit {
			line.DebitAmount = amount
			totalDebit = totalDebit.Add(amount)
		} else {
			line.CreditAmount = amount
			totalCredit = totalCredit.Add(amount)
		}
		out = append(out, line)
	}

	return out, totalDebit, totalCredit, nil
}

// resolveAmount evaluates the line's named amount expression, falling
// back to its fixed amount. The absolute value is used; direction comes
// from the entry type alone.
func (s *PostingService) resolveAmount(ctx context.Context, db *gorm.DB, tpl *domain.JournalRuleLine, ectx expr.Context) (decimal.Decimal, error) {
	if tpl.AmountExpressionCode != nil && *tpl.AmountExpressionCode != "" {
		ae, err := s.config.FindAmountExpression(ctx, db, *tpl.AmountExpressionCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return decimal.Zero, domain.E(domain.KindResolverNotFound,
					"amount expression %s not found", *tpl.AmountExpressionCode)
			}
			return decimal.Zero, err
		}
		n, err := expr.EvalNumber(ae.Expression, ectx)
		if err != nil {
			return decimal.Zero, domain.Wrap(domain.KindInvalidExpression, err,
				"amount expression %s", ae.Code)
		}
		return decimal.NewFromFloat(n).Abs(), nil
	}

	if tpl.FixedAmount != nil {
		return tpl.FixedAmount.Abs(), nil
	}
	return decimal.Zero, nil
}

// resolveAccount picks the line's account code: inline code first, then
// the named resolver's strategy.
func (s *PostingService) resolveAccount(ctx context.Context, db *gorm.DB, tpl *domain.JournalRuleLine, ectx expr.Context) (string, error) {
	if tpl.AccountCode != nil && strings.TrimSpace(*tpl.AccountCode) != "" {
		return strings.TrimSpace(*tpl.AccountCode), nil
	}

	code := ""
	if tpl.AccountResolverCode != nil {
		code = strings.TrimSpace(*tpl.AccountResolverCode)
	}
	if code == "" {
		return "", domain.E(domain.KindResolverNotFound,
			"rule line %d has neither an account code nor a resolver", tpl.ID)
	}

	resolver, err := s.config.FindAccountResolver(ctx, db, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.E(domain.KindResolverNotFound, "account resolver %s not found", code)
		}
		return "", err
	}

	switch resolver.ResolveMode {
	case domain.ResolveStatic:
		if resolver.AccountCode == nil || strings.TrimSpace(*resolver.AccountCode) == "" {
			return "", domain.E(domain.KindMissingStaticAccount,
				"resolver %s is STATIC but has no account code", resolver.Code)
		}
		return strings.TrimSpace(*resolver.AccountCode), nil

	case domain.ResolveField:
		field := ""
		if resolver.SourceFieldCode != nil {
			field = *resolver.SourceFieldCode
		}
		v, ok := ectx.Fields[field]
		if !ok || strings.TrimSpace(expr.Text(v)) == "" {
			return "", domain.E(domain.KindEmptyFieldResolution,
				"resolver %s: field %s is empty or undefined", resolver.Code, field)
		}
		return strings.TrimSpace(expr.Text(v)), nil

	default:
		// Every other mode is treated as EXPRESSION.
		expression := ""
		if resolver.Expression != nil {
			expression = *resolver.Expression
		}
		v, err := expr.Eval(expression, ectx)
		if err != nil {
			return "", domain.Wrap(domain.KindInvalidExpression, err,
				"account resolver %s", resolver.Code)
		}
		text := strings.TrimSpace(expr.Text(v))
		if text == "" || text == "0" {
			return "", domain.E(domain.KindEmptyExpressionResolution,
				"resolver %s: expression resolved to nothing", resolver.Code)
		}
		return text, nil
	}
}

// resolveDimension applies the optional analytical tag, in priority
// order: fixed id, named field, expression, none.
func resolveDimension(tpl *domain.JournalRuleLine, ectx expr.Context) *string {
	if tpl.DimensionID != nil && strings.TrimSpace(*tpl.DimensionID) != "" {
		v := strings.TrimSpace(*tpl.DimensionID)
		return &v
	}

	if tpl.DimensionFieldCode != nil && *tpl.DimensionFieldCode != "" {
		if v, ok := ectx.Fields[*tpl.DimensionFieldCode]; ok {
			if text := strings.TrimSpace(expr.Text(v)); text != "" {
				return &text
			}
		}
	}

	if tpl.DimensionExpression != nil && strings.TrimSpace(*tpl.DimensionExpression) != "" {
		// Dimension expressions share the leniency rule: a broken result
		// means no dimension, not a failed posting.
		if v, err := expr.Eval(*tpl.DimensionExpression, ectx); err == nil {
			if text := strings.TrimSpace(expr.Text(v)); text != "" && text != "0" {
				return &text
			}
		}
	}

	return nil
}
