package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
)

// resolveFlagSetCode maps a transaction-type code to its flag set via
// code_transaction.
func (s *PostingService) resolveFlagSetCode(ctx context.Context, db *gorm.DB, transType string) (string, error) {
	m, err := s.config.FindTransTypeMapping(ctx, db, transType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.E(domain.KindUnmappedTransactionType, "transaction type %s has no flag set mapping", transType)
		}
		return "", err
	}
	if m.FinFlagSetCode == nil || *m.FinFlagSetCode == "" {
		return "", domain.E(domain.KindUnmappedTransactionType, "transaction type %s maps to an empty flag set", transType)
	}
	return *m.FinFlagSetCode, nil
}

// selectRule returns the first rule of the flag set, in (priority, id)
// order, whose conditions all hold against the present flags. Selection
// is deterministic: same flag set + same flags always picks the same
// rule.
func (s *PostingService) selectRule(ctx context.Context, db *gorm.DB, flagSetCode string, flags map[string]bool) (*domain.JournalRule, error) {
	rules, err := s.config.LoadRules(ctx, db, flagSetCode)
	if err != nil {
		return nil, err
	}

	for i := range rules {
		rule := &rules[i]
		conds, err := s.config.LoadConditions(ctx, db, rule.ID)
		if err != nil {
			return nil, err
		}
		if conditionsHold(conds, flags) {
			return rule, nil
		}
	}

	return nil, domain.E(domain.KindNoMatchingRule,
		"no rule of flag set %s matches the transaction's flags", flagSetCode)
}

func conditionsHold(conds []domain.JournalRuleCondition, flags map[string]bool) bool {
	for _, c := range conds {
		// A condition without a flag code is vacuously true.
		if c.FlagCode == nil || *c.FlagCode == "" {
			continue
		}
		present := flags[*c.FlagCode]
		switch c.ConditionType {
		case domain.ConditionRequired:
			if !present {
				return false
			}
		case domain.ConditionNotAllowed:
			if present {
				return false
			}
		}
	}
	return true
}
