package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
)

// ConfigRepo reads the posting configuration tables. Methods run on the
// session handed in, so reads issued while a posting transaction holds a
// row lock share that transaction.
type ConfigRepo struct{}

func NewConfigRepo() *ConfigRepo {
	return &ConfigRepo{}
}

func (r *ConfigRepo) FindTransTypeMapping(ctx context.Context, db *gorm.DB, transType string) (*domain.CodeTransaction, error) {
	var m domain.CodeTransaction
	if err := db.WithContext(ctx).Where("trans_type = ?", transType).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ConfigRepo) LoadFieldMap(ctx context.Context, db *gorm.DB, sourceTable string) ([]domain.FieldMapping, error) {
	var rows []domain.FieldMapping
	err := db.WithContext(ctx).
		Where("source_table = ?", sourceTable).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ConfigRepo) LoadRules(ctx context.Context, db *gorm.DB, flagSetCode string) ([]domain.JournalRule, error) {
	var rules []domain.JournalRule
	err := db.WithContext(ctx).
		Where("fin_flag_set_code = ?", flagSetCode).
		Order("priority ASC, id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *ConfigRepo) LoadConditions(ctx context.Context, db *gorm.DB, ruleID int64) ([]domain.JournalRuleCondition, error) {
	var conds []domain.JournalRuleCondition
	err := db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Order("id ASC").
		Find(&conds).Error
	return conds, err
}

func (r *ConfigRepo) LoadRuleLines(ctx context.Context, db *gorm.DB, ruleID int64) ([]domain.JournalRuleLine, error) {
	var lines []domain.JournalRuleLine
	err := db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		// NULL line_no sorts last, then insertion order.
		Order("CASE WHEN line_no IS NULL THEN 1 ELSE 0 END, line_no ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *ConfigRepo) FindAccountResolver(ctx context.Context, db *gorm.DB, code string) (*domain.AccountResolver, error) {
	var res domain.AccountResolver
	if err := db.WithContext(ctx).Where("code = ?", code).First(&res).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ConfigRepo) FindAmountExpression(ctx context.Context, db *gorm.DB, code string) (*domain.AmountExpression, error) {
	var ae domain.AmountExpression
	if err := db.WithContext(ctx).Where("code = ?", code).First(&ae).Error; err != nil {
		return nil, err
	}
	return &ae, nil
}

// ---------------------------------------------------------

// JournalRepo persists journal output. Write methods run on the caller's
// tx so they commit or roll back with the posting.
type JournalRepo struct{}

func NewJournalRepo() *JournalRepo {
	return &JournalRepo{}
}

func (r *JournalRepo) CreateHeader(ctx context.Context, tx *gorm.DB, h *domain.JournalHeader) error {
	return tx.WithContext(ctx).Create(h).Error
}

func (r *JournalRepo) CreateLine(ctx context.Context, tx *gorm.DB, l *domain.JournalLine) error {
	return tx.WithContext(ctx).Create(l).Error
}

func (r *JournalRepo) DeleteJournal(ctx context.Context, tx *gorm.DB, headerID int64) error {
	// Lines first, then the header they hang off.
	if err := tx.WithContext(ctx).
		Where("fin_journal_header_id = ?", headerID).
		Delete(&domain.JournalLine{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Where("id = ?", headerID).
		Delete(&domain.JournalHeader{}).Error
}

func (r *JournalRepo) WritePostingLog(ctx context.Context, db *gorm.DB, entry *domain.PostingLog) error {
	return db.WithContext(ctx).Create(entry).Error
}
