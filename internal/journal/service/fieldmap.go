package service

import (
	"context"

	"gorm.io/gorm"
)

// buildFieldContext projects a raw row onto the canonical financial field
// codes configured for its table. Mapping rows with a blank side or a
// source field the row does not carry are skipped; sparse configuration
// is tolerated, not fatal.
func (s *PostingService) buildFieldContext(ctx context.Context, db *gorm.DB, table string, row map[string]any) (map[string]any, error) {
	mappings, err := s.config.LoadFieldMap(ctx, db, table)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(mappings))
	for _, m := range mappings {
		if m.SourceField == "" || m.FinancialFieldCode == "" {
			continue
		}
		v, ok := row[m.SourceField]
		if !ok {
			continue
		}
		fields[m.FinancialFieldCode] = v
	}
	return fields, nil
}
