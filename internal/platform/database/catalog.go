package database

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"
)

var (
	// ErrInvalidIdentifier rejects table/column names outside [A-Za-z0-9_]+.
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
	// ErrNoInsertableColumns means no key of the payload matched a real column.
	ErrNoInsertableColumns = errors.New("no insertable columns")
)

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateIdentifier trims and whitelists an identifier before it is ever
// interpolated into SQL. Everything the engine touches by name goes
// through here.
func ValidateIdentifier(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if !identifierRe.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return trimmed, nil
}

// Catalog caches column sets per table and builds column-filtered generic
// writes on top of them. It is constructed once at wiring time and shared
// by all callers; reads are lock-protected and the cache lives until
// Invalidate is called (a schema migration requires Invalidate or a
// restart).
type Catalog struct {
	db      *gorm.DB
	mu      sync.RWMutex
	columns map[string]map[string]bool
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{
		db:      db,
		columns: make(map[string]map[string]bool),
	}
}

// ColumnsOf returns the memoized column set of table, fetching it from
// catalog metadata on first use.
func (c *Catalog) ColumnsOf(table string) (map[string]bool, error) {
	safe, err := ValidateIdentifier(table)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	cols, ok := c.columns[safe]
	c.mu.RUnlock()
	if ok {
		return cols, nil
	}

	types, err := c.db.Migrator().ColumnTypes(safe)
	if err != nil {
		return nil, fmt.Errorf("load columns of %s: %w", safe, err)
	}
	cols = make(map[string]bool, len(types))
	for _, t := range types {
		cols[t.Name()] = true
	}

	c.mu.Lock()
	c.columns[safe] = cols
	c.mu.Unlock()
	return cols, nil
}

// HasColumn reports whether table has a column named col.
func (c *Catalog) HasColumn(table, col string) (bool, error) {
	cols, err := c.ColumnsOf(table)
	if err != nil {
		return false, err
	}
	return cols[col], nil
}

// Invalidate drops the cached column set of table.
func (c *Catalog) Invalidate(table string) {
	c.mu.Lock()
	delete(c.columns, strings.TrimSpace(table))
	c.mu.Unlock()
}

// filter keeps only keys that are real columns of table. Stray payload
// keys are dropped rather than failing the write.
func (c *Catalog) filter(table string, data map[string]any) (map[string]any, error) {
	cols, err := c.ColumnsOf(table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if cols[k] {
			out[k] = v
		}
	}
	return out, nil
}

// InsertRow inserts a column-filtered payload into table and returns the
// generated id. The write runs on tx so it participates in the caller's
// transaction.
func (c *Catalog) InsertRow(tx *gorm.DB, table string, data map[string]any) (int64, error) {
	safe, err := ValidateIdentifier(table)
	if err != nil {
		return 0, err
	}
	filtered, err := c.filter(safe, data)
	if err != nil {
		return 0, err
	}
	if len(filtered) == 0 {
		return 0, fmt.Errorf("%w: table %s", ErrNoInsertableColumns, safe)
	}

	// Deterministic column order keeps generated SQL stable.
	keys := make([]string, 0, len(filtered))
	for k := range filtered {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	placeholders := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, filtered[k])
		placeholders = append(placeholders, "?")
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		safe, strings.Join(keys, ", "), strings.Join(placeholders, ", "))

	var id int64
	if tx.Dialector.Name() == "postgres" {
		if err := tx.Raw(insert+" RETURNING id", args...).Scan(&id).Error; err != nil {
			return 0, err
		}
		return id, nil
	}
	if err := tx.Exec(insert, args...).Error; err != nil {
		return 0, err
	}
	if err := tx.Raw("SELECT last_insert_rowid()").Scan(&id).Error; err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateRowByID applies a column-filtered update to one row of table and
// returns the number of rows touched.
func (c *Catalog) UpdateRowByID(tx *gorm.DB, table string, id int64, data map[string]any) (int64, error) {
	safe, err := ValidateIdentifier(table)
	if err != nil {
		return 0, err
	}
	filtered, err := c.filter(safe, data)
	if err != nil {
		return 0, err
	}
	if len(filtered) == 0 {
		return 0, nil
	}

	result := tx.Table(safe).Where("id = ?", id).Updates(filtered)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
