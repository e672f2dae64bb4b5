package domain

import "strings"

// EntryType is the side of a journal line (D/C).
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// NormalizeEntryType maps the accepted spellings of a rule line's
// entry_type onto Debit/Credit. The ok result is false for anything else.
func NormalizeEntryType(raw string) (EntryType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBIT", "DR", "D":
		return Debit, true
	case "CREDIT", "CR", "C":
		return Credit, true
	}
	return "", false
}

// ConditionType gates a rule on flag membership.
type ConditionType string

const (
	ConditionRequired   ConditionType = "REQUIRED"
	ConditionNotAllowed ConditionType = "NOT_ALLOWED"
)

// ResolveMode selects the account resolution strategy of a resolver.
type ResolveMode string

const (
	ResolveStatic ResolveMode = "STATIC"
	ResolveField  ResolveMode = "FIELD"
	// Any other mode value is treated as ResolveExpression.
	ResolveExpression ResolveMode = "EXPRESSION"
)

// PostingLog statuses.
const (
	LogSuccess = "SUCCESS"
	LogFailed  = "FAILED"
)

const (
	// PostStatusPosted marks a source row that already carries a journal.
	PostStatusPosted = "POSTED"

	// FlagSetNonFinancial short-circuits posting: no rule, no journal.
	FlagSetNonFinancial = "FS_NON_FINANCIAL"

	// DefaultLedgerCode is stamped on headers when config names none.
	DefaultLedgerCode = "PRIMARY"
)

// TransTypeAliases are the column spellings of the transaction-type code
// across source tables, in precedence order. The alias is resolved once
// per table against the catalog, not per read.
var TransTypeAliases = []string{"TransType", "trans_type", "UITransType"}

// FlagColumnAliases are the explicit flag-bearing columns probed on a raw
// source row.
var FlagColumnAliases = []string{"fin_flags", "flag_codes", "flags"}

// FlagFieldPrefix marks canonical field codes whose truthy presence
// implies the flag named by the code itself.
const FlagFieldPrefix = "FLAG_"
