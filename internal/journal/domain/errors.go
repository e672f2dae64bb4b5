package domain

import (
	"errors"
	"fmt"

	"github.com/zlin640/finpost/backend/internal/platform/database"
)

// Kind classifies an engine failure so callers can branch without
// matching message strings.
type Kind string

const (
	// Input/identifier errors, rejected before any transaction opens.
	KindInvalidIdentifier   Kind = "INVALID_IDENTIFIER"
	KindNoInsertableColumns Kind = "NO_INSERTABLE_COLUMNS"

	// Configuration/business errors: the data or config is wrong, not
	// the system.
	KindMissingTransType          Kind = "MISSING_TRANS_TYPE"
	KindUnmappedTransactionType   Kind = "UNMAPPED_TRANSACTION_TYPE"
	KindNoMatchingRule            Kind = "NO_MATCHING_RULE"
	KindRuleHasNoLines            Kind = "RULE_HAS_NO_LINES"
	KindResolverNotFound          Kind = "RESOLVER_NOT_FOUND"
	KindMissingStaticAccount      Kind = "MISSING_STATIC_ACCOUNT"
	KindEmptyFieldResolution      Kind = "EMPTY_FIELD_RESOLUTION"
	KindEmptyExpressionResolution Kind = "EMPTY_EXPRESSION_RESOLUTION"
	KindUnsupportedEntryType      Kind = "UNSUPPORTED_ENTRY_TYPE"
	KindInvalidExpression         Kind = "INVALID_EXPRESSION"
	KindJournalImbalance          Kind = "JOURNAL_IMBALANCE"
	KindTransactionNotFound       Kind = "TRANSACTION_NOT_FOUND"

	// KindSystem covers everything else (connection loss, SQL failures).
	KindSystem Kind = "SYSTEM"
)

// Error is the engine's tagged error type.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a tagged error.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err, mapping the catalog's sentinel errors
// into the taxonomy. Unknown errors are KindSystem.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, database.ErrInvalidIdentifier) {
		return KindInvalidIdentifier
	}
	if errors.Is(err, database.ErrNoInsertableColumns) {
		return KindNoInsertableColumns
	}
	return KindSystem
}

// IsBusiness reports whether err is a configuration/business error, as
// opposed to a system fault.
func IsBusiness(err error) bool {
	switch KindOf(err) {
	case KindMissingTransType, KindUnmappedTransactionType, KindNoMatchingRule,
		KindRuleHasNoLines, KindResolverNotFound, KindMissingStaticAccount,
		KindEmptyFieldResolution, KindEmptyExpressionResolution,
		KindUnsupportedEntryType, KindInvalidExpression,
		KindJournalImbalance, KindTransactionNotFound:
		return true
	}
	return false
}
