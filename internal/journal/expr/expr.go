// Package expr implements the posting engine's expression sub-language.
//
// Expressions come from configuration tables (amount expressions, account
// resolvers, dimension expressions) and are evaluated against a read-only
// context of the raw source row (txn.*) and the canonical financial
// fields (fields.*). The language is a closed grammar parsed into an AST
// and interpreted in-process: arithmetic, comparisons, logical operators,
// a ternary, and a fixed set of math functions. Configuration content is
// never executed as code and evaluation performs no I/O.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Context is the read-only evaluation scope.
type Context struct {
	Txn    map[string]any
	Fields map[string]any
}

// ParseError reports malformed expression syntax. Runtime oddities (bad
// numbers, unknown fields, division by zero) are not errors; they degrade
// to zero/null per the engine's leniency rule.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expression syntax error at offset %d: %s", e.Pos, e.Msg)
}

// Eval parses and evaluates src against ctx. A blank src evaluates to the
// number 0. Only malformed syntax returns an error.
func Eval(src string, ctx Context) (any, error) {
	if strings.TrimSpace(src) == "" {
		return float64(0), nil
	}
	node, err := parse(src)
	if err != nil {
		return nil, err
	}
	return node.eval(&ctx), nil
}

// EvalNumber evaluates src and coerces the result to a number; anything
// non-numeric becomes 0.
func EvalNumber(src string, ctx Context) (float64, error) {
	v, err := Eval(src, ctx)
	if err != nil {
		return 0, err
	}
	n, _ := Number(v)
	return n, nil
}

// Number coerces v to a float64. The bool result reports whether the
// coercion was clean; the value is 0 when it was not.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case []byte:
		return parseNumber(string(x))
	case string:
		return parseNumber(x)
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Text renders v as a string. Integral floats drop their fraction so a
// numeric account expression yields "1001", not "1001.000000".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return fmt.Sprintf("%v", v)
}

// Truthy reports the boolean reading of v: non-zero, non-empty, or true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return false
		}
		if n, ok := parseNumber(s); ok {
			return n != 0
		}
		return !strings.EqualFold(s, "false") && !strings.EqualFold(s, "null")
	case []byte:
		return Truthy(string(x))
	}
	if n, ok := Number(v); ok {
		return n != 0
	}
	return v != nil
}
