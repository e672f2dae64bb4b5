package expr

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkNumber
	tkString
	tkIdent
	tkOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// two-character operators, checked before single characters
var doubleOps = []string{"||", "&&", "==", "!=", "<=", ">="}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c >= '0' && c <= '9' || c == '.' && l.peekDigit():
			l.number()
		case c == '\'' || c == '"':
			if err := l.quoted(rune(c)); err != nil {
				return nil, err
			}
		case isIdentStart(rune(c)):
			l.ident()
		default:
			if err := l.operator(); err != nil {
				return nil, err
			}
		}
	}
	l.tokens = append(l.tokens, token{kind: tkEOF, pos: l.pos})
	return l.tokens, nil
}

func (l *lexer) peekDigit() bool {
	return l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9'
}

func (l *lexer) number() {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c >= '0' && c <= '9' {
			l.pos++
			continue
		}
		if c == '.' && !seenDot && l.peekDigit() {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	l.tokens = append(l.tokens, token{kind: tkNumber, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) quoted(quote rune) error {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if rune(c) == quote {
			l.pos++
			l.tokens = append(l.tokens, token{kind: tkString, text: sb.String(), pos: start})
			return nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			c = l.src[l.pos]
		}
		sb.WriteByte(c)
		l.pos++
	}
	return &ParseError{Pos: start, Msg: "unterminated string"}
}

func (l *lexer) ident() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.tokens = append(l.tokens, token{kind: tkIdent, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) operator() error {
	if l.pos+1 < len(l.src) {
		two := l.src[l.pos : l.pos+2]
		for _, op := range doubleOps {
			if two == op {
				l.tokens = append(l.tokens, token{kind: tkOp, text: op, pos: l.pos})
				l.pos += 2
				return nil
			}
		}
	}
	c := l.src[l.pos]
	if strings.IndexByte("+-*/%<>!?:,().", c) >= 0 {
		l.tokens = append(l.tokens, token{kind: tkOp, text: string(c), pos: l.pos})
		l.pos++
		return nil
	}
	return &ParseError{Pos: l.pos, Msg: "unexpected character " + strings.TrimSpace(string(c))}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
