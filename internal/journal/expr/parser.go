package expr

import (
	"math"
	"strconv"
)

// node is an AST node. eval never fails; runtime oddities degrade to
// zero/null instead of aborting a posting over a bad value.
type node interface {
	eval(ctx *Context) any
}

type numberLit float64

func (n numberLit) eval(*Context) any { return float64(n) }

type stringLit string

func (s stringLit) eval(*Context) any { return string(s) }

type boolLit bool

func (b boolLit) eval(*Context) any { return bool(b) }

type nullLit struct{}

func (nullLit) eval(*Context) any { return nil }

// fieldRef resolves txn.<name> / fields.<name>; deeper paths walk nested
// maps (JSON columns decoded upstream). Unknown names yield null.
type fieldRef struct {
	root string
	path []string
}

func (f *fieldRef) eval(ctx *Context) any {
	var scope map[string]any
	switch f.root {
	case "txn":
		scope = ctx.Txn
	case "fields":
		scope = ctx.Fields
	default:
		return nil
	}
	var v any = scope
	for _, name := range f.path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v, ok = m[name]
		if !ok {
			return nil
		}
	}
	return v
}

type call struct {
	name string
	args []node
}

func (c *call) eval(ctx *Context) any {
	nums := make([]float64, len(c.args))
	for i, a := range c.args {
		nums[i], _ = Number(a.eval(ctx))
	}
	switch c.name {
	case "abs":
		return math.Abs(nums[0])
	case "round":
		return math.Round(nums[0])
	case "floor":
		return math.Floor(nums[0])
	case "ceil":
		return math.Ceil(nums[0])
	case "pow":
		return math.Pow(nums[0], nums[1])
	case "min":
		out := nums[0]
		for _, n := range nums[1:] {
			out = math.Min(out, n)
		}
		return out
	case "max":
		out := nums[0]
		for _, n := range nums[1:] {
			out = math.Max(out, n)
		}
		return out
	}
	return nil
}

// arity per whitelisted function; -1 means one-or-more.
var funcs = map[string]int{
	"abs": 1, "round": 1, "floor": 1, "ceil": 1, "pow": 2, "min": -1, "max": -1,
}

type unary struct {
	op string
	x  node
}

func (u *unary) eval(ctx *Context) any {
	v := u.x.eval(ctx)
	switch u.op {
	case "-":
		n, _ := Number(v)
		return -n
	case "!":
		return !Truthy(v)
	}
	return nil
}

type binary struct {
	op   string
	l, r node
}

func (b *binary) eval(ctx *Context) any {
	switch b.op {
	case "&&":
		return Truthy(b.l.eval(ctx)) && Truthy(b.r.eval(ctx))
	case "||":
		return Truthy(b.l.eval(ctx)) || Truthy(b.r.eval(ctx))
	}

	lv, rv := b.l.eval(ctx), b.r.eval(ctx)
	ln, lok := Number(lv)
	rn, rok := Number(rv)
	numeric := lok && rok

	switch b.op {
	case "+":
		return ln + rn
	case "-":
		return ln - rn
	case "*":
		return ln * rn
	case "/":
		if rn == 0 {
			return float64(0)
		}
		return ln / rn
	case "%":
		if rn == 0 {
			return float64(0)
		}
		return math.Mod(ln, rn)
	case "==":
		if numeric {
			return ln == rn
		}
		return Text(lv) == Text(rv)
	case "!=":
		if numeric {
			return ln != rn
		}
		return Text(lv) != Text(rv)
	case "<":
		if numeric {
			return ln < rn
		}
		return Text(lv) < Text(rv)
	case "<=":
		if numeric {
			return ln <= rn
		}
		return Text(lv) <= Text(rv)
	case ">":
		if numeric {
			return ln > rn
		}
		return Text(lv) > Text(rv)
	case ">=":
		if numeric {
			return ln >= rn
		}
		return Text(lv) >= Text(rv)
	}
	return nil
}

type ternary struct {
	cond, then, alt node
}

func (t *ternary) eval(ctx *Context) any {
	if Truthy(t.cond.eval(ctx)) {
		return t.then.eval(ctx)
	}
	return t.alt.eval(ctx)
}

type parser struct {
	tokens []token
	pos    int
}

func parse(src string) (node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tkEOF {
		return nil, p.fail("unexpected trailing input")
	}
	return n, nil
}

func (p *parser) cur() token { return p.tokens[p.pos] }

func (p *parser) eatOp(op string) bool {
	if t := p.cur(); t.kind == tkOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) fail(msg string) error {
	return &ParseError{Pos: p.cur().pos, Msg: msg}
}

func (p *parser) expr() (node, error) {
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.eatOp("?") {
		return cond, nil
	}
	then, err := p.expr()
	if err != nil {
		return nil, err
	}
	if !p.eatOp(":") {
		return nil, p.fail("expected ':' in ternary")
	}
	alt, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ternary{cond: cond, then: then, alt: alt}, nil
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.eatOp("||") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &binary{op: "||", l: left, r: right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.cmp()
	if err != nil {
		return nil, err
	}
	for p.eatOp("&&") {
		right, err := p.cmp()
		if err != nil {
			return nil, err
		}
		left = &binary{op: "&&", l: left, r: right}
	}
	return left, nil
}

func (p *parser) cmp() (node, error) {
	left, err := p.add()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.eatOp(op) {
			right, err := p.add()
			if err != nil {
				return nil, err
			}
			return &binary{op: op, l: left, r: right}, nil
		}
	}
	return left, nil
}

func (p *parser) add() (node, error) {
	left, err := p.mul()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.eatOp("+"):
			op = "+"
		case p.eatOp("-"):
			op = "-"
		default:
			return left, nil
		}
		right, err := p.mul()
		if err != nil {
			return nil, err
		}
		left = &binary{op: op, l: left, r: right}
	}
}

func (p *parser) mul() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.eatOp("*"):
			op = "*"
		case p.eatOp("/"):
			op = "/"
		case p.eatOp("%"):
			op = "%"
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &binary{op: op, l: left, r: right}
	}
}

func (p *parser) unary() (node, error) {
	if p.eatOp("-") {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &unary{op: "-", x: x}, nil
	}
	if p.eatOp("!") {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &unary{op: "!", x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	t := p.cur()
	switch t.kind {
	case tkNumber:
		p.pos++
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &ParseError{Pos: t.pos, Msg: "bad number literal"}
		}
		return numberLit(f), nil

	case tkString:
		p.pos++
		return stringLit(t.text), nil

	case tkIdent:
		p.pos++
		switch t.text {
		case "true":
			return boolLit(true), nil
		case "false":
			return boolLit(false), nil
		case "null":
			return nullLit{}, nil
		}
		if p.cur().kind == tkOp && p.cur().text == "(" {
			return p.call(t)
		}
		return p.ref(t)

	case tkOp:
		if t.text == "(" {
			p.pos++
			inner, err := p.expr()
			if err != nil {
				return nil, err
			}
			if !p.eatOp(")") {
				return nil, p.fail("expected ')'")
			}
			return inner, nil
		}
	}
	return nil, p.fail("unexpected token")
}

// call parses a whitelisted function invocation.
func (p *parser) call(name token) (node, error) {
	arity, ok := funcs[name.text]
	if !ok {
		return nil, &ParseError{Pos: name.pos, Msg: "unknown function " + name.text}
	}
	p.pos++ // '('
	var args []node
	if !p.eatOp(")") {
		for {
			a, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.eatOp(",") {
				continue
			}
			if p.eatOp(")") {
				break
			}
			return nil, p.fail("expected ',' or ')'")
		}
	}
	if arity >= 0 && len(args) != arity {
		return nil, &ParseError{Pos: name.pos, Msg: "wrong argument count for " + name.text}
	}
	if arity < 0 && len(args) == 0 {
		return nil, &ParseError{Pos: name.pos, Msg: name.text + " needs at least one argument"}
	}
	return &call{name: name.text, args: args}, nil
}

// ref parses txn.<field> / fields.<field> accessors. Identifier roots
// outside the two context scopes are rejected at parse time.
func (p *parser) ref(root token) (node, error) {
	if root.text != "txn" && root.text != "fields" {
		return nil, &ParseError{Pos: root.pos, Msg: "unknown identifier " + root.text}
	}
	var path []string
	for p.eatOp(".") {
		t := p.cur()
		if t.kind != tkIdent {
			return nil, p.fail("expected field name after '.'")
		}
		p.pos++
		path = append(path, t.text)
	}
	if len(path) == 0 {
		return nil, &ParseError{Pos: root.pos, Msg: root.text + " must be followed by a field access"}
	}
	return &fieldRef{root: root.text, path: path}, nil
}
