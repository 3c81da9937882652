package formula

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/efp"
)

// SyntaxError reports a malformed formula.
type SyntaxError struct {
	Formula string
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q: %s", e.Formula, e.Msg)
}

var refPattern = regexp.MustCompile(`^(\$?)([A-Za-z]+)(\$?)([0-9]+)$`)

// Parse parses formula text entered at base. A leading "=" is optional.
func Parse(text string, base CellID) (Node, error) {
	src := strings.TrimSpace(text)
	src = strings.TrimSpace(strings.TrimPrefix(src, "="))
	if src == "" {
		return nil, &SyntaxError{Formula: text, Msg: "empty formula"}
	}

	tokens, err := tokenize(src)
	if err != nil {
		return nil, &SyntaxError{Formula: text, Msg: err.Error()}
	}

	p := &parser{text: text, tokens: tokens, base: base}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		return nil, p.errorf("unexpected %q", t.TValue)
	}
	return n, nil
}

// tokenize runs the efp tokenizer, dropping whitespace tokens. efp is
// written for well-formed spreadsheet input, so a panic on hostile input is
// turned into an error.
func tokenize(src string) (tokens []efp.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cannot tokenize: %v", r)
		}
	}()

	ps := efp.ExcelParser()
	for _, t := range ps.Parse(src) {
		if t.TType == efp.TokenTypeWhitespace {
			continue
		}
		tokens = append(tokens, t)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens")
	}
	return tokens, nil
}

type parser struct {
	text   string
	tokens []efp.Token
	pos    int
	base   CellID
}

func (p *parser) peek() (efp.Token, bool) {
	if p.pos >= len(p.tokens) {
		return efp.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (efp.Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Formula: p.text, Msg: fmt.Sprintf(format, args...)}
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (Node, error) {
	return p.binary(p.term, "+", "-")
}

// term := unary (('*'|'/') unary)*
func (p *parser) term() (Node, error) {
	return p.binary(p.unary, "*", "/")
}

func (p *parser) binary(operand func() (Node, error), ops ...string) (Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.TType != efp.TokenTypeOperatorInfix || !contains(ops, t.TValue) {
			return left, nil
		}
		p.pos++
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &App{Fn: t.TValue, Args: []Node{left, right}}
	}
}

// unary := ('-'|'+') unary | primary
func (p *parser) unary() (Node, error) {
	t, ok := p.peek()
	if ok && t.TType == efp.TokenTypeOperatorPrefix {
		p.pos++
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		switch t.TValue {
		case "-":
			return &App{Fn: "-", Args: []Node{operand}}, nil
		case "+":
			return operand, nil
		}
		return nil, p.errorf("unsupported prefix operator %q", t.TValue)
	}
	return p.primary()
}

// primary := number | ref | fn '(' args ')' | '(' expr ')'
func (p *parser) primary() (Node, error) {
	t, ok := p.next()
	if !ok {
		return nil, p.errorf("unexpected end of formula")
	}

	switch {
	case t.TType == efp.TokenTypeOperand && t.TSubType == efp.TokenSubTypeNumber:
		v, err := strconv.ParseFloat(t.TValue, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", t.TValue)
		}
		return &Number{Value: v}, nil

	case t.TType == efp.TokenTypeOperand && t.TSubType == efp.TokenSubTypeRange:
		return p.ref(t.TValue)

	case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStart:
		return p.call(strings.ToLower(strings.TrimSuffix(t.TValue, "(")))

	case t.TType == efp.TokenTypeSubexpression && t.TSubType == efp.TokenSubTypeStart:
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if !p.accept(efp.TokenTypeSubexpression, efp.TokenSubTypeStop) {
			return nil, p.errorf("missing )")
		}
		return n, nil

	case t.TType == efp.TokenTypeOperand:
		return nil, p.errorf("unsupported operand %q", t.TValue)
	}

	return nil, p.errorf("unexpected %q", t.TValue)
}

func (p *parser) call(fn string) (Node, error) {
	if !isFunction(fn) {
		return nil, p.errorf("unknown function %q", fn)
	}
	if p.accept(efp.TokenTypeFunction, efp.TokenSubTypeStop) {
		return nil, p.errorf("%s needs at least one argument", fn)
	}

	app := &App{Fn: fn}
	for {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		app.Args = append(app.Args, arg)

		if p.accept(efp.TokenTypeFunction, efp.TokenSubTypeStop) {
			return app, nil
		}
		if t, ok := p.next(); !ok || t.TType != efp.TokenTypeArgument {
			return nil, p.errorf("expected , or ) in %s(...)", fn)
		}
	}
}

func (p *parser) accept(typ, subType string) bool {
	t, ok := p.peek()
	if !ok || t.TType != typ || t.TSubType != subType {
		return false
	}
	p.pos++
	return true
}

func (p *parser) ref(text string) (Node, error) {
	m := refPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, p.errorf("invalid reference %q", text)
	}
	id, err := ParseCellID(m[2] + m[4])
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	return &Ref{
		Col: axis(m[1] == "$", id.Col, p.base.Col),
		Row: axis(m[3] == "$", id.Row, p.base.Row),
	}, nil
}

func axis(abs bool, index, base int) Axis {
	if abs {
		return Axis{Abs: true, N: index}
	}
	return Axis{N: index - base}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
