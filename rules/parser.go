/*
parser.go - Rule text to typed tree

GRAMMAR (condition):
  expr       := andExpr { OR andExpr }
  andExpr    := primary { AND primary }
  primary    := "(" expr ")" | comparison
  comparison := VARIABLE OPERATOR value
  value      := NUMBER ["%"] | "quoted text" | WORD { WORD | NUMBER }

  AND / OR are case-insensitive; "&&" and "||" are accepted too.
  Bare multi-word values run until the next connective or ")" and keep
  their spacing as written:
    territory = West Coast AND sales_tier = Tier 1A
  A value that contains a double quote, a parenthesis or an operator
  character must be quoted. Apostrophes inside a word are fine
  (territory = O'Brien Region); a leading apostrophe opens a quote.

  Attainment literals: "110%" and 1.1 are the same ratio. A bare number
  above 10 is a percentage; bare numbers above 2 and up to 10 are
  rejected as ambiguous.

GRAMMAR (action):
  action := FUNCTION "(" NUMBER ["%"] ")"

ERRORS:
  Every failure is a *SyntaxError naming the field ("condition" or
  "action") so the editor can show it next to the input.
*/
package rules

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// PercentThreshold: a bare attainment literal above this is read as a
// percentage ("quota_attainment >= 100" means 100%).
var PercentThreshold = decimal.NewFromInt(10)

// RatioCeiling: the largest bare attainment literal read as a ratio.
// Bare literals between RatioCeiling and PercentThreshold need a "%".
var RatioCeiling = decimal.NewFromInt(2)

// =============================================================================
// LEXER
// =============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokNumber
	tokString
	tokOperator
	tokLParen
	tokRParen
	tokAnd
	tokOr
)

type token struct {
	kind tokenKind
	text string
	pos  int
	end  int
}

func lex(field, src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	emit := func(kind tokenKind, start, end int) {
		toks = append(toks, token{kind: kind, text: string(runes[start:end]), pos: start, end: end})
	}
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			emit(tokLParen, i, i+1)
			i++
		case r == ')':
			emit(tokRParen, i, i+1)
			i++
		case isConnective(runes, i):
			if r == '&' {
				emit(tokAnd, i, i+2)
			} else {
				emit(tokOr, i, i+2)
			}
			i += 2
		case r == '=' || r == '!' || r == '<' || r == '>':
			start := i
			i++
			if i < len(runes) && runes[i] == '=' {
				i++
			}
			if i-start == 1 && r == '!' {
				return nil, &SyntaxError{Field: field, Pos: start, Message: "unexpected '!'"}
			}
			emit(tokOperator, start, i)
		case r == '"' || r == '\'':
			quote := r
			start := i
			i++
			for i < len(runes) && runes[i] != quote {
				i++
			}
			if i >= len(runes) {
				return nil, &SyntaxError{Field: field, Pos: start, Message: "unterminated quoted value"}
			}
			toks = append(toks, token{kind: tokString, text: string(runes[start+1 : i]), pos: start, end: i + 1})
			i++
		case unicode.IsDigit(r) || r == '.' || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			if i < len(runes) && runes[i] == '%' {
				i++
			}
			if i < len(runes) && isWordRune(runes, start, i) && !isConnective(runes, i) {
				// "1A", "5th": a digit-led word, not a number
				i = wordEnd(runes, start, i)
				emit(tokWord, start, i)
				continue
			}
			emit(tokNumber, start, i)
		default:
			start := i
			i = wordEnd(runes, start, i)
			if i == start {
				return nil, &SyntaxError{Field: field, Pos: start, Message: fmt.Sprintf("unexpected character %q", r)}
			}
			word := string(runes[start:i])
			switch strings.ToUpper(word) {
			case "AND":
				emit(tokAnd, start, i)
			case "OR":
				emit(tokOr, start, i)
			default:
				emit(tokWord, start, i)
			}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(runes), end: len(runes)}), nil
}

func isConnective(runes []rune, i int) bool {
	if i+1 >= len(runes) {
		return false
	}
	return (runes[i] == '&' && runes[i+1] == '&') || (runes[i] == '|' && runes[i+1] == '|')
}

// wordEnd returns the index just past the word that started at start.
func wordEnd(runes []rune, start, i int) int {
	for i < len(runes) && isWordRune(runes, start, i) && !isConnective(runes, i) {
		i++
	}
	return i
}

// isWordRune reports whether runes[i] continues a word that began at
// start. An apostrophe opens a quoted value only at the start of a word,
// so "O'Brien" stays bare.
func isWordRune(runes []rune, start, i int) bool {
	r := runes[i]
	if unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '(', ')', '=', '!', '<', '>', '"':
		return false
	case '\'':
		return i > start
	}
	return true
}

// =============================================================================
// CONDITION PARSER
// =============================================================================

type parser struct {
	src  []rune
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// ParseCondition parses condition text into an expression tree.
func ParseCondition(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Field: FieldCondition, Message: "condition is required"}
	}
	toks, err := lex(FieldCondition, src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: []rune(src), toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Field: FieldCondition, Pos: t.pos, Message: fmt.Sprintf("unexpected %q", t.text)}
	}
	return expr, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: And, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	if t.kind == tokLParen {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Field: FieldCondition, Pos: closing.pos, Message: "missing ')'"}
		}
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	name := p.next()
	if name.kind != tokWord {
		return nil, &SyntaxError{Field: FieldCondition, Pos: name.pos, Message: "expected a variable name"}
	}
	v, ok := LookupVariable(name.text)
	if !ok {
		return nil, &SyntaxError{Field: FieldCondition, Pos: name.pos, Message: fmt.Sprintf("unknown variable %q", name.text)}
	}

	opTok := p.next()
	if opTok.kind != tokOperator {
		return nil, &SyntaxError{Field: FieldCondition, Pos: opTok.pos, Message: fmt.Sprintf("missing comparison operator after %q", name.text)}
	}
	op := Operator(opTok.text)
	if op == "==" {
		op = OpEq
	}

	raw, quoted, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{Var: v, Op: op}
	if v.IsNumeric() {
		if quoted {
			return nil, &SyntaxError{Field: FieldCondition, Pos: opTok.pos, Message: fmt.Sprintf("%s needs a number, got %q", v, raw)}
		}
		n, err := normalizeRatio(raw)
		if errors.Is(err, errAmbiguousRatio) {
			return nil, &SyntaxError{Field: FieldCondition, Pos: opTok.pos, Message: fmt.Sprintf("%s value %s is ambiguous: write %s%% for a percentage or a ratio up to %s", v, raw, raw, RatioCeiling)}
		}
		if err != nil {
			return nil, &SyntaxError{Field: FieldCondition, Pos: opTok.pos, Message: fmt.Sprintf("%s needs a number, got %q", v, raw)}
		}
		cmp.Number = n
		return cmp, nil
	}

	if op.IsOrdering() {
		return nil, &SyntaxError{Field: FieldCondition, Pos: opTok.pos, Message: fmt.Sprintf("%s only supports = and !=", v)}
	}
	cmp.Text = raw
	return cmp, nil
}

// parseValue returns the literal text and whether it was quoted.
func (p *parser) parseValue() (string, bool, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return t.text, true, nil
	case tokWord, tokNumber:
		last := t
		for k := p.peek().kind; k == tokWord || k == tokNumber; k = p.peek().kind {
			last = p.next()
		}
		// Spacing inside the value is kept as written
		return string(p.src[t.pos:last.end]), false, nil
	default:
		return "", false, &SyntaxError{Field: FieldCondition, Pos: t.pos, Message: "missing comparison value"}
	}
}

var errAmbiguousRatio = errors.New("ambiguous attainment literal")

// normalizeRatio reads "100%", "100" or "1.0" as the ratio 1.0. Bare
// values above RatioCeiling and up to PercentThreshold are rejected.
func normalizeRatio(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	n, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	switch {
	case percent || n.GreaterThan(PercentThreshold):
		return n.Div(hundred), nil
	case n.GreaterThan(RatioCeiling):
		return decimal.Zero, errAmbiguousRatio
	}
	return n, nil
}

// =============================================================================
// ACTION PARSER
// =============================================================================

// ParseAction parses "name(argument)" into an Action.
func ParseAction(src string) (Action, error) {
	s := strings.TrimSpace(src)
	if s == "" {
		return Action{}, &SyntaxError{Field: FieldAction, Message: "action is required"}
	}
	open := strings.Index(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Action{}, &SyntaxError{Field: FieldAction, Message: fmt.Sprintf("action must be a function call such as multiply_commission(1.25), got %q", s)}
	}

	name := ActionKind(strings.ToLower(strings.TrimSpace(s[:open])))
	arg := strings.TrimSpace(s[open+1 : len(s)-1])
	arg = strings.NewReplacer("$", "", ",", "", "_", "").Replace(arg)
	if arg == "" {
		return Action{}, &SyntaxError{Field: FieldAction, Pos: open, Message: fmt.Sprintf("%s needs an argument", name)}
	}
	percent := strings.HasSuffix(arg, "%")
	n, err := decimal.NewFromString(strings.TrimSuffix(arg, "%"))
	if err != nil {
		return Action{}, &SyntaxError{Field: FieldAction, Pos: open, Message: fmt.Sprintf("%s argument must be a number, got %q", name, arg)}
	}

	switch name {
	case ActionMultiplyCommission:
		if !n.IsPositive() {
			return Action{}, &SyntaxError{Field: FieldAction, Pos: open, Message: "multiply_commission factor must be positive"}
		}
		if percent {
			n = n.Div(hundred)
		}
	case ActionAddBonus:
		if n.IsNegative() {
			return Action{}, &SyntaxError{Field: FieldAction, Pos: open, Message: "add_bonus amount must not be negative"}
		}
	case ActionAddPercentageBonus:
		if n.IsNegative() {
			return Action{}, &SyntaxError{Field: FieldAction, Pos: open, Message: "add_percentage_bonus percent must not be negative"}
		}
		// The argument is always a percentage: 5 and 5% both mean 0.05.
		n = n.Div(hundred)
	default:
		return Action{}, &SyntaxError{Field: FieldAction, Message: fmt.Sprintf("unknown action %q", name)}
	}
	return Action{Kind: name, Arg: n}, nil
}
