// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parser implements a recursive-descent parser for the IQL-SQL
// surface grammar (spec.md 4.1), producing a node.Node concrete parse tree.
// Structure (Parser struct holding current/peek tokens, expect/accept
// helpers, one parse* method per production) follows the pack's recursive
// descent idiom (PyotSawe-namyohDB/internal/parser); no implementation of
// the teacher's own sql/parse package survived retrieval (only its tests),
// so the teacher contributes only the tokenizer-as-struct-field pattern
// referenced by sql/rdparser's parser_test.go ("p.tok = ast.NewStringTokenizer(...)").
package parser

import (
	"fmt"

	"github.com/inferenceql/iqlquery/internal/lexer"
	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/token"
)

// Failure is a distinguished parse-failure error carrying the position and
// the set of expected productions (spec.md 4.1, 6, 7).
type Failure struct {
	Line, Column int
	Found        string
	Expected     []string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("line %d, column %d: unexpected %s, expected one of %v",
		f.Line, f.Column, f.Found, f.Expected)
}

type Parser struct {
	l         *lexer.Lexer
	cur, peek token.Token
	expected  []string
}

func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.next()
	p.next()
	return p
}

// Parse parses a top-level select_expr or insert_expr and returns its parse
// tree, or a *Failure.
func Parse(input string) (*node.Node, error) {
	p := New(input)
	n, err := p.parseTopLevel()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.EOF {
		return nil, p.fail()
	}
	return n, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) fail() *Failure {
	return &Failure{
		Line: p.cur.Line, Column: p.cur.Column,
		Found:    p.cur.Type.String(),
		Expected: append([]string(nil), p.expected...),
	}
}

func (p *Parser) expect(t token.Type, what string) (token.Token, bool) {
	p.expected = append(p.expected, what)
	if p.cur.Type != t {
		return token.Token{}, false
	}
	tok := p.cur
	p.next()
	return tok, true
}

func (p *Parser) accept(t token.Type) (token.Token, bool) {
	if p.cur.Type != t {
		return token.Token{}, false
	}
	tok := p.cur
	p.next()
	return tok, true
}

func (p *Parser) parseTopLevel() (*node.Node, error) {
	switch p.cur.Type {
	case token.SELECT:
		return p.parseSelectExpr()
	case token.INSERT:
		return p.parseInsertExpr()
	default:
		p.expected = []string{"SELECT", "INSERT"}
		return nil, p.fail()
	}
}

// select_expr: SELECT select_list [FROM table_expr] [WHERE condition]
//              [ADDING name] [ORDER BY name [ASC|DESC]] [LIMIT nat]
func (p *Parser) parseSelectExpr() (*node.Node, error) {
	children := []node.Child{}
	selTok, ok := p.expect(token.SELECT, "SELECT")
	if !ok {
		return nil, p.fail()
	}
	children = append(children, selTok.Literal, " ")

	list, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	children = append(children, list)

	if p.cur.Type == token.FROM {
		p.next()
		from, err := p.parseFromClause()
		if err != nil {
			return nil, err
		}
		children = append(children, " ", from)
	}
	if p.cur.Type == token.WHERE {
		p.next()
		where, err := p.parseWhereClause()
		if err != nil {
			return nil, err
		}
		children = append(children, " ", where)
	}
	if p.cur.Type == token.ADDING {
		p.next()
		nameTok, ok := p.expect(token.IDENT, "name")
		if !ok {
			return nil, p.fail()
		}
		children = append(children, " ", node.New("adding_clause", node.New("name", nameTok.Literal)))
	}
	if p.cur.Type == token.ORDER {
		p.next()
		if _, ok := p.expect(token.BY, "BY"); !ok {
			return nil, p.fail()
		}
		nameTok, ok := p.expect(token.IDENT, "name")
		if !ok {
			return nil, p.fail()
		}
		dir := "ascending"
		if p.cur.Type == token.ASC {
			p.next()
		} else if p.cur.Type == token.DESC {
			p.next()
			dir = "descending"
		}
		children = append(children, " ", node.New("order_by_clause",
			node.New("name", nameTok.Literal), node.New(dir)))
	}
	if p.cur.Type == token.LIMIT {
		p.next()
		natTok, ok := p.expect(token.NAT, "nat")
		if !ok {
			return nil, p.fail()
		}
		children = append(children, " ", node.New("limit_clause", node.New("nat", natTok.Literal)))
	}
	return node.New("select_expr", children...), nil
}

func (p *Parser) parseSelectList() (*node.Node, error) {
	if star, ok := p.accept(token.STAR); ok {
		return node.New("select_list", node.New("star", star.Literal)), nil
	}
	var items []node.Child
	first, err := p.parseSelection()
	if err != nil {
		return nil, err
	}
	items = append(items, first)
	for p.cur.Type == token.COMMA {
		p.next()
		sel, err := p.parseSelection()
		if err != nil {
			return nil, err
		}
		items = append(items, ", ", sel)
	}
	return node.New("select_list", items...), nil
}

func (p *Parser) parseSelection() (*node.Node, error) {
	switch p.cur.Type {
	case token.PROBABILITY, token.DENSITY:
		return p.parseLogpdfClause()
	case token.ROWID:
		return p.parseRowidSelection()
	default:
		nameTok, ok := p.expect(token.IDENT, "column name")
		if !ok {
			return nil, p.fail()
		}
		sel := node.New("column_selection", node.New("name", nameTok.Literal))
		if p.cur.Type == token.AS {
			p.next()
			aliasTok, ok := p.expect(token.IDENT, "alias")
			if !ok {
				return nil, p.fail()
			}
			sel.Children = append(sel.Children, " ", node.New("as_clause", node.New("name", aliasTok.Literal)))
		}
		return sel, nil
	}
}

// rowid_selection: ROWID [AS name]
func (p *Parser) parseRowidSelection() (*node.Node, error) {
	rowidTok, ok := p.expect(token.ROWID, "ROWID")
	if !ok {
		return nil, p.fail()
	}
	sel := node.New("rowid_selection", rowidTok.Literal)
	if p.cur.Type == token.AS {
		p.next()
		aliasTok, ok := p.expect(token.IDENT, "alias")
		if !ok {
			return nil, p.fail()
		}
		sel.Children = append(sel.Children, " ", node.New("as_clause", node.New("name", aliasTok.Literal)))
	}
	return sel, nil
}

// logpdf_clause: (PROBABILITY|DENSITY) OF event_list UNDER model_expr [AS name]
func (p *Parser) parseLogpdfClause() (*node.Node, error) {
	kindTok := p.cur
	kind := "probability_clause"
	if kindTok.Type == token.DENSITY {
		kind = "density_clause"
	}
	p.next()
	if _, ok := p.expect(token.OF, "OF"); !ok {
		return nil, p.fail()
	}
	events, err := p.parseEventList()
	if err != nil {
		return nil, err
	}
	if _, ok := p.expect(token.UNDER, "UNDER"); !ok {
		return nil, p.fail()
	}
	model, err := p.parseModelExpr()
	if err != nil {
		return nil, err
	}
	children := []node.Child{events, " ", "under", " ", model}
	if p.cur.Type == token.AS {
		p.next()
		aliasTok, ok := p.expect(token.IDENT, "alias")
		if !ok {
			return nil, p.fail()
		}
		children = append(children, " ", node.New("as_clause", node.New("name", aliasTok.Literal)))
	}
	return node.New(kind, children...), nil
}

// event_list: (* | column,...) and/or map_entry_expr (equality/binop events)
func (p *Parser) parseEventList() (*node.Node, error) {
	var items []node.Child
	first, err := p.parseEvent()
	if err != nil {
		return nil, err
	}
	items = append(items, first)
	for p.cur.Type == token.AND || p.cur.Type == token.COMMA {
		p.next()
		next, err := p.parseEvent()
		if err != nil {
			return nil, err
		}
		items = append(items, " ", next)
	}
	return node.New("event_list", items...), nil
}

func (p *Parser) parseEvent() (*node.Node, error) {
	if star, ok := p.accept(token.STAR); ok {
		return node.New("star", star.Literal), nil
	}
	symTok, ok := p.expect(token.IDENT, "symbol")
	if !ok {
		return nil, p.fail()
	}
	if !isCompareOpToken(p.cur.Type) {
		// Bare column name: a name_event, whose value the row-event protocol
		// pulls from the current row into the target row (spec.md 4.5.1).
		return node.New("name_event", node.New("name", symTok.Literal)), nil
	}
	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	val, err := p.parseScalar()
	if err != nil {
		return nil, err
	}
	tag := "map_entry_expr"
	if op != "=" {
		tag = "binop_event"
	}
	return node.New(tag, node.New("name", symTok.Literal), node.New("op", op), val), nil
}

func isCompareOpToken(t token.Type) bool {
	switch t {
	case token.EQ, token.NEQ, token.LT, token.LE, token.GT, token.GE:
		return true
	default:
		return false
	}
}

func (p *Parser) parseCompareOp() (string, error) {
	switch p.cur.Type {
	case token.EQ:
		p.next()
		return "=", nil
	case token.NEQ:
		p.next()
		return "!=", nil
	case token.LT:
		p.next()
		return "<", nil
	case token.LE:
		p.next()
		return "<=", nil
	case token.GT:
		p.next()
		return ">", nil
	case token.GE:
		p.next()
		return ">=", nil
	default:
		p.expected = append(p.expected, "comparison operator")
		return "", p.fail()
	}
}

// from_clause: IDENT | generated_table_expr | '(' select_expr ')'
func (p *Parser) parseFromClause() (*node.Node, error) {
	if p.cur.Type == token.LPAREN {
		lookahead := p.peek
		if lookahead.Type == token.GENERATE {
			gen, err := p.parseGeneratedTableExpr()
			if err != nil {
				return nil, err
			}
			return node.New("from_clause", gen), nil
		}
		p.next()
		inner, err := p.parseSelectExpr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.expect(token.RPAREN, ")"); !ok {
			return nil, p.fail()
		}
		return node.New("from_clause", node.New("subquery_expr", inner)), nil
	}
	nameTok, ok := p.expect(token.IDENT, "table name")
	if !ok {
		return nil, p.fail()
	}
	return node.New("from_clause", node.New("name", nameTok.Literal)), nil
}

func (p *Parser) parseGeneratedTableExpr() (*node.Node, error) {
	if _, ok := p.expect(token.LPAREN, "("); !ok {
		return nil, p.fail()
	}
	gen, err := p.parseGenerateExpr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.expect(token.RPAREN, ")"); !ok {
		return nil, p.fail()
	}
	return node.New("generated_table_expr", gen), nil
}

// generate_expr: GENERATE var_list UNDER model_expr [GIVEN map_expr]
func (p *Parser) parseGenerateExpr() (*node.Node, error) {
	if _, ok := p.expect(token.GENERATE, "GENERATE"); !ok {
		return nil, p.fail()
	}
	vars, err := p.parseVariableList()
	if err != nil {
		return nil, err
	}
	if _, ok := p.expect(token.UNDER, "UNDER"); !ok {
		return nil, p.fail()
	}
	model, err := p.parseModelExpr()
	if err != nil {
		return nil, err
	}
	children := []node.Child{vars, " ", "under", " ", model}
	if p.cur.Type == token.GIVEN {
		p.next()
		m, err := p.parseMapExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, " ", "given", " ", m)
	}
	return node.New("generate_expr", children...), nil
}

func (p *Parser) parseVariableList() (*node.Node, error) {
	if star, ok := p.accept(token.STAR); ok {
		return node.New("variable_list", node.New("star", star.Literal)), nil
	}
	var items []node.Child
	first, ok := p.expect(token.IDENT, "variable")
	if !ok {
		return nil, p.fail()
	}
	items = append(items, node.New("name", first.Literal))
	for p.cur.Type == token.COMMA {
		p.next()
		next, ok := p.expect(token.IDENT, "variable")
		if !ok {
			return nil, p.fail()
		}
		items = append(items, ", ", node.New("name", next.Literal))
	}
	return node.New("variable_list", items...), nil
}

// model_expr: IDENT | '(' model_expr ')' | model GIVEN events | model
//             CONSTRAINED BY ... | generated table used as model
func (p *Parser) parseModelExpr() (*node.Node, error) {
	var base *node.Node
	if p.cur.Type == token.LPAREN {
		p.next()
		inner, err := p.parseModelExpr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.expect(token.RPAREN, ")"); !ok {
			return nil, p.fail()
		}
		base = node.New("model_expr", inner)
	} else if p.cur.Type == token.GENERATE {
		gen, err := p.parseGenerateExpr()
		if err != nil {
			return nil, err
		}
		base = node.New("model_expr", gen)
	} else {
		nameTok, ok := p.expect(token.IDENT, "model name")
		if !ok {
			return nil, p.fail()
		}
		base = node.New("model_expr", node.New("ref", node.New("name", nameTok.Literal)))
	}
	for {
		if p.cur.Type == token.GIVEN {
			p.next()
			events, err := p.parseEventList()
			if err != nil {
				return nil, err
			}
			base = node.New("conditioned_by_expr", base, " ", "given", " ", events)
			continue
		}
		if p.cur.Type == token.CONSTRAINED {
			p.next()
			if _, ok := p.expect(token.BY, "BY"); !ok {
				return nil, p.fail()
			}
			vars, err := p.parseVariableList()
			if err != nil {
				return nil, err
			}
			children := []node.Child{base, " ", "constrained by", " ", vars}
			if p.cur.Type == token.GIVEN {
				p.next()
				m, err := p.parseMapExpr()
				if err != nil {
					return nil, err
				}
				children = append(children, " ", "given", " ", m)
			}
			base = node.New("constrained_by_expr", children...)
			continue
		}
		break
	}
	return base, nil
}

// where_clause: condition
func (p *Parser) parseWhereClause() (*node.Node, error) {
	cond, err := p.parseOrCondition()
	if err != nil {
		return nil, err
	}
	return node.New("where_clause", cond), nil
}

func (p *Parser) parseOrCondition() (*node.Node, error) {
	first, err := p.parseAndCondition()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.OR {
		return first, nil
	}
	items := []node.Child{first}
	for p.cur.Type == token.OR {
		p.next()
		next, err := p.parseAndCondition()
		if err != nil {
			return nil, err
		}
		items = append(items, " ", "or", " ", next)
	}
	return node.New("or_condition", items...), nil
}

func (p *Parser) parseAndCondition() (*node.Node, error) {
	first, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.AND {
		return first, nil
	}
	items := []node.Child{first}
	for p.cur.Type == token.AND {
		p.next()
		next, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		items = append(items, " ", "and", " ", next)
	}
	return node.New("and_condition", items...), nil
}

func (p *Parser) parseCondition() (*node.Node, error) {
	if p.cur.Type == token.LPAREN {
		p.next()
		inner, err := p.parseOrCondition()
		if err != nil {
			return nil, err
		}
		if _, ok := p.expect(token.RPAREN, ")"); !ok {
			return nil, p.fail()
		}
		return inner, nil
	}
	nameTok, ok := p.expect(token.IDENT, "column name")
	if !ok {
		return nil, p.fail()
	}
	name := node.New("name", nameTok.Literal)
	if p.cur.Type == token.IS {
		p.next()
		negate := false
		if p.cur.Type == token.NOT {
			p.next()
			negate = true
		}
		if _, ok := p.expect(token.NULL, "NULL"); !ok {
			return nil, p.fail()
		}
		if negate {
			return node.New("presence_condition", name), nil
		}
		return node.New("absence_condition", name), nil
	}
	if p.cur.Type == token.EQ {
		p.next()
		val, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		return node.New("equality_condition", name, node.New("op", "="), val), nil
	}
	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	val, err := p.parseScalar()
	if err != nil {
		return nil, err
	}
	return node.New("predicate_condition", name, node.New("predicate_expr", node.New("op", op)), val), nil
}

// map_expr: '[' name '=' scalar (',' name '=' scalar)* ']'  -- GIVEN payload
func (p *Parser) parseMapExpr() (*node.Node, error) {
	if _, ok := p.expect(token.LBRACKET, "["); !ok {
		return nil, p.fail()
	}
	var items []node.Child
	for p.cur.Type != token.RBRACKET {
		nameTok, ok := p.expect(token.IDENT, "key")
		if !ok {
			return nil, p.fail()
		}
		if _, ok := p.expect(token.EQ, "="); !ok {
			return nil, p.fail()
		}
		val, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		items = append(items, node.New("map_entry_expr", node.New("name", nameTok.Literal), val))
		if p.cur.Type == token.COMMA {
			p.next()
			items = append(items, ", ")
		}
	}
	p.next() // ]
	return node.New("map_list", items...), nil
}

// insert_expr: INSERT relation_value INTO name
func (p *Parser) parseInsertExpr() (*node.Node, error) {
	if _, ok := p.expect(token.INSERT, "INSERT"); !ok {
		return nil, p.fail()
	}
	rel, err := p.parseRelationValue()
	if err != nil {
		return nil, err
	}
	if _, ok := p.expect(token.INTO, "INTO"); !ok {
		return nil, p.fail()
	}
	nameTok, ok := p.expect(token.IDENT, "table name")
	if !ok {
		return nil, p.fail()
	}
	return node.New("insert_expr", rel, node.New("name", nameTok.Literal)), nil
}

func (p *Parser) parseRelationValue() (*node.Node, error) {
	if _, ok := p.expect(token.LPAREN, "("); !ok {
		return nil, p.fail()
	}
	var cols []node.Child
	for {
		colTok, ok := p.expect(token.IDENT, "column name")
		if !ok {
			return nil, p.fail()
		}
		cols = append(cols, node.New("name", colTok.Literal))
		if p.cur.Type == token.COMMA {
			p.next()
			cols = append(cols, ", ")
			continue
		}
		break
	}
	if _, ok := p.expect(token.RPAREN, ")"); !ok {
		return nil, p.fail()
	}
	if _, ok := p.expect(token.VALUES, "VALUES"); !ok {
		return nil, p.fail()
	}
	if p.cur.Type == token.LBRACKET {
		sparse, err := p.parseValueListsSparse()
		if err != nil {
			return nil, err
		}
		return node.New("relation_value", node.New("column_list", cols...), sparse), nil
	}
	lists, err := p.parseValueListsFull()
	if err != nil {
		return nil, err
	}
	return node.New("relation_value", node.New("column_list", cols...), lists), nil
}

func (p *Parser) parseValueListsFull() (*node.Node, error) {
	var items []node.Child
	first, err := p.parseValueListParen()
	if err != nil {
		return nil, err
	}
	items = append(items, first)
	for p.cur.Type == token.COMMA {
		p.next()
		next, err := p.parseValueListParen()
		if err != nil {
			return nil, err
		}
		items = append(items, ", ", next)
	}
	return node.New("value_lists_full", items...), nil
}

// value_lists_sparse: '[' nat ':' value (',' value)* ']' (',' '[' nat ':' ... ']')*
// — the indexed-list surface syntax for spec.md 4.2's value_lists_sparse
// production, letting an INSERT only spell out the rows it needs.
func (p *Parser) parseValueListsSparse() (*node.Node, error) {
	var items []node.Child
	first, err := p.parseIndexedValueList()
	if err != nil {
		return nil, err
	}
	items = append(items, first...)
	for p.cur.Type == token.COMMA {
		p.next()
		next, err := p.parseIndexedValueList()
		if err != nil {
			return nil, err
		}
		items = append(items, ", ")
		items = append(items, next...)
	}
	return node.New("value_lists_sparse", items...), nil
}

func (p *Parser) parseIndexedValueList() ([]node.Child, error) {
	if _, ok := p.expect(token.LBRACKET, "["); !ok {
		return nil, p.fail()
	}
	idxTok, ok := p.expect(token.NAT, "index")
	if !ok {
		return nil, p.fail()
	}
	if _, ok := p.expect(token.COLON, ":"); !ok {
		return nil, p.fail()
	}
	var vals []node.Child
	for {
		v, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.cur.Type == token.COMMA {
			p.next()
			vals = append(vals, ", ")
			continue
		}
		break
	}
	if _, ok := p.expect(token.RBRACKET, "]"); !ok {
		return nil, p.fail()
	}
	return []node.Child{node.New("index", idxTok.Literal), node.New("value_list", vals...)}, nil
}

func (p *Parser) parseValueListParen() (*node.Node, error) {
	if _, ok := p.expect(token.LPAREN, "("); !ok {
		return nil, p.fail()
	}
	var items []node.Child
	for {
		v, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if p.cur.Type == token.COMMA {
			p.next()
			items = append(items, ", ")
			continue
		}
		break
	}
	if _, ok := p.expect(token.RPAREN, ")"); !ok {
		return nil, p.fail()
	}
	return node.New("value_list", items...), nil
}

// parseScalar parses a literal leaf: bool/int/nat/float/string/null/symbol.
func (p *Parser) parseScalar() (*node.Node, error) {
	switch p.cur.Type {
	case token.TRUE, token.FALSE:
		tok := p.cur
		p.next()
		return node.New("bool", tok.Literal), nil
	case token.NULL:
		p.next()
		return node.New("null"), nil
	case token.NAT:
		tok := p.cur
		p.next()
		return node.New("nat", tok.Literal), nil
	case token.INT:
		tok := p.cur
		p.next()
		return node.New("int", tok.Literal), nil
	case token.FLOAT:
		tok := p.cur
		p.next()
		return node.New("float", tok.Literal), nil
	case token.STRING:
		tok := p.cur
		p.next()
		return node.New("string", tok.Literal), nil
	case token.IDENT:
		tok := p.cur
		p.next()
		return node.New("simple_symbol", tok.Literal), nil
	default:
		p.expected = append(p.expected, "literal value")
		return nil, p.fail()
	}
}
