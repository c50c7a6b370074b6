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

// Package token defines the lexical token types for the IQL-SQL surface
// grammar (spec.md 4.1). Structure follows the teacher pack's recursive
// descent lexer idiom (PyotSawe-namyohDB/internal/lexer): a TokenType enum,
// a Token carrying type/literal/position, and a String() method used in
// parse-failure messages.
package token

import "fmt"

type Type int

const (
	ILLEGAL Type = iota
	EOF
	WHITESPACE
	COMMENT

	IDENT
	NAT
	INT
	FLOAT
	STRING
	SYMBOL // :keyword-style identifiers used as names

	// keywords
	SELECT
	FROM
	WHERE
	AS
	ASC
	DESC
	ORDER
	BY
	LIMIT
	ADDING
	AND
	OR
	NOT
	IS
	NULL
	GENERATE
	UNDER
	GIVEN
	CONSTRAINED
	PROBABILITY
	DENSITY
	OF
	VALUES
	INSERT
	INTO
	TRUE
	FALSE
	ROWID

	// punctuation / operators
	STAR
	COMMA
	DOT
	COLON
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	EQ
	NEQ
	LT
	LE
	GT
	GE
)

var keywords = map[string]Type{
	"select":      SELECT,
	"from":        FROM,
	"where":       WHERE,
	"as":          AS,
	"asc":         ASC,
	"desc":        DESC,
	"order":       ORDER,
	"by":          BY,
	"limit":       LIMIT,
	"adding":      ADDING,
	"and":         AND,
	"or":          OR,
	"not":         NOT,
	"is":          IS,
	"null":        NULL,
	"generate":    GENERATE,
	"under":       UNDER,
	"given":       GIVEN,
	"constrained": CONSTRAINED,
	"probability": PROBABILITY,
	"density":     DENSITY,
	"of":          OF,
	"values":      VALUES,
	"insert":      INSERT,
	"into":        INTO,
	"true":        TRUE,
	"false":       FALSE,
	"rowid":       ROWID,
}

// Lookup returns the keyword token type for a case-folded identifier, or
// IDENT if it is not a reserved word.
func Lookup(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

type Token struct {
	Type    Type
	Literal string
	Line    int
	Column  int
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

var names = map[Type]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", WHITESPACE: "WHITESPACE", COMMENT: "COMMENT",
	IDENT: "IDENT", NAT: "NAT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING", SYMBOL: "SYMBOL",
	SELECT: "SELECT", FROM: "FROM", WHERE: "WHERE", AS: "AS", ASC: "ASC", DESC: "DESC",
	ORDER: "ORDER", BY: "BY", LIMIT: "LIMIT", ADDING: "ADDING", AND: "AND", OR: "OR",
	NOT: "NOT", IS: "IS", NULL: "NULL", GENERATE: "GENERATE", UNDER: "UNDER", GIVEN: "GIVEN",
	CONSTRAINED: "CONSTRAINED", PROBABILITY: "PROBABILITY", DENSITY: "DENSITY", OF: "OF",
	VALUES: "VALUES", INSERT: "INSERT", INTO: "INTO", TRUE: "TRUE", FALSE: "FALSE",
	ROWID: "ROWID",
	STAR: "STAR", COMMA: "COMMA", DOT: "DOT", COLON: "COLON", LPAREN: "LPAREN", RPAREN: "RPAREN",
	LBRACKET: "LBRACKET", RBRACKET: "RBRACKET", EQ: "EQ", NEQ: "NEQ", LT: "LT", LE: "LE",
	GT: "GT", GE: "GE",
}
