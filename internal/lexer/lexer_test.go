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

package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferenceql/iqlquery/internal/token"
)

func TestNextTokenKeywordsAndPunctuation(t *testing.T) {
	require := require.New(t)
	l := New("SELECT * FROM data WHERE x >= 1.5 AND y != 'hi'")

	want := []token.Type{
		token.SELECT, token.STAR, token.FROM, token.IDENT, token.WHERE,
		token.IDENT, token.GE, token.FLOAT, token.AND, token.IDENT, token.NEQ, token.STRING, token.EOF,
	}
	for i, w := range want {
		tok := l.NextToken()
		require.Equal(w, tok.Type, "token %d: %q", i, tok.Literal)
	}
}

func TestNextTokenString(t *testing.T) {
	require := require.New(t)
	l := New(`'it\'s fine'`)
	tok := l.NextToken()
	require.Equal(token.STRING, tok.Type)
	require.Equal("it's fine", tok.Literal)
}

func TestNextTokenNumbers(t *testing.T) {
	require := require.New(t)
	cases := []struct {
		in   string
		want token.Type
	}{
		{"42", token.NAT},
		{"3.14", token.FLOAT},
		{"1e10", token.FLOAT},
		{"-5", token.INT},
		{"-3.14", token.FLOAT},
	}
	for _, c := range cases {
		l := New(c.in)
		tok := l.NextToken()
		require.Equal(c.want, tok.Type, c.in)
		require.Equal(c.in, tok.Literal)
	}
}

func TestNextTokenMinusFollowedByDigitIsNegativeLiteral(t *testing.T) {
	require := require.New(t)
	l := New("x = -5")
	want := []token.Type{token.IDENT, token.EQ, token.INT, token.EOF}
	for i, w := range want {
		tok := l.NextToken()
		require.Equal(w, tok.Type, "token %d: %q", i, tok.Literal)
	}
}

func TestNextTokenBareMinusIsIllegal(t *testing.T) {
	require := require.New(t)
	l := New("- x")
	tok := l.NextToken()
	require.Equal(token.ILLEGAL, tok.Type)
}

func TestNextTokenColon(t *testing.T) {
	require := require.New(t)
	l := New("[0: 1]")
	want := []token.Type{token.LBRACKET, token.NAT, token.COLON, token.NAT, token.RBRACKET, token.EOF}
	for i, w := range want {
		tok := l.NextToken()
		require.Equal(w, tok.Type, "token %d: %q", i, tok.Literal)
	}
}

func TestNextTokenIdentifierIsCaseInsensitiveKeyword(t *testing.T) {
	require := require.New(t)
	l := New("Select")
	tok := l.NextToken()
	require.Equal(token.SELECT, tok.Type)
	require.Equal("Select", tok.Literal)
}

func TestNextTokenLineColumnTracking(t *testing.T) {
	require := require.New(t)
	l := New("a\nb")
	first := l.NextToken()
	require.Equal(1, first.Line)
	second := l.NextToken()
	require.Equal(2, second.Line)
}
