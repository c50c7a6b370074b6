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

package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferenceql/iqlquery/internal/eval"
	"github.com/inferenceql/iqlquery/internal/gpm"
	"github.com/inferenceql/iqlquery/internal/ir"
	"github.com/inferenceql/iqlquery/internal/parser"
	"github.com/inferenceql/iqlquery/internal/plan"
	"github.com/inferenceql/iqlquery/internal/value"
)

func TestCompileColumnSelectionAndWhereComparison(t *testing.T) {
	require := require.New(t)
	tree, err := parser.Parse("SELECT x FROM data WHERE x >= 2")
	require.NoError(err)

	list, ok := tree.Get("select_list")
	require.True(ok)
	where, ok := tree.Get("where_clause")
	require.True(ok)

	env := value.NewEnv()
	ev := &eval.Evaluator{}
	c := New(env, ev)

	find, keys, selWhere, findAll, _, err := c.CompileSelectList(list)
	require.NoError(err)
	require.False(findAll)
	require.Equal([]string{"x"}, keys)
	require.Len(find, 1)

	whereClauses, err := c.CompileWhereClause(where)
	require.NoError(err)

	db := &ir.Database{Rows: []value.Row{
		{"db_id": int64(0), "x": 1},
		{"db_id": int64(1), "x": 2},
		{"db_id": int64(2), "x": 3},
	}}
	allWhere := append(append([]ir.Clause{}, selWhere...), whereClauses...)
	p := plan.Assemble(db, plan.Fragment{Find: find, Keys: keys, Where: allWhere})

	res, err := ir.Execute(p, nil)
	require.NoError(err)
	require.Len(res.Rows, 2)
	require.Equal(2, res.Rows[0]["x"])
	require.Equal(3, res.Rows[1]["x"])
}

func TestCompileSelectStarFindAllMode(t *testing.T) {
	require := require.New(t)
	tree, err := parser.Parse("SELECT * FROM data")
	require.NoError(err)
	list, _ := tree.Get("select_list")

	env := value.NewEnv()
	ev := &eval.Evaluator{}
	c := New(env, ev)

	find, keys, where, findAll, findAllVar, err := c.CompileSelectList(list)
	require.NoError(err)
	require.True(findAll)
	require.Empty(find)
	require.Empty(keys)
	require.NotEmpty(findAllVar)

	db := &ir.Database{Rows: []value.Row{{"db_id": int64(0), "x": 1, "y": 2}}}
	p := plan.Assemble(db, plan.Fragment{Where: where, FindAll: findAll, FindVar: findAllVar})
	res, err := ir.Execute(p, nil)
	require.NoError(err)
	require.Len(res.Rows, 1)
	require.Equal(1, res.Rows[0]["x"])
	require.Equal(2, res.Rows[0]["y"])
}

func TestCompilePresenceAndAbsenceCondition(t *testing.T) {
	require := require.New(t)
	tree, err := parser.Parse("SELECT x FROM data WHERE x IS NOT NULL")
	require.NoError(err)
	where, _ := tree.Get("where_clause")

	env := value.NewEnv()
	ev := &eval.Evaluator{}
	c := New(env, ev)

	clauses, err := c.CompileWhereClause(where)
	require.NoError(err)

	db := &ir.Database{Rows: []value.Row{
		{"db_id": int64(0), "x": 1},
		{"db_id": int64(1)},
	}}
	res, err := ir.Execute(ir.Plan{Query: ir.Query{In: []string{"$"}, Where: clauses}, Inputs: []value.Value{db}}, nil)
	require.NoError(err)
	require.Len(res.Rows, 1)

	tree, err = parser.Parse("SELECT x FROM data WHERE x IS NULL")
	require.NoError(err)
	where, _ = tree.Get("where_clause")
	clauses, err = c.CompileWhereClause(where)
	require.NoError(err)
	res, err = ir.Execute(ir.Plan{Query: ir.Query{In: []string{"$"}, Where: clauses}, Inputs: []value.Value{db}}, nil)
	require.NoError(err)
	require.Len(res.Rows, 1)
}

func TestCompileLogpdfClauseWithEqualityEvents(t *testing.T) {
	require := require.New(t)
	tree, err := parser.Parse("SELECT PROBABILITY OF x = 1 UNDER model FROM data")
	require.NoError(err)
	list, _ := tree.Get("select_list")

	model := gpm.NewConstantModel(-3.0, value.Row{})
	env := value.NewEnv().Extend("model", model)
	ev := &eval.Evaluator{}
	c := New(env, ev)

	find, keys, where, findAll, _, err := c.CompileSelectList(list)
	require.NoError(err)
	require.False(findAll)
	require.Equal([]string{"probability_clause"}, keys)

	db := &ir.Database{Rows: []value.Row{{"db_id": int64(0)}}}
	p := plan.Assemble(db, plan.Fragment{Find: find, Keys: keys, Where: where})
	res, err := ir.Execute(p, nil)
	require.NoError(err)
	require.Len(res.Rows, 1)
	require.Equal(math.Exp(-3.0), res.Rows[0]["probability_clause"])
}

func TestCompileComparisonMemoizesRepeatedCondition(t *testing.T) {
	require := require.New(t)
	tree, err := parser.Parse("SELECT x FROM data WHERE x = 1 OR x = 1")
	require.NoError(err)
	where, _ := tree.Get("where_clause")

	env := value.NewEnv()
	ev := &eval.Evaluator{}
	c := New(env, ev)

	_, err = c.CompileWhereClause(where)
	require.NoError(err)
	// Two structurally identical comparisons produce one memoized entry.
	require.Len(c.memo, 1)
}
