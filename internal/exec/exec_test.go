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

package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferenceql/iqlquery/internal/eval"
	"github.com/inferenceql/iqlquery/internal/gpm"
	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/parser"
	"github.com/inferenceql/iqlquery/internal/value"
)

func newEvaluator() *eval.Evaluator {
	ev := &eval.Evaluator{}
	ev.SelectExpr = func(n *node.Node, env *value.Env) (*value.Relation, error) {
		return Select(n, env, ev)
	}
	return ev
}

func TestSelectProjectsAndFiltersColumns(t *testing.T) {
	require := require.New(t)
	env := value.NewEnv().Extend("data", value.NewRelation([]string{"x", "y"},
		value.Row{"x": 1, "y": 10},
		value.Row{"x": 2, "y": 20},
		value.Row{"x": 3, "y": 30},
	))
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT x FROM data WHERE x >= 2")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Len(rel.Rows, 2)
	require.ElementsMatch([]string{"x"}, rel.Columns)
	require.Equal(2, rel.Rows[0]["x"])
	require.Equal(3, rel.Rows[1]["x"])
}

func TestSelectStarReturnsAllColumnsAndStripsPrivate(t *testing.T) {
	require := require.New(t)
	env := value.NewEnv().Extend("data", value.NewRelation([]string{"x"}, value.Row{"x": 1}))
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT * FROM data")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Len(rel.Rows, 1)
	require.NotContains(rel.Rows[0], "db_id")
	require.NotContains(rel.Rows[0], "iql_type")
	require.Equal(1, rel.Rows[0]["x"])
}

func TestSelectOrderByDescendingAndLimit(t *testing.T) {
	require := require.New(t)
	env := value.NewEnv().Extend("data", value.NewRelation([]string{"x"},
		value.Row{"x": 1}, value.Row{"x": 3}, value.Row{"x": 2},
	))
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT x FROM data ORDER BY x DESC LIMIT 2")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Len(rel.Rows, 2)
	require.Equal(3, rel.Rows[0]["x"])
	require.Equal(2, rel.Rows[1]["x"])
}

func TestSelectNestedSubquery(t *testing.T) {
	require := require.New(t)
	env := value.NewEnv().Extend("data", value.NewRelation([]string{"x"},
		value.Row{"x": 1}, value.Row{"x": 2},
	))
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT x FROM (SELECT x FROM data WHERE x >= 2)")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Len(rel.Rows, 1)
	require.Equal(2, rel.Rows[0]["x"])
}

func TestSelectGeneratedTableRequiresLimitAndDrainsExactlyN(t *testing.T) {
	require := require.New(t)
	model := gpm.NewConstantModel(-1, value.Row{"x": 9})
	env := value.NewEnv().Extend("model", model)
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT x FROM (GENERATE x UNDER model) LIMIT 3")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Len(rel.Rows, 3)
	for _, row := range rel.Rows {
		require.Equal(9, row["x"])
	}
}

func TestSelectDensityClauseAgainstStoredModel(t *testing.T) {
	require := require.New(t)
	model := gpm.NewConstantModel(-4.2, value.Row{})
	env := value.NewEnv().
		Extend("data", value.NewRelation([]string{"x"}, value.Row{"x": 1})).
		Extend("model", model)
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT DENSITY OF x UNDER model AS p FROM data")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Len(rel.Rows, 1)
	require.Equal(-4.2, rel.Rows[0]["p"])
}

func TestSelectCoercesDeclaredStatisticalTypes(t *testing.T) {
	require := require.New(t)
	source := value.NewRelation([]string{"x"}, value.Row{"x": "true"}, value.Row{"x": "false"})
	source.ColumnTypes = map[string]value.StatType{"x": value.Binary}
	env := value.NewEnv().Extend("data", source)
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT x FROM data")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Len(rel.Rows, 2)
	require.Equal(true, rel.Rows[0]["x"])
	require.Equal(false, rel.Rows[1]["x"])
}

func TestSelectAddingInjectsColumnBeforeRowDatabaseIsBuilt(t *testing.T) {
	require := require.New(t)
	env := value.NewEnv().Extend("data", value.NewRelation([]string{"x"}, value.Row{"x": 1}))
	ev := newEvaluator()

	tree, err := parser.Parse("SELECT * FROM data ADDING flag")
	require.NoError(err)

	rel, err := Select(tree, env, ev)
	require.NoError(err)
	require.Contains(rel.Columns, "flag")
	require.NotContains(rel.Rows[0], "flag")
	require.Equal(1, rel.Rows[0]["x"])
}
