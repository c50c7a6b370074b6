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

package iqlquery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferenceql/iqlquery/internal/errs"
	"github.com/inferenceql/iqlquery/internal/gpm"
	"github.com/inferenceql/iqlquery/internal/value"
)

func dataTable() map[string]*value.Relation {
	return map[string]*value.Relation{
		"data": value.NewRelation([]string{"x", "y"},
			value.Row{"x": 1, "y": 10},
			value.Row{"x": 2, "y": 20},
			value.Row{"x": 3, "y": 30},
		),
	}
}

func TestQueryBasicSelectWithWhere(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	rel, err := e.Query("SELECT x FROM data WHERE x >= 2", dataTable(), nil)
	require.NoError(err)
	require.Len(rel.Rows, 2)
	require.Equal(2, rel.Rows[0]["x"])
	require.Equal(3, rel.Rows[1]["x"])
}

func TestQueryOrderByAndLimit(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	rel, err := e.Query("SELECT x FROM data ORDER BY x DESC LIMIT 1", dataTable(), nil)
	require.NoError(err)
	require.Len(rel.Rows, 1)
	require.Equal(3, rel.Rows[0]["x"])
}

func TestQueryGenerateFromRequiresLimit(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	models := map[string]gpm.GPM{"model": gpm.NewConstantModel(-1, value.Row{"x": 9})}

	_, err := e.Query("SELECT x FROM (GENERATE x UNDER model)", dataTable(), models)
	require.Error(err)
	require.True(errs.ErrIncorrectInput.Is(err))

	rel, err := e.Query("SELECT x FROM (GENERATE x UNDER model) LIMIT 2", dataTable(), models)
	require.NoError(err)
	require.Len(rel.Rows, 2)
}

func TestQueryProbabilityClause(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	models := map[string]gpm.GPM{"model": gpm.NewConstantModel(-0.5, value.Row{})}

	rel, err := e.Query("SELECT PROBABILITY OF x = 1 UNDER model AS p FROM data", dataTable(), models)
	require.NoError(err)
	require.Len(rel.Rows, 3)
	require.Equal(math.Exp(-0.5), rel.Rows[0]["p"])
}

func TestQueryDensityClauseIsNotExponentiated(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	models := map[string]gpm.GPM{"model": gpm.NewConstantModel(-0.5, value.Row{})}

	rel, err := e.Query("SELECT DENSITY OF x = 1 UNDER model AS d FROM data", dataTable(), models)
	require.NoError(err)
	require.Len(rel.Rows, 3)
	require.Equal(-0.5, rel.Rows[0]["d"])
}

func TestQueryAddingInjectsNoValueColumn(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	rel, err := e.Query("SELECT * FROM data ADDING z", dataTable(), nil)
	require.NoError(err)
	require.Len(rel.Rows, 3)
	require.Contains(rel.Columns, "z")
	for _, row := range rel.Rows {
		_, present := row["z"]
		require.False(present, "NO_VALUE cells are stripped from the result rows")
	}
}

func TestQueryRowidSelection(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	rel, err := e.Query("SELECT rowid, x FROM data ORDER BY x", dataTable(), nil)
	require.NoError(err)
	require.Len(rel.Rows, 3)
	require.Equal(int64(0), rel.Rows[0]["rowid"])
	require.Equal(int64(1), rel.Rows[1]["rowid"])
	require.Equal(int64(2), rel.Rows[2]["rowid"])
}

func TestQueryWhereWithNegativeLiteral(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	tables := map[string]*value.Relation{
		"data": value.NewRelation([]string{"x"},
			value.Row{"x": -5},
			value.Row{"x": 5},
		),
	}
	rel, err := e.Query("SELECT x FROM data WHERE x = -5", tables, nil)
	require.NoError(err)
	require.Len(rel.Rows, 1)
	require.Equal(-5, rel.Rows[0]["x"])
}

func TestQueryInsertWithSparseValueLists(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	rel, err := e.Query("INSERT (x, y) VALUES [0: 4, 40], [2: 6, 60] INTO data", dataTable(), nil)
	require.NoError(err)
	require.Len(rel.Rows, 6)
	require.Equal(int64(4), rel.Rows[3]["x"])
	require.Equal(int64(40), rel.Rows[3]["y"])
	require.True(value.IsNoValue(rel.Rows[4]["x"]))
	require.True(value.IsNoValue(rel.Rows[4]["y"]))
	require.Equal(int64(6), rel.Rows[5]["x"])
	require.Equal(int64(60), rel.Rows[5]["y"])
}

func TestQueryInsert(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	rel, err := e.Query("INSERT (x, y) VALUES (4, 40) INTO data", dataTable(), nil)
	require.NoError(err)
	require.Len(rel.Rows, 4)
	require.Equal(int64(4), rel.Rows[3]["x"])
}

func TestQueryNestedSubquery(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	rel, err := e.Query("SELECT x FROM (SELECT x FROM data WHERE x >= 2)", dataTable(), nil)
	require.NoError(err)
	require.Len(rel.Rows, 2)
}

func TestQueryParseFailureIsWrapped(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	_, err := e.Query("SELECT FROM data", dataTable(), nil)
	require.Error(err)
	require.True(errs.ErrParseFailure.Is(err))
}

func TestQueryRejectsNonDataTableReference(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	_, err := e.Query("SELECT x FROM other", dataTable(), nil)
	require.Error(err)
	require.True(errs.ErrIncorrectInput.Is(err))
}

func TestQueryUnboundNameErrors(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	_, err := e.Query("SELECT PROBABILITY OF x = 1 UNDER missing_model FROM data", dataTable(), nil)
	require.Error(err)
	require.True(errs.ErrUnboundName.Is(err))
}

func TestQueryProviderErrorIsWrapped(t *testing.T) {
	require := require.New(t)
	e := NewDefault()
	failing := &gpm.FuncModel{
		SimulateFn: func(targets []string, constraints value.Row) (value.Row, error) {
			return nil, errProviderFailure{}
		},
	}
	models := map[string]gpm.GPM{"model": failing}

	_, err := e.Query("SELECT x FROM (GENERATE x UNDER model) LIMIT 1", dataTable(), models)
	require.Error(err)
	require.True(errs.ErrProvider.Is(err))
}

type errProviderFailure struct{}

func (errProviderFailure) Error() string { return "provider exploded" }
