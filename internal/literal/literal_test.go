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

package literal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/value"
)

func TestReadScalars(t *testing.T) {
	require := require.New(t)

	v, err := Read(node.New("bool", "false"))
	require.NoError(err)
	require.Equal(false, v)

	v, err = Read(node.New("null"))
	require.NoError(err)
	require.Equal(value.NoValue, v)

	v, err = Read(node.New("nat", "7"))
	require.NoError(err)
	require.Equal(int64(7), v)

	v, err = Read(node.New("float", "2.5"))
	require.NoError(err)
	require.Equal(2.5, v)

	v, err = Read(node.New("string", "abc"))
	require.NoError(err)
	require.Equal("abc", v)

	v, err = Read(node.New("simple_symbol", "foo"))
	require.NoError(err)
	require.Equal(value.Symbol("foo"), v)
}

func TestReadValueList(t *testing.T) {
	require := require.New(t)
	n := node.New("value_list", node.New("int", "1"), node.New("string", "a"))
	v, err := Read(n)
	require.NoError(err)
	require.Equal([]value.Value{int64(1), "a"}, v)
}

func TestReadRelationValueZipsColumnsAndRows(t *testing.T) {
	require := require.New(t)
	n := node.New("relation_value",
		node.New("column_list", node.New("name", "x"), node.New("name", "y")),
		node.New("value_lists_full",
			node.New("value_list", node.New("int", "1"), node.New("int", "2")),
			node.New("value_list", node.New("int", "3")),
		),
	)
	v, err := Read(n)
	require.NoError(err)
	rel, ok := v.(*value.Relation)
	require.True(ok)
	require.Equal([]string{"x", "y"}, rel.Columns)
	require.Len(rel.Rows, 2)
	require.Equal(int64(1), rel.Rows[0]["x"])
	require.Equal(int64(2), rel.Rows[0]["y"])
	require.Equal(int64(3), rel.Rows[1]["x"])
	require.Equal(value.NoValue, rel.Rows[1]["y"])
}

func TestReadSparseFillsGapsWithEmptySequences(t *testing.T) {
	require := require.New(t)
	pairs := []IndexedList{
		{Index: 2, List: []value.Value{int64(9)}},
		{Index: 0, List: []value.Value{int64(1)}},
	}
	out := ReadSparse(pairs)
	require.Len(out, 3)
	require.Equal([]value.Value{int64(1)}, out[0])
	require.Equal([]value.Value{}, out[1])
	require.Equal([]value.Value{int64(9)}, out[2])
}
