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

package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddPlaceholdersUnionsColumnsAndIsIdempotent(t *testing.T) {
	require := require.New(t)
	rel := NewRelation([]string{"x"},
		Row{"x": 1, "y": 2},
		Row{"x": 3},
	)
	once := rel.AddPlaceholders()
	require.ElementsMatch([]string{"x", "y"}, once.Columns)
	require.Equal(NoValue, once.Rows[1]["y"])

	twice := once.AddPlaceholders()
	require.Equal(once.Columns, twice.Columns)
	require.Equal(once.Rows, twice.Rows)
}

func TestMergeOtherWinsOnCollision(t *testing.T) {
	require := require.New(t)
	base := Row{"x": 1, "y": 2}
	other := Row{"y": 99, "z": 3}
	merged := Merge(base, other)
	require.Equal(Row{"x": 1, "y": 99, "z": 3}, merged)
	// base unmodified
	require.Equal(2, base["y"])
}

func TestAscendingOrdersNoValueLast(t *testing.T) {
	require := require.New(t)
	require.True(Ascending(1, NoValue) < 0)
	require.True(Ascending(NoValue, 1) > 0)
	require.Equal(0, Ascending(NoValue, NoValue))
	require.True(Ascending(1, 2) < 0)
}

func TestReverseComparatorFlipsOrder(t *testing.T) {
	require := require.New(t)
	rev := Ascending.Reverse()
	require.True(rev(1, 2) > 0)
	require.True(rev(2, 1) < 0)
}

func TestEnvLookupExtendAndHas(t *testing.T) {
	require := require.New(t)
	env := NewEnv()
	require.True(env.Has("="))

	_, err := env.Lookup("nope")
	require.Error(err)

	ext := env.Extend("nope", 42)
	v, err := ext.Lookup("nope")
	require.NoError(err)
	require.Equal(42, v)

	// original env is untouched
	require.False(env.Has("nope"))
}

func TestEnvExtendAllLaterWins(t *testing.T) {
	require := require.New(t)
	env := NewEnv().Extend("a", 1)
	ext := env.ExtendAll(map[string]Value{"a": 2, "b": 3})
	v, _ := ext.Lookup("a")
	require.Equal(2, v)
	v, _ = ext.Lookup("b")
	require.Equal(3, v)
}

func builtin(t *testing.T, name string) func(args ...Value) (Value, error) {
	t.Helper()
	env := NewEnv()
	v, err := env.Lookup(name)
	require.NoError(t, err)
	fn, ok := v.(func(args ...Value) (Value, error))
	require.True(t, ok, "builtin %q is not a func(...Value)(Value,error)", name)
	return fn
}

func TestBuiltinComparisons(t *testing.T) {
	require := require.New(t)

	eq := builtin(t, "=")
	v, err := eq(1, 1)
	require.NoError(err)
	require.Equal(true, v)

	neq := builtin(t, "!=")
	v, err = neq(1, 2)
	require.NoError(err)
	require.Equal(true, v)

	lt := builtin(t, "<")
	v, err = lt(1, 2)
	require.NoError(err)
	require.Equal(true, v)

	ge := builtin(t, ">=")
	v, err = ge(2, 2)
	require.NoError(err)
	require.Equal(true, v)
}

func TestBuiltinExp(t *testing.T) {
	require := require.New(t)
	exp := builtin(t, "exp")
	v, err := exp(0.0)
	require.NoError(err)
	require.InDelta(1.0, v.(float64), 1e-9)
}

func TestBuiltinMerge(t *testing.T) {
	require := require.New(t)
	merge := builtin(t, "merge")
	v, err := merge(Row{"x": 1}, Row{"x": 2, "y": 3})
	require.NoError(err)
	require.Equal(Row{"x": 2, "y": 3}, v)

	_, err = merge(1, Row{})
	require.Error(err)
}

func TestBuiltinPullStarAndExplicit(t *testing.T) {
	require := require.New(t)
	pull := builtin(t, "pull")
	row := Row{"x": 1, "y": 2}

	all, err := pull(row, "*")
	require.NoError(err)
	require.Equal(row, all)

	one, err := pull(row, "x")
	require.NoError(err)
	require.Equal(Row{"x": 1}, one)

	missing, err := pull(row, "z")
	require.NoError(err)
	require.Equal(Row{"z": NoValue}, missing)

	several, err := pull(row, []string{"x", "z"})
	require.NoError(err)
	require.Equal(Row{"x": 1, "z": NoValue}, several)
}

func TestBuiltinGetElse(t *testing.T) {
	require := require.New(t)
	getElse := builtin(t, "get_else")
	row := Row{"x": 1, "y": NoValue}

	v, err := getElse(row, "x", 99)
	require.NoError(err)
	require.Equal(1, v)

	v, err = getElse(row, "y", 99)
	require.NoError(err)
	require.Equal(99, v)

	v, err = getElse(row, "z", 99)
	require.NoError(err)
	require.Equal(99, v)
}

type fakeModel struct {
	targets, constraints Row
}

func (f *fakeModel) Logpdf(targets, constraints Row) (float64, error) {
	f.targets, f.constraints = targets, constraints
	return -1.5, nil
}

func TestBuiltinLogpdfDelegatesToModel(t *testing.T) {
	require := require.New(t)
	logpdf := builtin(t, "logpdf")
	m := &fakeModel{}
	v, err := logpdf(m, Row{"x": 1}, Row{"y": 2})
	require.NoError(err)
	require.Equal(-1.5, v)
	require.Equal(Row{"x": 1}, m.targets)
	require.Equal(Row{"y": 2}, m.constraints)

	_, err = logpdf("not-a-model", Row{}, Row{})
	require.Error(err)
}

func TestCoerceBinary(t *testing.T) {
	require := require.New(t)

	v, changed, err := Coerce(Binary, "true")
	require.NoError(err)
	require.True(changed)
	require.Equal(true, v)

	v, changed, err = Coerce(Binary, true)
	require.NoError(err)
	require.False(changed)
	require.Equal(true, v)

	_, _, err = Coerce(Binary, "maybe")
	require.Error(err)
}

func TestCoerceCategorical(t *testing.T) {
	require := require.New(t)
	v, changed, err := Coerce(Categorical, 42)
	require.NoError(err)
	require.True(changed)
	require.Equal("42", v)

	v, changed, err = Coerce(Categorical, "foo")
	require.NoError(err)
	require.False(changed)
	require.Equal("foo", v)
}

func TestCoerceGaussian(t *testing.T) {
	require := require.New(t)
	v, changed, err := Coerce(Gaussian, int64(3))
	require.NoError(err)
	require.True(changed)
	require.Equal(3.0, v)

	_, _, err = Coerce(Gaussian, "not a number")
	require.Error(err)
}

func TestCoerceLeavesNoValueUntouched(t *testing.T) {
	require := require.New(t)
	v, changed, err := Coerce(Gaussian, NoValue)
	require.NoError(err)
	require.False(changed)
	require.Equal(NoValue, v)
}

func TestIsNoValue(t *testing.T) {
	require := require.New(t)
	require.True(IsNoValue(nil))
	require.True(IsNoValue(NoValue))
	require.False(IsNoValue(0))
	require.False(IsNoValue(""))
}
