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

// Package value implements the runtime value universe, rows, relations,
// and the environment of spec.md section 3: null/NO_VALUE, booleans,
// integers, floats, strings, symbols, ordered maps (rows), ordered
// sequences of rows (relations), comparator functions, predicate symbols,
// and GPM handles (see internal/gpm).
//
// Grounded on the teacher's row/schema shape as observed in
// sql/plan/project_test.go (memory.NewTable(name, schema, nil),
// child.Insert(ctx, sql.NewRow(...)), a row being a flat ordered sequence of
// cells with a parallel schema) — adapted here to named (map) cells since
// spec.md rows are sparse attribute maps rather than fixed-arity tuples.
package value

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"

	"github.com/inferenceql/iqlquery/internal/errs"
)

// Value is the universe of runtime values. Go's interface{} stands in for
// the dynamically-typed value union; concrete dynamic types are bool,
// int64, float64, string, Symbol, Row, *Relation, Comparator, Predicate,
// and gpm.GPM (imported by callers, not by this package, to avoid a cycle).
type Value = interface{}

// Symbol is an identifier value (spec.md 3: "symbols (identifiers)").
type Symbol string

// noValue is the sentinel type for NO_VALUE; its only instance is NoValue.
type noValue struct{}

func (noValue) String() string { return "NO_VALUE" }

// NoValue is the canonical "absent" marker (spec.md 3).
var NoValue Value = noValue{}

// IsNoValue reports whether v is the NO_VALUE sentinel, including a Go nil
// (nil and NO_VALUE are treated identically by callers that haven't yet
// materialized a cell).
func IsNoValue(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(noValue)
	return ok
}

// Row is an ordered attribute->value map. Key order for output purposes is
// tracked by the owning Relation's Columns, not by Row itself, matching
// spec.md's "columns attribute... defines projection order."
type Row map[string]Value

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new row containing every key of r overlaid by every key
// of other; other wins on collision (spec.md 4.5.1 merge clause, and the
// built-in `merge` function of spec.md section 3).
func Merge(r, other Row) Row {
	out := make(Row, len(r)+len(other))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Relation is an ordered sequence of rows plus a Columns attribute: an
// ordered list of attribute names defining projection order and
// completeness (spec.md 3).
type Relation struct {
	Rows    []Row
	Columns []string

	// ColumnTypes optionally declares a statistical type (spec.md 6) per
	// column; nil means no declared types, and CoerceColumns is a no-op.
	ColumnTypes map[string]StatType
}

// NewRelation builds a Relation from rows and an explicit column order.
func NewRelation(columns []string, rows ...Row) *Relation {
	return &Relation{Rows: rows, Columns: append([]string(nil), columns...)}
}

// CoerceColumns applies Coerce to every cell whose column has a declared
// StatType (spec.md 6: "coercion is best-effort and does not alter the
// relational schema"). A cell that fails to coerce is left as-is; Columns
// is never changed.
func (r *Relation) CoerceColumns() *Relation {
	if len(r.ColumnTypes) == 0 {
		return r
	}
	out := make([]Row, len(r.Rows))
	for i, row := range r.Rows {
		nr := row.Clone()
		for col, st := range r.ColumnTypes {
			v, ok := nr[col]
			if !ok {
				continue
			}
			if coerced, _, err := Coerce(st, v); err == nil {
				nr[col] = coerced
			}
		}
		out[i] = nr
	}
	return &Relation{Rows: out, Columns: r.Columns, ColumnTypes: r.ColumnTypes}
}

// AddPlaceholders unions every row's keys with r.Columns and any other
// row's keys, inserting NO_VALUE for any missing cell, and returns a new
// Relation with an updated Columns list (spec.md 3 "Placeholders", and the
// invariant spec.md 8.1: add_placeholders is idempotent).
func (r *Relation) AddPlaceholders() *Relation {
	seen := make(map[string]bool)
	var cols []string
	addCol := func(c string) {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, c := range r.Columns {
		addCol(c)
	}
	for _, row := range r.Rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			addCol(k)
		}
	}
	out := make([]Row, len(r.Rows))
	for i, row := range r.Rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := row[c]; ok {
				nr[c] = v
			} else {
				nr[c] = NoValue
			}
		}
		out[i] = nr
	}
	return &Relation{Rows: out, Columns: cols, ColumnTypes: r.ColumnTypes}
}

// Comparator orders two values, returning <0, 0, >0 like sort.Interface's
// Less but three-way (spec.md 4.4 "ascending"/"descending").
type Comparator func(a, b Value) int

// Reverse returns the comparator that orders in the opposite direction.
func (c Comparator) Reverse() Comparator {
	return func(a, b Value) int { return -c(a, b) }
}

// Ascending is the default comparator: numeric/string/bool ordering with
// NoValue sorting last.
var Ascending Comparator = compareAscending

func compareAscending(a, b Value) int {
	if IsNoValue(a) && IsNoValue(b) {
		return 0
	}
	if IsNoValue(a) {
		return 1
	}
	if IsNoValue(b) {
		return -1
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Predicate names a built-in comparison function by symbol (spec.md 4.4
// "predicate_expr -> a symbol naming a built-in comparison").
type Predicate string

// Env is the evaluation environment: built-ins, named tables, named models,
// and the two distinguished defaults `data` and `model` (spec.md 3).
type Env struct {
	vars         map[string]Value
	DefaultTable string
	DefaultModel string
}

// NewEnv builds an environment preloaded with the built-in functions.
func NewEnv() *Env {
	e := &Env{vars: make(map[string]Value), DefaultTable: "data", DefaultModel: "model"}
	for name, fn := range builtins() {
		e.vars[name] = fn
	}
	return e
}

// Extend returns a new Env sharing e's built-ins, adding/overriding name.
func (e *Env) Extend(name string, v Value) *Env {
	n := &Env{vars: make(map[string]Value, len(e.vars)+1), DefaultTable: e.DefaultTable, DefaultModel: e.DefaultModel}
	for k, val := range e.vars {
		n.vars[k] = val
	}
	n.vars[name] = v
	return n
}

// ExtendAll returns a new Env with every key of m set, later keys winning
// on collision with existing bindings.
func (e *Env) ExtendAll(m map[string]Value) *Env {
	n := &Env{vars: make(map[string]Value, len(e.vars)+len(m)), DefaultTable: e.DefaultTable, DefaultModel: e.DefaultModel}
	for k, val := range e.vars {
		n.vars[k] = val
	}
	for k, val := range m {
		n.vars[k] = val
	}
	return n
}

// Lookup returns env[name], raising ErrUnboundName if absent (spec.md 4.4
// "ref -> env[name] with a hard error if the key is absent").
func (e *Env) Lookup(name string) (Value, error) {
	if v, ok := e.vars[name]; ok {
		return v, nil
	}
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, errs.ErrUnboundName.New(name, fmt.Sprint(keys))
}

// Has reports whether name is bound, without raising.
func (e *Env) Has(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// IsBuiltin reports whether name names one of the built-in functions subject
// to input lifting (spec.md 4.7): the comparators =, !=, <, <=, >, >=, and
// exp, merge, pull, logpdf. NewEnv also installs not= and get_else, for
// which IsBuiltin reports false.
func IsBuiltin(name string) bool {
	_, ok := builtinNames[name]
	return ok
}

var builtinNames = map[string]bool{
	"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"exp": true, "merge": true, "pull": true, "logpdf": true,
}

func builtins() map[string]Value {
	cmp := func(op func(int) bool) Value {
		return func(args ...Value) (Value, error) {
			return op(compareAscending(args[0], args[1])), nil
		}
	}
	return map[string]Value{
		"=":   cmp(func(c int) bool { return c == 0 }),
		"!=":  func(args ...Value) (Value, error) { return !valuesEqual(args[0], args[1]), nil },
		"not=": func(args ...Value) (Value, error) { return !valuesEqual(args[0], args[1]), nil },
		"<":   cmp(func(c int) bool { return c < 0 }),
		"<=":  cmp(func(c int) bool { return c <= 0 }),
		">":   cmp(func(c int) bool { return c > 0 }),
		">=":  cmp(func(c int) bool { return c >= 0 }),
		"exp": func(args ...Value) (Value, error) {
			f, ok := asFloat(args[0])
			if !ok {
				return nil, fmt.Errorf("exp: not a number: %v", args[0])
			}
			return math.Exp(f), nil
		},
		"merge": func(args ...Value) (Value, error) {
			r, ok1 := args[0].(Row)
			o, ok2 := args[1].(Row)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("merge: arguments must be rows")
			}
			return Merge(r, o), nil
		},
		"pull": Pull,
		"logpdf": func(args ...Value) (Value, error) {
			if len(args) != 3 {
				return nil, fmt.Errorf("logpdf: expected (model, targets, constraints)")
			}
			m, ok := args[0].(logpdfer)
			if !ok {
				return nil, fmt.Errorf("logpdf: first argument is not a model")
			}
			targets, _ := args[1].(Row)
			constraints, _ := args[2].(Row)
			return m.Logpdf(targets, constraints)
		},
		"get_else": func(args ...Value) (Value, error) {
			row, _ := args[0].(Row)
			key, _ := args[1].(string)
			if v, ok := row[key]; ok && !IsNoValue(v) {
				return v, nil
			}
			return args[2], nil
		},
	}
}

// logpdfer is the structural subset of gpm.GPM this package needs for the
// `logpdf` built-in; declared locally rather than imported because
// internal/gpm imports internal/value (a real import from that direction
// would cycle).
type logpdfer interface {
	Logpdf(targets, constraints Row) (float64, error)
}

func valuesEqual(a, b Value) bool {
	if IsNoValue(a) && IsNoValue(b) {
		return true
	}
	if IsNoValue(a) != IsNoValue(b) {
		return false
	}
	return compareAscending(a, b) == 0
}

// Pull materializes a row by projecting attributes from a Row (spec.md 4.6
// "pull to materialize a row"): attrs "*" copies every cell, a single
// attribute name or a []string projects those attributes, with NO_VALUE for
// any that are missing. Call shape: Pull(row Row, attrs interface{}).
func Pull(args ...Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("pull: expected (row, attrs)")
	}
	row, ok := args[0].(Row)
	if !ok {
		return nil, fmt.Errorf("pull: first argument must be a row")
	}
	switch attrs := args[1].(type) {
	case string:
		if attrs == "*" {
			return row.Clone(), nil
		}
		v, ok := row[attrs]
		if !ok {
			v = NoValue
		}
		return Row{attrs: v}, nil
	case []string:
		out := make(Row, len(attrs))
		for _, a := range attrs {
			if v, ok := row[a]; ok {
				out[a] = v
			} else {
				out[a] = NoValue
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pull: unsupported attrs %T", attrs)
	}
}

// StatType names the three statistical types of spec.md 6.
type StatType string

const (
	Binary      StatType = "binary"
	Categorical StatType = "categorical"
	Gaussian    StatType = "gaussian"
)

// Coerce applies best-effort pre-coercion for a declared statistical type:
// binary->bool, categorical->string, gaussian->float64 (spec.md 6). It
// never alters the relational schema, only the cell's dynamic type, and
// leaves NO_VALUE untouched. Mirrors the teacher's Convert-style
// "(converted, ok, err)" shape referenced by engine.go's bindingsToExprs;
// the actual conversions are done by spf13/cast, the teacher's own direct
// dependency for value casting.
func Coerce(t StatType, v Value) (Value, bool, error) {
	if IsNoValue(v) {
		return v, false, nil
	}
	switch t {
	case Binary:
		if b, ok := v.(bool); ok {
			return b, false, nil
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return v, false, fmt.Errorf("cannot coerce %v to binary", v)
		}
		return b, true, nil
	case Categorical:
		if s, ok := v.(string); ok {
			return s, false, nil
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return v, false, fmt.Errorf("cannot coerce %v to categorical", v)
		}
		return s, true, nil
	case Gaussian:
		if f, ok := v.(float64); ok {
			return f, false, nil
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return v, false, fmt.Errorf("cannot coerce %v to gaussian", v)
		}
		return f, true, nil
	default:
		return v, false, nil
	}
}
