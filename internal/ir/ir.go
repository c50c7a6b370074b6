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

// Package ir implements the Datalog-style intermediate representation of
// spec.md section 4.6 and a minimal conjunctive-query evaluator honoring
// its operators (datasource binding via $, pattern clauses, predicate
// calls, get_else, ground, or_join/and, pull).
//
// spec.md explicitly allows either embedding an existing Datalog engine or
// implementing a minimal one; see DESIGN.md and SPEC_FULL.md's DOMAIN STACK
// section for why github.com/kevinawalsh/datalog (present in the retrieved
// pack) was not wired in: its fact database is process-wide mutable state
// with no documented per-instance reset, which conflicts with spec.md 5's
// per-call isolation requirement. This package borrows that library's
// Var/Const/Literal vocabulary for naming only. Execute evaluates a plan in
// one pass over the database rows and returns all result rows at once.
package ir

import (
	"github.com/inferenceql/iqlquery/internal/value"
)

// Term is either a variable reference or a constant, mirroring the
// Var/Const distinction of github.com/kevinawalsh/datalog's Literal
// arguments.
type Term struct {
	name     string
	isVar    bool
	constant value.Value
}

// Var builds a variable term.
func Var(name string) Term { return Term{name: name, isVar: true} }

// Const builds a constant term.
func Const(v value.Value) Term { return Term{constant: v} }

// CurrentRow is the special term denoting "the row bound to the entity
// currently under evaluation", used as the datasource argument of pull,
// get_else and the row-event protocol's merge source (spec.md 4.5.1).
func CurrentRow() Term { return Term{name: "$row", isVar: true} }

// IsVar reports whether t is a variable reference.
func (t Term) IsVar() bool { return t.isVar }

// Name returns the variable's name; only meaningful when IsVar() is true.
func (t Term) Name() string { return t.name }

// ClauseKind discriminates the where-clause shapes of spec.md 4.6.
type ClauseKind int

const (
	// Pattern matches `[?e attr value]` against the row bound to E.
	Pattern ClauseKind = iota
	// Call binds Result to Fn(Args...), spec.md's `[(fn args...) result]`.
	Call
	// Ground binds Result to a fixed constant.
	Ground
	// OrJoin evaluates each of Subclauses against a snapshot of the current
	// bindings, succeeding if any one succeeds (spec.md 4.5 or_condition,
	// 4.5.2 or_join free-variable closure).
	OrJoin
	// Assert calls Fn(Args...) and fails the conjunction unless the result
	// is truthy, without binding a variable. Used for predicate filtering
	// clauses like `[(not= sym NO_VALUE)]` (spec.md 4.5 presence_condition,
	// predicate_condition).
	Assert
)

// Clause is one where-entry of a compiled query.
type Clause struct {
	Kind ClauseKind

	// Pattern fields.
	E    string
	Attr string
	Val  Term

	// Call fields. Fn resolves (via bindings, post input-lifting, or via
	// the built-in registry pre-lifting) to a func(...value.Value)
	// (value.Value, error).
	Fn     Term
	Args   []Term
	Result string

	// Ground field.
	ConstVal value.Value

	// OrJoin fields.
	Bound      []string
	Subclauses [][]Clause
}

// PatternClause builds `[e attr val]`.
func PatternClause(e, attr string, val Term) Clause {
	return Clause{Kind: Pattern, E: e, Attr: attr, Val: val}
}

// CallClause builds `[(fn args...) result]`.
func CallClause(result string, fn Term, args ...Term) Clause {
	return Clause{Kind: Call, Fn: fn, Args: args, Result: result}
}

// AssertClause builds a filtering predicate clause `[(fn args...)]`: the
// conjunction fails unless the call's result is truthy.
func AssertClause(fn Term, args ...Term) Clause {
	return Clause{Kind: Assert, Fn: fn, Args: args}
}

// GroundClause builds a constant binding.
func GroundClause(result string, v value.Value) Clause {
	return Clause{Kind: Ground, Result: result, ConstVal: v}
}

// OrJoinClause builds an or-join over subclauses, bound listing the
// variables assumed already bound on entry.
func OrJoinClause(bound []string, subclauses ...[]Clause) Clause {
	return Clause{Kind: OrJoin, Bound: append([]string(nil), bound...), Subclauses: subclauses}
}

// Query is the Datalog-like query proper: find/keys/in/where (spec.md 3).
type Query struct {
	// FindAll, when true, means the query's sole find-spec is `(pull ?e *)`:
	// the whole merged row bound to FindVar is returned verbatim.
	FindAll bool
	FindVar string

	// Find/Keys are parallel lists: Find[i] is a bound variable name,
	// Keys[i] is the output attribute it's projected under.
	Find []string
	Keys []string

	// In lists the positional input variable names; In[0] is conventionally
	// "$", the row database (spec.md 3 IR query plan invariant).
	In []string

	Where []Clause
}

// Func is a built-in or input-bound callable value usable from a Call
// clause (spec.md section 3's built-in functions: comparators, exp, merge,
// logpdf, pull).
type Func func(args ...value.Value) (value.Value, error)

// Plan pairs a Query with its positional Inputs; len(Query.In) ==
// len(Inputs) is an invariant of spec.md section 3.
type Plan struct {
	Query  Query
	Inputs []value.Value
}

// Database is the row database of spec.md section 3: an ordered sequence
// of rows each tagged with iql_type="row" and an auto-assigned integer
// db_id. It is constructed fresh per SELECT invocation by internal/exec and
// never persists beyond that call (spec.md section 5).
type Database struct {
	Rows []value.Row
}

// Result is the output rows together with the column list used to populate
// its Relation-level Columns attribute (spec.md 4.7 step 5).
type Result struct {
	Rows    []value.Row
	Columns []string
}

// Registry resolves built-in/input function names to callables, used when
// a Call clause's Fn term has not (yet) been input-lifted to a bound
// variable (spec.md 4.7 describes input-lifting as a planner pass that
// happens before execution, but the evaluator tolerates either form so
// unit tests can exercise clauses directly).
type Registry map[string]Func

// Execute runs a compiled plan to completion, the way a caller consuming
// the teacher's pull-based RowIter would call Next(ctx) until io.EOF —
// here expressed directly as a single pass since the backing iterator
// (Database.Rows) is already materialized by internal/exec.
func Execute(plan Plan, reg Registry) (*Result, error) {
	inputBindings := make(map[string]value.Value, len(plan.Query.In))
	for i, name := range plan.Query.In {
		if i < len(plan.Inputs) {
			inputBindings[name] = plan.Inputs[i]
		}
	}
	db, _ := inputBindings["$"].(*Database)
	if db == nil {
		db = &Database{}
	}

	var results []value.Row
	for _, row := range db.Rows {
		bindings := make(map[string]value.Value, len(inputBindings)+4)
		for k, v := range inputBindings {
			bindings[k] = v
		}
		ok, err := evalClauses(plan.Query.Where, row, bindings, reg)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if plan.Query.FindAll {
			rv, ok := bindings[plan.Query.FindVar]
			if !ok {
				rv = row.Clone()
			}
			rowVal, _ := rv.(value.Row)
			if rowVal == nil {
				rowVal = row.Clone()
			}
			results = append(results, rowVal)
			continue
		}
		out := value.Row{}
		for i, v := range plan.Query.Find {
			cell, ok := bindings[v]
			if !ok {
				cell = value.NoValue
			}
			out[plan.Query.Keys[i]] = cell
		}
		results = append(results, out)
	}

	cols := plan.Query.Keys
	if len(cols) == 0 && len(results) > 0 {
		cols = unionKeys(results)
	}
	return &Result{Rows: results, Columns: cols}, nil
}

func unionKeys(rows []value.Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

func evalClauses(clauses []Clause, row value.Row, bindings map[string]value.Value, reg Registry) (bool, error) {
	for _, cl := range clauses {
		ok, err := evalClause(cl, row, bindings, reg)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalClause(cl Clause, row value.Row, bindings map[string]value.Value, reg Registry) (bool, error) {
	switch cl.Kind {
	case Pattern:
		cell, ok := row[cl.Attr]
		if !ok {
			cell = value.NoValue
		}
		if !matchTerm(cl.Val, cell, bindings) {
			return false, nil
		}
		bindings[cl.E] = dbID(row)
		return true, nil
	case Ground:
		bindings[cl.Result] = cl.ConstVal
		return true, nil
	case Call:
		fn, err := resolveFunc(cl.Fn, bindings, reg)
		if err != nil {
			return false, err
		}
		args := make([]value.Value, len(cl.Args))
		for i, a := range cl.Args {
			args[i] = resolveTerm(a, row, bindings)
		}
		res, err := fn(args...)
		if err != nil {
			return false, err
		}
		bindings[cl.Result] = res
		return true, nil
	case Assert:
		fn, err := resolveFunc(cl.Fn, bindings, reg)
		if err != nil {
			return false, err
		}
		args := make([]value.Value, len(cl.Args))
		for i, a := range cl.Args {
			args[i] = resolveTerm(a, row, bindings)
		}
		res, err := fn(args...)
		if err != nil {
			return false, err
		}
		truthy, _ := res.(bool)
		return truthy, nil
	case OrJoin:
		for _, sub := range cl.Subclauses {
			trial := make(map[string]value.Value, len(bindings))
			for k, v := range bindings {
				trial[k] = v
			}
			ok, err := evalClauses(sub, row, trial, reg)
			if err != nil {
				return false, err
			}
			if ok {
				for _, b := range cl.Bound {
					if v, ok := trial[b]; ok {
						bindings[b] = v
					}
				}
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func dbID(row value.Row) value.Value {
	if v, ok := row["db_id"]; ok {
		return v
	}
	return value.NoValue
}

func matchTerm(t Term, v value.Value, bindings map[string]value.Value) bool {
	if t.isVar {
		if existing, ok := bindings[t.name]; ok {
			return valuesEqual(existing, v)
		}
		bindings[t.name] = v
		return true
	}
	return valuesEqual(t.constant, v)
}

func resolveTerm(t Term, row value.Row, bindings map[string]value.Value) value.Value {
	if t.isVar {
		if t.name == "$row" {
			return row
		}
		if v, ok := bindings[t.name]; ok {
			return v
		}
		return value.NoValue
	}
	return t.constant
}

func resolveFunc(t Term, bindings map[string]value.Value, reg Registry) (Func, error) {
	v := resolveTerm(t, nil, bindings)
	switch fn := v.(type) {
	case Func:
		return fn, nil
	case func(args ...value.Value) (value.Value, error):
		return fn, nil
	case string:
		if f, ok := reg[fn]; ok {
			return f, nil
		}
		return nil, &UnresolvedFuncError{Name: fn}
	default:
		return nil, &UnresolvedFuncError{Name: "<non-callable>"}
	}
}

func valuesEqual(a, b value.Value) bool {
	if value.IsNoValue(a) && value.IsNoValue(b) {
		return true
	}
	if value.IsNoValue(a) != value.IsNoValue(b) {
		return false
	}
	return value.Ascending(a, b) == 0
}

// UnresolvedFuncError is raised when a Call clause's Fn term does not
// resolve to a callable, the clause-compilation-failure case of spec.md 7.
type UnresolvedFuncError struct{ Name string }

func (e *UnresolvedFuncError) Error() string {
	return "ir: unresolved function " + e.Name
}
