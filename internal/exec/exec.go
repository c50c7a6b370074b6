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

// Package exec implements the executor (spec.md 4.7): it builds the
// per-call row database, resolves a from_clause to a row source (the named
// table `data`, a nested SELECT, or a bounded GENERATE stream), compiles and
// runs the query via internal/ir, and applies the post-processing
// transducer pipeline (strip NO_VALUE cells, sort, LIMIT, strip private
// attributes) before handing back the result relation.
//
// Grounded on the teacher's Engine.Query(ctx, query) (schema, iter, error)
// shape (engine.go): a single call that parses, validates, plans and drains
// to a materialized result, adapted here to spec.md's relation-valued
// result instead of a streaming sql.RowIter (spec.md 9 already decided in
// favor of full materialization for the reference executor; see DESIGN.md).
package exec

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inferenceql/iqlquery/internal/compiler"
	"github.com/inferenceql/iqlquery/internal/errs"
	"github.com/inferenceql/iqlquery/internal/eval"
	"github.com/inferenceql/iqlquery/internal/ir"
	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/plan"
	"github.com/inferenceql/iqlquery/internal/value"
)

// Select evaluates a select_expr node to its result relation. ev.SelectExpr
// must be wired back to Select (or an equivalent) before evaluating any
// tree that may contain a nested select_expr/subquery_expr.
func Select(n *node.Node, env *value.Env, ev *eval.Evaluator) (*value.Relation, error) {
	rows, sourceCols, err := resolveFromClause(n, env, ev)
	if err != nil {
		return nil, err
	}
	rows, sourceCols = applyAdding(n, rows, sourceCols)
	db := buildDatabase(rows)

	listNode, ok := n.Get("select_list")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("select_expr", "missing select_list")
	}
	comp := compiler.New(env, ev)
	find, keys, selWhere, findAll, findVar, err := comp.CompileSelectList(listNode)
	if err != nil {
		return nil, err
	}

	var where []ir.Clause
	if whereNode, ok := n.Get("where_clause"); ok {
		extra, err := comp.CompileWhereClause(whereNode)
		if err != nil {
			return nil, err
		}
		where = append(where, extra...)
	}

	frag := plan.Fragment{Find: find, Keys: keys, Where: append(selWhere, where...), FindAll: findAll, FindVar: findVar}
	p := plan.Assemble(db, frag)

	result, err := ir.Execute(p, nil)
	if err != nil {
		return nil, err
	}

	cols := result.Columns
	if len(cols) == 0 {
		cols = sourceCols
	}
	rel := &value.Relation{Rows: result.Rows, Columns: cols}
	rel = stripNoValue(rel)
	rel = sortRelation(rel, n)
	rel = applyLimit(rel, n)
	rel = stripPrivate(rel)
	return rel, nil
}

// resolveFromClause resolves a from_clause to a concrete row slice and the
// column list describing it, handling the three sources of spec.md 4.4/4.3:
// the named table `data`, a nested SELECT (materialized eagerly), and a
// GENERATE-backed stream (validator guarantees a LIMIT is present).
func resolveFromClause(n *node.Node, env *value.Env, ev *eval.Evaluator) ([]value.Row, []string, error) {
	from, ok := n.Get("from_clause")
	if !ok {
		return nil, nil, nil
	}
	if nameNode, ok := from.Get("name"); ok {
		lit, _ := nameNode.OnlyLeaf()
		tv, err := env.Lookup(lit)
		if err != nil {
			return nil, nil, err
		}
		rel, ok := tv.(*value.Relation)
		if !ok {
			return nil, nil, errs.ErrUnsupportedTag.New("from_clause", "referenced name is not a relation")
		}
		rel = rel.CoerceColumns()
		return rel.Rows, rel.Columns, nil
	}
	if sub, ok := from.Get("subquery_expr"); ok {
		inner, ok := sub.OnlyChild()
		if !ok {
			return nil, nil, errs.ErrUnsupportedTag.New("subquery_expr", "expected select_expr child")
		}
		rel, err := Select(inner, env, ev)
		if err != nil {
			return nil, nil, err
		}
		return rel.Rows, rel.Columns, nil
	}
	if genTable, ok := from.Get("generated_table_expr"); ok {
		limitNode, ok := n.Get("limit_clause")
		if !ok {
			return nil, nil, errs.ErrIncorrectInput.New("GENERATE source requires a LIMIT clause")
		}
		n, err := readLimit(limitNode)
		if err != nil {
			return nil, nil, err
		}
		v, err := ev.Eval(genTable, env)
		if err != nil {
			return nil, nil, err
		}
		stream, ok := v.(*eval.RowStream)
		if !ok {
			return nil, nil, errs.ErrUnsupportedTag.New("generated_table_expr", "expected a row stream")
		}
		logrus.WithField("cap", n).Debug("iqlquery: draining generated table up to LIMIT")
		rows := make([]value.Row, 0, n)
		var cols []string
		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			row, err := stream.Next()
			if err != nil {
				return nil, nil, errs.ErrProvider.Wrap(err, err.Error())
			}
			rows = append(rows, row)
			for k := range row {
				if !seen[k] {
					seen[k] = true
					cols = append(cols, k)
				}
			}
		}
		return rows, cols, nil
	}
	return nil, nil, errs.ErrUnsupportedTag.New("from_clause", "unrecognized source")
}

// applyAdding implements spec.md 4.7 step 2's ADDING handling: it injects a
// synthetic NO_VALUE-valued column into the source relation before the row
// database is built, so the column participates in pull/get_else like any
// other but carries no value on any row (stripNoValue removes its cells from
// the final result, leaving only its presence in the result's column list).
func applyAdding(n *node.Node, rows []value.Row, cols []string) ([]value.Row, []string) {
	adding, ok := n.Get("adding_clause")
	if !ok {
		return rows, cols
	}
	nameNode, ok := adding.Get("name")
	if !ok {
		return rows, cols
	}
	colName, _ := nameNode.OnlyLeaf()

	out := make([]value.Row, len(rows))
	for i, r := range rows {
		nr := r.Clone()
		nr[colName] = value.NoValue
		out[i] = nr
	}

	newCols := cols
	for _, c := range cols {
		if c == colName {
			return out, newCols
		}
	}
	newCols = append(append([]string(nil), cols...), colName)
	return out, newCols
}

func readLimit(n *node.Node) (int, error) {
	natNode, ok := n.Get("nat")
	if !ok {
		return 0, errs.ErrUnsupportedTag.New("limit_clause", "missing nat")
	}
	lit, _ := natNode.OnlyLeaf()
	out := 0
	for _, r := range lit {
		out = out*10 + int(r-'0')
	}
	return out, nil
}

// buildDatabase tags every row with iql_type="row" and an auto-assigned
// db_id, scoped to this single call (spec.md section 3's row database,
// section 5's per-call isolation).
func buildDatabase(rows []value.Row) *ir.Database {
	db := &ir.Database{Rows: make([]value.Row, len(rows))}
	for i, r := range rows {
		tagged := r.Clone()
		tagged["iql_type"] = value.Symbol("row")
		tagged["db_id"] = int64(i)
		db.Rows[i] = tagged
	}
	return db
}

func stripNoValue(rel *value.Relation) *value.Relation {
	out := make([]value.Row, len(rel.Rows))
	for i, r := range rel.Rows {
		nr := value.Row{}
		for k, v := range r {
			if !value.IsNoValue(v) {
				nr[k] = v
			}
		}
		out[i] = nr
	}
	return &value.Relation{Rows: out, Columns: rel.Columns}
}

// sortRelation applies ORDER BY, defaulting to ascending by db_id when no
// order_by_clause is present (spec.md 4.7 post-processing).
func sortRelation(rel *value.Relation, n *node.Node) *value.Relation {
	key := "db_id"
	cmp := value.Ascending
	if ob, ok := n.Get("order_by_clause"); ok {
		if nameNode, ok := ob.Get("name"); ok {
			key, _ = nameNode.OnlyLeaf()
		}
		if _, ok := ob.Get("descending"); ok {
			cmp = cmp.Reverse()
		}
	}
	rows := append([]value.Row(nil), rel.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		return cmp(rows[i][key], rows[j][key]) < 0
	})
	return &value.Relation{Rows: rows, Columns: rel.Columns}
}

func applyLimit(rel *value.Relation, n *node.Node) *value.Relation {
	limitNode, ok := n.Get("limit_clause")
	if !ok {
		return rel
	}
	lim, err := readLimit(limitNode)
	if err != nil || lim >= len(rel.Rows) {
		return rel
	}
	return &value.Relation{Rows: rel.Rows[:lim], Columns: rel.Columns}
}

// stripPrivate removes the engine-internal db_id/iql_type attributes before
// handing the relation back to the caller (spec.md 4.7 final step).
func stripPrivate(rel *value.Relation) *value.Relation {
	private := map[string]bool{"db_id": true, "iql_type": true}
	out := make([]value.Row, len(rel.Rows))
	for i, r := range rel.Rows {
		nr := value.Row{}
		for k, v := range r {
			if !private[k] {
				nr[k] = v
			}
		}
		out[i] = nr
	}
	cols := make([]string, 0, len(rel.Columns))
	for _, c := range rel.Columns {
		if !private[c] {
			cols = append(cols, c)
		}
	}
	return &value.Relation{Rows: out, Columns: cols}
}
