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

// Package compiler implements the clause compiler (spec.md 4.5): it turns
// a select_expr's select_list and where_clause into an internal/ir.Query
// fragment, resolving built-ins and literal sub-expressions against the
// environment once at compile time rather than per row. internal/exec
// supplies the row source (the `$` database) and drives execution.
//
// Grounded on the same rule-dispatch idiom as internal/validator, adapted
// from a pass/fail predicate to a clause-emitting compiler; each
// compileX function mirrors one production of spec.md 4.5's clause table.
package compiler

import (
	"fmt"

	"github.com/mitchellh/hashstructure"
	uuid "github.com/satori/go.uuid"

	"github.com/inferenceql/iqlquery/internal/errs"
	"github.com/inferenceql/iqlquery/internal/eval"
	"github.com/inferenceql/iqlquery/internal/gpm"
	"github.com/inferenceql/iqlquery/internal/ir"
	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/value"
)

// Compiler turns one select_expr's select_list/where_clause into ir.Clauses.
// genPrefix is a per-compile UUID so every machine-generated variable name
// is unmistakably distinct from any user-typed symbol, however it's spelled
// (spec.md 4.5.2's "free non-generated variables" distinction). memo
// caches comparison clauses by a structural hash of their inputs so a
// repeated `col OP literal` condition (e.g. the same predicate reused across
// an or_condition's branches) compiles once.
type Compiler struct {
	env       *value.Env
	ev        *eval.Evaluator
	n         int
	genPrefix string
	memo      map[uint64][]ir.Clause
}

// New builds a Compiler that resolves built-ins and literal sub-expressions
// against env, using ev to evaluate model_expr and scalar sub-trees.
func New(env *value.Env, ev *eval.Evaluator) *Compiler {
	return &Compiler{env: env, ev: ev, genPrefix: uuid.NewV4().String(), memo: map[uint64][]ir.Clause{}}
}

func (c *Compiler) fresh(prefix string) string {
	c.n++
	return fmt.Sprintf("?%s-%s%d", c.genPrefix, prefix, c.n)
}

// memoize returns the cached clause set for key, computing and storing it
// via build on first use.
func (c *Compiler) memoize(key interface{}, build func() ([]ir.Clause, error)) ([]ir.Clause, error) {
	h, err := hashstructure.Hash(key, nil)
	if err != nil {
		return build()
	}
	if cached, ok := c.memo[h]; ok {
		return cached, nil
	}
	out, err := build()
	if err != nil {
		return nil, err
	}
	c.memo[h] = out
	return out, nil
}

func (c *Compiler) builtin(name string) (value.Value, error) {
	return c.env.Lookup(name)
}

// CompileSelectList compiles select_expr's select_list to parallel
// Find/Keys lists and the where-clauses that bind them (a get_else call per
// column_selection and rowid_selection, the row-event protocol plus logpdf
// calls per logpdf clause). A bare `SELECT *` list requests FindAll mode,
// reported via the second return value.
func (c *Compiler) CompileSelectList(list *node.Node) (find, keys []string, where []ir.Clause, findAll bool, findAllVar string, err error) {
	if _, ok := list.Get("star"); ok {
		v, clauses, ferr := c.compilePullAll()
		if ferr != nil {
			return nil, nil, nil, false, "", ferr
		}
		return nil, nil, clauses, true, v, nil
	}
	for _, sel := range list.ChildNodes() {
		switch sel.Tag {
		case "column_selection":
			v, clauses, alias, cerr := c.compileColumnSelection(sel)
			if cerr != nil {
				return nil, nil, nil, false, "", cerr
			}
			find = append(find, v)
			keys = append(keys, alias)
			where = append(where, clauses...)
		case "probability_clause", "density_clause":
			v, clauses, alias, cerr := c.compileLogpdfClause(sel)
			if cerr != nil {
				return nil, nil, nil, false, "", cerr
			}
			find = append(find, v)
			keys = append(keys, alias)
			where = append(where, clauses...)
		case "rowid_selection":
			v, clauses, alias, cerr := c.compileRowidSelection(sel)
			if cerr != nil {
				return nil, nil, nil, false, "", cerr
			}
			find = append(find, v)
			keys = append(keys, alias)
			where = append(where, clauses...)
		default:
			return nil, nil, nil, false, "", errs.ErrUnsupportedTag.New(sel.Tag, "select_list entry")
		}
	}
	return find, keys, where, false, "", nil
}

func (c *Compiler) compilePullAll() (string, []ir.Clause, error) {
	pull, err := c.builtin("pull")
	if err != nil {
		return "", nil, err
	}
	v := c.fresh("row")
	return v, []ir.Clause{ir.CallClause(v, ir.Const(pull), ir.CurrentRow(), ir.Const("*"))}, nil
}

func (c *Compiler) compileColumnSelection(sel *node.Node) (string, []ir.Clause, string, error) {
	nameNode, ok := sel.Get("name")
	if !ok {
		return "", nil, "", errs.ErrUnsupportedTag.New("column_selection", "missing name")
	}
	colName, _ := nameNode.OnlyLeaf()
	alias := colName
	if asNode, ok := sel.Get("as_clause"); ok {
		if aliasNameNode, ok := asNode.Get("name"); ok {
			alias, _ = aliasNameNode.OnlyLeaf()
		}
	}
	getElse, err := c.builtin("get_else")
	if err != nil {
		return "", nil, "", err
	}
	v := c.fresh("col")
	cl := ir.CallClause(v, ir.Const(getElse), ir.CurrentRow(), ir.Const(colName), ir.Const(value.NoValue))
	return v, []ir.Clause{cl}, alias, nil
}

// compileRowidSelection implements the rowid_selection clause table entry
// (spec.md 4.5: `find ?e, keys [rowid]`): it reads the row's db_id, the
// identity every row is tagged with when the row database is built.
func (c *Compiler) compileRowidSelection(sel *node.Node) (string, []ir.Clause, string, error) {
	alias := "rowid"
	if asNode, ok := sel.Get("as_clause"); ok {
		if aliasNameNode, ok := asNode.Get("name"); ok {
			alias, _ = aliasNameNode.OnlyLeaf()
		}
	}
	getElse, err := c.builtin("get_else")
	if err != nil {
		return "", nil, "", err
	}
	v := c.fresh("rowid")
	cl := ir.CallClause(v, ir.Const(getElse), ir.CurrentRow(), ir.Const("db_id"), ir.Const(value.NoValue))
	return v, []ir.Clause{cl}, alias, nil
}

// compileLogpdfClause implements the row-event protocol (spec.md 4.5.1): it
// compiles an event_list into (1) a row clause pulling the requested
// attributes off the currently-bound row, (2) a ground clause for the
// event_list's literal equality events, and (3) a merge clause combining
// both into the target row passed to logpdf.
func (c *Compiler) compileLogpdfClause(sel *node.Node) (string, []ir.Clause, string, error) {
	eventsNode, ok := sel.Get("event_list")
	if !ok {
		return "", nil, "", errs.ErrUnsupportedTag.New(sel.Tag, "missing event_list")
	}
	var modelNode *node.Node
	for _, cn := range sel.ChildNodes() {
		switch cn.Tag {
		case "model_expr", "conditioned_by_expr", "constrained_by_expr":
			modelNode = cn
		}
	}
	if modelNode == nil {
		return "", nil, "", errs.ErrUnsupportedTag.New(sel.Tag, "missing model_expr")
	}
	alias := sel.Tag
	if asNode, ok := sel.Get("as_clause"); ok {
		if aliasNameNode, ok := asNode.Get("name"); ok {
			alias, _ = aliasNameNode.OnlyLeaf()
		}
	}

	modelVal, err := c.ev.Eval(modelNode, c.env)
	if err != nil {
		return "", nil, "", err
	}
	model, ok := modelVal.(gpm.GPM)
	if !ok {
		return "", nil, "", errs.ErrUnsupportedTag.New(sel.Tag, "model_expr did not evaluate to a GPM")
	}

	targetVar, clauses, err := c.compileEventList(eventsNode)
	if err != nil {
		return "", nil, "", err
	}

	logpdf, err := c.builtin("logpdf")
	if err != nil {
		return "", nil, "", err
	}
	density := c.fresh("density")
	clauses = append(clauses, ir.CallClause(density, ir.Const(logpdf), ir.Const(model), ir.Var(targetVar), ir.Const(value.Row{})))

	out := density
	if sel.Tag == "probability_clause" {
		// spec.md 4.5's clause table: PROBABILITY OF invokes logpdf then exp,
		// turning the log-density into a probability.
		expFn, eerr := c.builtin("exp")
		if eerr != nil {
			return "", nil, "", eerr
		}
		out = c.fresh("probability")
		clauses = append(clauses, ir.CallClause(out, ir.Const(expFn), ir.Var(density)))
	}
	return out, clauses, alias, nil
}

// compileEventList builds the row-event protocol's three where-entries and
// returns the variable the merged target row is bound to. binop_event
// entries (distribution comparisons) additionally compile to Assert
// clauses filtering on the current row.
func (c *Compiler) compileEventList(events *node.Node) (string, []ir.Clause, error) {
	var clauses []ir.Clause

	var cols []string
	hasStar := false
	for _, child := range events.ChildNodes() {
		switch child.Tag {
		case "star":
			hasStar = true
		case "name_event":
			if n, ok := child.Get("name"); ok {
				lit, _ := n.OnlyLeaf()
				cols = append(cols, lit)
			}
		}
	}
	rowVar := c.fresh("rowpart")
	switch {
	case hasStar:
		pull, err := c.builtin("pull")
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, ir.CallClause(rowVar, ir.Const(pull), ir.CurrentRow(), ir.Const("*")))
	case len(cols) > 0:
		pull, err := c.builtin("pull")
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, ir.CallClause(rowVar, ir.Const(pull), ir.CurrentRow(), ir.Const(cols)))
	default:
		clauses = append(clauses, ir.GroundClause(rowVar, value.Row{}))
	}

	bindRow := value.Row{}
	for _, entry := range events.GetAll("map_entry_expr") {
		v, err := c.ev.Eval(entry, c.env)
		if err != nil {
			return "", nil, err
		}
		row, _ := v.(value.Row)
		for k, vv := range row {
			if !value.IsNoValue(vv) {
				bindRow[k] = vv
			}
		}
	}
	bindVar := c.fresh("bind")
	clauses = append(clauses, ir.GroundClause(bindVar, bindRow))

	mergeFn, err := c.builtin("merge")
	if err != nil {
		return "", nil, err
	}
	mergedVar := c.fresh("merged")
	clauses = append(clauses, ir.CallClause(mergedVar, ir.Const(mergeFn), ir.Var(rowVar), ir.Var(bindVar)))

	for _, entry := range events.GetAll("binop_event") {
		extra, err := c.compileBinopEvent(entry)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, extra...)
	}

	return mergedVar, clauses, nil
}

func (c *Compiler) compileBinopEvent(entry *node.Node) ([]ir.Clause, error) {
	var clauses []ir.Clause
	nameNode, ok := entry.Get("name")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("binop_event", "missing name")
	}
	colName, _ := nameNode.OnlyLeaf()
	opNode, ok := entry.Get("op")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("binop_event", "missing op")
	}
	op, _ := opNode.OnlyLeaf()
	cmp, err := c.builtin(op)
	if err != nil {
		return nil, err
	}
	children := entry.ChildNodes()
	valNode := children[len(children)-1]
	val, err := c.ev.Eval(valNode, c.env)
	if err != nil {
		return nil, err
	}
	getElse, err := c.builtin("get_else")
	if err != nil {
		return nil, err
	}
	colVar := c.fresh("bincol")
	clauses = append(clauses,
		ir.CallClause(colVar, ir.Const(getElse), ir.CurrentRow(), ir.Const(colName), ir.Const(value.NoValue)),
		ir.AssertClause(ir.Const(cmp), ir.Var(colVar), ir.Const(val)),
	)
	return clauses, nil
}

// CompileWhereClause compiles a where_clause's top-level condition tree to
// a slice of Assert/OrJoin clauses (spec.md 4.5's and_condition/
// or_condition/presence_condition/absence_condition/equality_condition/
// predicate_condition table).
func (c *Compiler) CompileWhereClause(where *node.Node) ([]ir.Clause, error) {
	cond, ok := where.OnlyChild()
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("where_clause", "missing condition")
	}
	return c.compileCondition(cond)
}

func (c *Compiler) compileCondition(n *node.Node) ([]ir.Clause, error) {
	switch n.Tag {
	case "and_condition":
		var out []ir.Clause
		for _, cn := range n.ChildNodes() {
			cls, err := c.compileCondition(cn)
			if err != nil {
				return nil, err
			}
			out = append(out, cls...)
		}
		return out, nil
	case "or_condition":
		var branches [][]ir.Clause
		for _, cn := range n.ChildNodes() {
			cls, err := c.compileCondition(cn)
			if err != nil {
				return nil, err
			}
			branches = append(branches, cls)
		}
		return []ir.Clause{ir.OrJoinClause(nil, branches...)}, nil
	case "presence_condition":
		return c.compilePresence(n, true)
	case "absence_condition":
		return c.compilePresence(n, false)
	case "equality_condition":
		return c.compileComparison(n, "=")
	case "predicate_condition":
		opNode, ok := n.GetIn([]string{"predicate_expr", "op"})
		if !ok {
			return nil, errs.ErrUnsupportedTag.New("predicate_condition", "missing predicate op")
		}
		op, _ := opNode.OnlyLeaf()
		return c.compileComparison(n, op)
	default:
		return nil, errs.ErrUnsupportedTag.New(n.Tag, "condition")
	}
}

func (c *Compiler) compilePresence(n *node.Node, present bool) ([]ir.Clause, error) {
	nameNode, ok := n.Get("name")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New(n.Tag, "missing name")
	}
	colName, _ := nameNode.OnlyLeaf()
	getElse, err := c.builtin("get_else")
	if err != nil {
		return nil, err
	}
	op := "!="
	if !present {
		op = "="
	}
	cmp, err := c.builtin(op)
	if err != nil {
		return nil, err
	}
	v := c.fresh("presence")
	return []ir.Clause{
		ir.CallClause(v, ir.Const(getElse), ir.CurrentRow(), ir.Const(colName), ir.Const(value.NoValue)),
		ir.AssertClause(ir.Const(cmp), ir.Var(v), ir.Const(value.NoValue)),
	}, nil
}

func (c *Compiler) compileComparison(n *node.Node, op string) ([]ir.Clause, error) {
	nameNode, ok := n.Get("name")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New(n.Tag, "missing name")
	}
	colName, _ := nameNode.OnlyLeaf()
	children := n.ChildNodes()
	valNode := children[len(children)-1]

	key := struct{ Tag, Col, Op, Val string }{n.Tag, colName, op, valNode.Unparse()}
	return c.memoize(key, func() ([]ir.Clause, error) {
		val, err := c.ev.Eval(valNode, c.env)
		if err != nil {
			return nil, err
		}
		getElse, err := c.builtin("get_else")
		if err != nil {
			return nil, err
		}
		cmp, err := c.builtin(op)
		if err != nil {
			return nil, err
		}
		v := c.fresh("cmp")
		return []ir.Clause{
			ir.CallClause(v, ir.Const(getElse), ir.CurrentRow(), ir.Const(colName), ir.Const(value.NoValue)),
			ir.AssertClause(ir.Const(cmp), ir.Var(v), ir.Const(val)),
		}, nil
	})
}
