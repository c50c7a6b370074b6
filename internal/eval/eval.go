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

// Package eval implements the expression evaluator (spec.md 4.4):
// node-tag-dispatched evaluation of every non-SELECT expression. select_expr
// itself is handled by internal/exec, which calls back into internal/plan
// and internal/compiler; Eval delegates to the Evaluator's SelectExpr hook
// (a SelectFn) to avoid an
// import cycle (exec -> compiler/plan -> eval -> exec).
//
// Dispatch follows the teacher's node-tag-switch idiom (as exercised by
// sql/expression's tests, each expression type exposing Eval(ctx, row) and
// the analyzer dispatching on AST node type); spec.md 9 asks explicitly for
// "a tagged-variant exhaustive match: one variant per recognized tag, with
// a default arm."
package eval

import (
	"github.com/inferenceql/iqlquery/internal/errs"
	"github.com/inferenceql/iqlquery/internal/gpm"
	"github.com/inferenceql/iqlquery/internal/literal"
	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/value"
)

// SelectFn evaluates a select_expr node in env, returning the resulting
// relation. Supplied by the top-level package to avoid an eval<->exec
// import cycle.
type SelectFn func(n *node.Node, env *value.Env) (*value.Relation, error)

// Evaluator holds the hook needed to evaluate nested select_expr nodes.
type Evaluator struct {
	SelectExpr SelectFn
}

// Eval evaluates any non-select_expr parse-tree node to a value.Value.
func (ev *Evaluator) Eval(n *node.Node, env *value.Env) (value.Value, error) {
	if n == nil {
		return value.NoValue, nil
	}
	switch n.Tag {
	case "bool", "int", "nat", "float", "string", "simple_symbol", "null":
		return literal.Read(n)

	case "name":
		lit, _ := n.OnlyLeaf()
		return value.Symbol(lit), nil

	case "ref":
		nameNode, ok := n.Get("name")
		if !ok {
			return nil, errs.ErrUnsupportedTag.New("ref", "missing name child")
		}
		lit, _ := nameNode.OnlyLeaf()
		return env.Lookup(lit)

	case "predicate_expr":
		opNode, ok := n.Get("op")
		if !ok {
			return nil, errs.ErrUnsupportedTag.New("predicate_expr", "missing op child")
		}
		lit, _ := opNode.OnlyLeaf()
		return value.Predicate(lit), nil

	case "ascending":
		return value.Ascending, nil
	case "descending":
		return value.Ascending.Reverse(), nil

	case "variable_list":
		return ev.evalVariableList(n, env)

	case "map_entry_expr":
		return ev.evalMapEntry(n, env)
	case "map_list", "map_expr":
		return ev.evalMap(n, env)

	case "event_list":
		return ev.EventMap(n, env)

	case "model_expr":
		if cn, ok := n.OnlyChild(); ok {
			return ev.Eval(cn, env)
		}
		return nil, errs.ErrUnsupportedTag.New("model_expr", "expected single child")

	case "conditioned_by_expr":
		return ev.evalConditionedBy(n, env)
	case "constrained_by_expr":
		return ev.evalConstrainedBy(n, env)
	case "generate_expr":
		return ev.evalGenerate(n, env)
	case "generated_table_expr":
		return ev.evalGeneratedTable(n, env)

	case "insert_expr":
		return ev.evalInsert(n, env)

	case "relation_value":
		return literal.Read(n)

	case "select_expr":
		if ev.SelectExpr == nil {
			return nil, errs.ErrUnsupportedTag.New("select_expr", "no selector installed")
		}
		return ev.SelectExpr(n, env)

	case "subquery_expr":
		if cn, ok := n.OnlyChild(); ok {
			return ev.Eval(cn, env)
		}
		return nil, errs.ErrUnsupportedTag.New("subquery_expr", "expected single child")

	default:
		if cn, ok := n.OnlyChild(); ok {
			return ev.Eval(cn, env)
		}
		if lit, ok := n.OnlyLeaf(); ok {
			return lit, nil
		}
		return nil, errs.ErrUnsupportedTag.New(n.Tag, "expression")
	}
}

func (ev *Evaluator) evalVariableList(n *node.Node, env *value.Env) (value.Value, error) {
	if _, ok := n.Get("star"); ok {
		return []value.Symbol{"*"}, nil
	}
	var out []value.Symbol
	for _, cn := range n.GetAll("name") {
		lit, _ := cn.OnlyLeaf()
		out = append(out, value.Symbol(lit))
	}
	return out, nil
}

// evalMapEntry evaluates `sym OP expr` to a single-key value.Row; any event
// mapping to NO_VALUE is dropped by the caller (EventMap), not here
// (spec.md 4.4 conditioned_by_expr).
func (ev *Evaluator) evalMapEntry(n *node.Node, env *value.Env) (value.Value, error) {
	nameNode, ok := n.Get("name")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("map_entry_expr", "missing name")
	}
	name, _ := nameNode.OnlyLeaf()
	children := n.ChildNodes()
	var valNode *node.Node
	if len(children) > 0 {
		valNode = children[len(children)-1]
	}
	v, err := ev.Eval(valNode, env)
	if err != nil {
		return nil, err
	}
	return value.Row{name: v}, nil
}

func (ev *Evaluator) evalMap(n *node.Node, env *value.Env) (value.Value, error) {
	out := value.Row{}
	for _, entry := range n.GetAll("map_entry_expr") {
		v, err := ev.evalMapEntry(entry, env)
		if err != nil {
			return nil, err
		}
		row, _ := v.(value.Row)
		for k, vv := range row {
			out[k] = vv
		}
	}
	return out, nil
}

// EventMap evaluates the equality ("density") events of an event_list to a
// binding map, dropping any key whose value is NO_VALUE (spec.md 4.4).
// internal/compiler does not call it: compileEventList builds the row-event
// protocol's binding row (spec.md 4.5.1) with its own loop that applies the
// same NO_VALUE-dropping rule. binop_event (distribution) entries are left
// to the compiler, which reads them directly off the event_list node via
// node.Node.GetAll.
func (ev *Evaluator) EventMap(n *node.Node, env *value.Env) (value.Value, error) {
	out := value.Row{}
	for _, entry := range n.GetAll("map_entry_expr") {
		v, err := ev.evalMapEntry(entry, env)
		if err != nil {
			return nil, err
		}
		row, _ := v.(value.Row)
		for k, vv := range row {
			if !value.IsNoValue(vv) {
				out[k] = vv
			}
		}
	}
	return out, nil
}

func (ev *Evaluator) evalConditionedBy(n *node.Node, env *value.Env) (value.Value, error) {
	children := n.ChildNodes()
	if len(children) < 2 {
		return nil, errs.ErrUnsupportedTag.New("conditioned_by_expr", "expected model and events")
	}
	modelVal, err := ev.Eval(children[0], env)
	if err != nil {
		return nil, err
	}
	model, ok := modelVal.(gpm.GPM)
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("conditioned_by_expr", "model does not implement GPM")
	}
	eventsVal, err := ev.EventMap(children[1], env)
	if err != nil {
		return nil, err
	}
	events, _ := eventsVal.(value.Row)
	return gpm.NewConstrained(model, nil, events), nil
}

func (ev *Evaluator) evalConstrainedBy(n *node.Node, env *value.Env) (value.Value, error) {
	children := n.ChildNodes()
	if len(children) < 2 {
		return nil, errs.ErrUnsupportedTag.New("constrained_by_expr", "expected model and targets")
	}
	modelVal, err := ev.Eval(children[0], env)
	if err != nil {
		return nil, err
	}
	model, ok := modelVal.(gpm.GPM)
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("constrained_by_expr", "model does not implement GPM")
	}
	targetsVal, err := ev.Eval(children[1], env)
	if err != nil {
		return nil, err
	}
	targets := symbolsToStrings(targetsVal)
	constraints := value.Row{}
	if len(children) > 2 {
		mv, err := ev.Eval(children[2], env)
		if err != nil {
			return nil, err
		}
		if row, ok := mv.(value.Row); ok {
			constraints = row
		}
	}
	return gpm.NewConstrained(model, targets, constraints), nil
}

func (ev *Evaluator) evalGenerate(n *node.Node, env *value.Env) (value.Value, error) {
	children := n.ChildNodes()
	if len(children) < 2 {
		return nil, errs.ErrUnsupportedTag.New("generate_expr", "expected vars and model")
	}
	targetsVal, err := ev.Eval(children[0], env)
	if err != nil {
		return nil, err
	}
	targets := symbolsToStrings(targetsVal)
	modelVal, err := ev.Eval(children[1], env)
	if err != nil {
		return nil, err
	}
	model, ok := modelVal.(gpm.GPM)
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("generate_expr", "model does not implement GPM")
	}
	constraints := value.Row{}
	if len(children) > 2 {
		mv, err := ev.Eval(children[2], env)
		if err != nil {
			return nil, err
		}
		if row, ok := mv.(value.Row); ok {
			constraints = row
		}
	}
	return gpm.NewConstrained(model, targets, constraints), nil
}

// RowStream is an unbounded pull-based iterator of simulated rows (spec.md
// 9 "infinite lazy sequences"): Next is called on demand and never
// allocates ahead of what's consumed.
type RowStream struct {
	constrained *gpm.ConstrainedGPM
	targets     []string
}

// Next draws the next sample. RowStream never terminates on its own; the
// executor must impose a bound (spec.md 4.3 validator, 4.7 pre-execution
// LIMIT).
func (s *RowStream) Next() (value.Row, error) {
	return s.constrained.Simulate(s.targets, value.Row{})
}

func (ev *Evaluator) evalGeneratedTable(n *node.Node, env *value.Env) (value.Value, error) {
	genNode, ok := n.Get("generate_expr")
	if !ok {
		if cn, ok := n.OnlyChild(); ok && cn.Tag == "generate_expr" {
			genNode = cn
		} else {
			return nil, errs.ErrUnsupportedTag.New("generated_table_expr", "expected generate_expr child")
		}
	}
	v, err := ev.evalGenerate(genNode, env)
	if err != nil {
		return nil, err
	}
	constrained, ok := v.(*gpm.ConstrainedGPM)
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("generated_table_expr", "expected a constrained model")
	}
	targetsVal, _ := ev.Eval(genNode.ChildNodes()[0], env)
	return &RowStream{constrained: constrained, targets: symbolsToStrings(targetsVal)}, nil
}

// evalInsert implements `INSERT (cols) VALUES (...) INTO table`: relation
// obtained by appending the literal rows of VALUES to the relation denoted
// by INTO table (spec.md 4.4).
func (ev *Evaluator) evalInsert(n *node.Node, env *value.Env) (value.Value, error) {
	relNode, ok := n.Get("relation_value")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("insert_expr", "missing relation_value")
	}
	relVal, err := literal.Read(relNode)
	if err != nil {
		return nil, err
	}
	incoming, _ := relVal.(*value.Relation)
	nameNode, ok := n.Get("name")
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("insert_expr", "missing target table name")
	}
	tableName, _ := nameNode.OnlyLeaf()
	target, err := env.Lookup(tableName)
	if err != nil {
		return nil, err
	}
	base, ok := target.(*value.Relation)
	if !ok {
		return nil, errs.ErrUnsupportedTag.New("insert_expr", "target is not a relation")
	}
	out := &value.Relation{Columns: append([]string(nil), base.Columns...)}
	out.Rows = append(out.Rows, base.Rows...)
	if incoming != nil {
		out.Rows = append(out.Rows, incoming.Rows...)
	}
	return out, nil
}

func symbolsToStrings(v value.Value) []string {
	syms, ok := v.([]value.Symbol)
	if !ok {
		return nil
	}
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = string(s)
	}
	return out
}
