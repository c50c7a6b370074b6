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

// Package validator implements the whole-tree semantic checks of spec.md
// 4.3, run before planning. Errors are structured with kind
// errs.ErrIncorrectInput and include the offending unparsed sub-expression.
//
// Grounded on the teacher's rule-based validation idiom: the teacher's
// sql/analyzer package (present in the retrieved pack only as *_test.go
// files) validates a plan tree with named rules that produce wrapped
// errors; this package follows the same "named rule, first failure wins,
// document order" shape using errs.ErrIncorrectInput instead of the
// teacher's own error kinds (whose declarations were not retrieved).
package validator

import (
	"github.com/inferenceql/iqlquery/internal/errs"
	"github.com/inferenceql/iqlquery/internal/node"
)

// Validate runs every rule against the root select_expr/insert_expr and
// returns the first error encountered in document order, or nil. Both rules
// are checked in a single pre-order walk, interleaved per node, rather than
// one pass per rule: a separate pass per rule would report whichever rule's
// own full-tree scan happens to reach its violation first, not the
// violation that actually occurs first in the query text.
func Validate(root *node.Node) error {
	return validate(root)
}

func validate(n *node.Node) error {
	if n == nil {
		return nil
	}
	if n.Tag == "select_expr" {
		if err := checkGeneratedTableNeedsLimit(n); err != nil {
			return err
		}
	}
	if n.Tag == "from_clause" {
		if err := checkNonDataTableRefNode(n); err != nil {
			return err
		}
	}
	for _, cn := range n.ChildNodes() {
		if err := validate(cn); err != nil {
			return err
		}
	}
	return nil
}

// checkGeneratedTableNeedsLimit rejects a SELECT whose from_clause resolves
// to a generated_table_expr with no limit_clause present (spec.md 4.3,
// invariant 8.4): an infinite simulated stream would never terminate.
func checkGeneratedTableNeedsLimit(sel *node.Node) error {
	from, ok := sel.Get("from_clause")
	if !ok {
		return nil
	}
	if _, ok := from.Get("generated_table_expr"); !ok {
		return nil
	}
	if _, ok := sel.Get("limit_clause"); ok {
		return nil
	}
	return errs.ErrIncorrectInput.New(
		"SELECT FROM (GENERATE ...) requires a LIMIT clause to bound the generated stream: " + sel.Unparse())
}

// checkNonDataTableRefNode rejects a from_clause naming a table identifier
// other than `data` (spec.md 4.3, invariant 8.4, and 9's "Open Questions":
// the planner's from_clause compiler only special-cases the top level, so
// this rule is the sole enforcement point for nested references). Validate
// calls it on every from_clause node in the tree, including nested SELECTs.
func checkNonDataTableRefNode(from *node.Node) error {
	nameNode, ok := from.Get("name")
	if !ok {
		return nil // generated table or subquery, not a bare identifier
	}
	lit, _ := nameNode.OnlyLeaf()
	if lit != "data" {
		return errs.ErrIncorrectInput.New(
			"FROM must reference the table `data`, got `" + lit + "`: " + from.Unparse())
	}
	return nil
}
