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

// Package literal implements the literal reader (spec.md 4.2): maps leaf
// parse-tree productions to runtime value.Value.
package literal

import (
	"strconv"

	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/value"
)

// Read interprets a leaf-level node as a value.Value. It handles bool, int,
// nat, float, string, simple_symbol, null, value_list, value_lists_full,
// value_lists_sparse, and relation_value (spec.md 4.2).
func Read(n *node.Node) (value.Value, error) {
	if n == nil {
		return value.NoValue, nil
	}
	switch n.Tag {
	case "bool":
		lit, _ := n.OnlyLeaf()
		return lit == "true", nil
	case "null":
		return value.NoValue, nil
	case "nat", "int":
		lit, _ := n.OnlyLeaf()
		i, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, err
		}
		return i, nil
	case "float":
		lit, _ := n.OnlyLeaf()
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "string":
		lit, _ := n.OnlyLeaf()
		return lit, nil
	case "simple_symbol":
		lit, _ := n.OnlyLeaf()
		return value.Symbol(lit), nil
	case "value_list":
		return readValueList(n)
	case "value_lists_full":
		return readValueListsFull(n)
	case "value_lists_sparse":
		return readValueListsSparse(n)
	case "relation_value":
		return readRelationValue(n)
	default:
		if cn, ok := n.OnlyChild(); ok {
			return Read(cn)
		}
		if lit, ok := n.OnlyLeaf(); ok {
			return lit, nil
		}
		return nil, nil
	}
}

func readValueList(n *node.Node) ([]value.Value, error) {
	var out []value.Value
	for _, cn := range n.ChildNodes() {
		v, err := Read(cn)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readValueListsFull(n *node.Node) ([][]value.Value, error) {
	var out [][]value.Value
	for _, cn := range n.GetAll("value_list") {
		vl, err := readValueList(cn)
		if err != nil {
			return nil, err
		}
		out = append(out, vl)
	}
	return out, nil
}

// IndexedList is one (index, value_list) pair of a sparse value-list
// literal (spec.md 4.2 value_lists_sparse).
type IndexedList struct {
	Index int
	List  []value.Value
}

// ReadSparse interprets a pre-parsed list of (index, value_list) pairs,
// producing a dense sequence of length max(index)+1 where unfilled
// positions are the empty sequence (spec.md 4.2, invariant 8.2).
func ReadSparse(pairs []IndexedList) [][]value.Value {
	max := -1
	for _, p := range pairs {
		if p.Index > max {
			max = p.Index
		}
	}
	out := make([][]value.Value, max+1)
	for i := range out {
		out[i] = []value.Value{}
	}
	for _, p := range pairs {
		out[p.Index] = p.List
	}
	return out
}

// readValueListsSparse is a parse-tree-driven convenience wrapper around
// ReadSparse for a value_lists_sparse node whose children alternate
// "index" and "value_list" child nodes.
func readValueListsSparse(n *node.Node) ([][]value.Value, error) {
	var pairs []IndexedList
	children := n.ChildNodes()
	for i := 0; i+1 < len(children); i += 2 {
		idxNode := children[i]
		lit, _ := idxNode.OnlyLeaf()
		idx, err := strconv.Atoi(lit)
		if err != nil {
			return nil, err
		}
		vl, err := readValueList(children[i+1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, IndexedList{Index: idx, List: vl})
	}
	return ReadSparse(pairs), nil
}

// readRelationValue interprets `(col1, ...) VALUES ...` as a Relation: rows
// are zip(cols, values), carrying Columns = cols (spec.md 4.2).
func readRelationValue(n *node.Node) (*value.Relation, error) {
	colsNode, ok := n.Get("column_list")
	if !ok {
		return nil, nil
	}
	var cols []string
	for _, cn := range colsNode.ChildNodes() {
		if cn.Tag == "name" {
			lit, _ := cn.OnlyLeaf()
			cols = append(cols, lit)
		}
	}
	var lists [][]value.Value
	if listsNode, ok := n.Get("value_lists_full"); ok {
		var err error
		lists, err = readValueListsFull(listsNode)
		if err != nil {
			return nil, err
		}
	} else if sparseNode, ok := n.Get("value_lists_sparse"); ok {
		var err error
		lists, err = readValueListsSparse(sparseNode)
		if err != nil {
			return nil, err
		}
	} else {
		return value.NewRelation(cols), nil
	}
	rel := value.NewRelation(cols)
	for _, vl := range lists {
		row := value.Row{}
		for i, c := range cols {
			if i < len(vl) {
				row[c] = vl[i]
			} else {
				row[c] = value.NoValue
			}
		}
		rel.Rows = append(rel.Rows, row)
	}
	return rel, nil
}
