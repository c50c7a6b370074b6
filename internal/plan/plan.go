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

// Package plan assembles compiled clause fragments into a runnable
// internal/ir.Plan (spec.md 4.6/4.7): it fixes input position 0 to the row
// database (spec.md 3's IR query plan invariant) and concatenates the
// fragments' Find, Keys and Where lists in argument order, without removing
// duplicates.
//
// spec.md 4.7 also describes an "inputize" input-lifting pass that rewrites
// built-in references into named `in` variables with their resolved values
// pushed onto Inputs. This package folds that rewrite into compilation
// directly: internal/compiler resolves every built-in against the
// environment once, at compile time, and embeds the resulting function
// value straight into the clause as an ir.Const — so by the time a Plan
// reaches internal/ir.Execute there is nothing left needing late
// resolution. See DESIGN.md for why this collapses two spec.md passes into
// one without changing observable behavior: both schemes resolve every
// built-in exactly once per query, before any row is scanned.
package plan

import "github.com/inferenceql/iqlquery/internal/ir"

// Fragment is one compiled piece of a select_expr: either the implicit
// row-pattern clause contributed by a from_clause, or the Find/Keys/Where
// contributed by a select_list/where_clause.
type Fragment struct {
	Find    []string
	Keys    []string
	Where   []ir.Clause
	FindAll bool
	FindVar string
}

// Assemble merges fragments in order into a single Query bound to db. The
// row database always occupies input position 0.
func Assemble(db *ir.Database, fragments ...Fragment) ir.Plan {
	q := ir.Query{In: []string{"$"}}
	for _, f := range fragments {
		q.Find = append(q.Find, f.Find...)
		q.Keys = append(q.Keys, f.Keys...)
		q.Where = append(q.Where, f.Where...)
		if f.FindAll {
			q.FindAll = true
			q.FindVar = f.FindVar
		}
	}
	return ir.Plan{Query: q, Inputs: []interface{}{db}}
}
