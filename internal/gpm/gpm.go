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

// Package gpm defines the external GPM (Generative Probabilistic Model)
// contract of spec.md section 6 and the ConstrainedGPM wrapper of section
// 3, plus a deterministic in-memory test implementation used by the
// engine's own tests and by SPEC_FULL.md's supplemented test tooling.
//
// The teacher treats external data/compute providers as opaque interfaces
// wrapped by its own adapters (see driver/ wrapping database/sql/driver);
// GPM follows the same shape: a two-method interface with no assumptions
// about the provider's internals.
package gpm

import "github.com/inferenceql/iqlquery/internal/value"

// GPM is the external provider contract (spec.md 6): logpdf computes a log
// density for a point event under given constraints; simulate draws one
// row for a target set under given constraints.
type GPM interface {
	Logpdf(targets value.Row, constraints value.Row) (float64, error)
	Simulate(targets []string, constraints value.Row) (value.Row, error)
}

// ConstrainedGPM wraps a GPM with a fixed target set T and fixed
// constraints C (spec.md 3). Once constructed, T and C are immutable;
// composition is always by wrapping (internal/gpm never mutates an
// existing ConstrainedGPM), so no cycles arise even when Inner is itself a
// ConstrainedGPM (spec.md 9 "Cyclic back-references").
type ConstrainedGPM struct {
	Inner       GPM
	Targets     map[string]bool
	Constraints value.Row
}

// NewConstrained builds a ConstrainedGPM. targets may be nil (no target
// restriction) and constraints may be nil (no fixed constraints).
func NewConstrained(inner GPM, targets []string, constraints value.Row) *ConstrainedGPM {
	c := &ConstrainedGPM{Inner: inner, Constraints: value.Row{}}
	if constraints != nil {
		c.Constraints = constraints.Clone()
	}
	if targets != nil {
		c.Targets = make(map[string]bool, len(targets))
		for _, t := range targets {
			c.Targets[t] = true
		}
	}
	return c
}

// intersectTargets restricts t to c.Targets when c.Targets is non-nil
// (spec.md 8.3: "logpdf(G, t, c) = logpdf(M, t∩T, C∪c)").
func (c *ConstrainedGPM) intersectTargets(t value.Row) value.Row {
	if c.Targets == nil {
		return t
	}
	out := value.Row{}
	for k, v := range t {
		if c.Targets[k] {
			out[k] = v
		}
	}
	return out
}

func (c *ConstrainedGPM) intersectTargetList(t []string) []string {
	if c.Targets == nil {
		return t
	}
	var out []string
	for _, k := range t {
		if c.Targets[k] {
			out = append(out, k)
		}
	}
	return out
}

// Logpdf implements GPM: logpdf(G,t,c) = inner.Logpdf(t∩T, C∪c), c wins on
// key collision with C (spec.md 3, invariant 8.3).
func (c *ConstrainedGPM) Logpdf(targets value.Row, constraints value.Row) (float64, error) {
	t := c.intersectTargets(targets)
	merged := value.Merge(c.Constraints, constraints)
	return c.Inner.Logpdf(t, merged)
}

// Simulate implements GPM: simulate(G,t,c) draws over T∩t with constraints
// C∪c, c winning on key collision (spec.md 3, invariant 8.3).
func (c *ConstrainedGPM) Simulate(targets []string, constraints value.Row) (value.Row, error) {
	t := c.intersectTargetList(targets)
	merged := value.Merge(c.Constraints, constraints)
	return c.Inner.Simulate(t, merged)
}
