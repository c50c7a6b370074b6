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

// Package iqlquery is the public driver (spec.md 4.8): parse, validate,
// plan and execute a single IQL-SQL query against caller-supplied tables
// and models.
//
// Grounded on the teacher's top-level Engine/Config/New/NewDefault/Query
// shape (engine.go): a single entry point owning the full pipeline, logging
// each query at Debug level the way the teacher's Engine logs query text
// before execution.
package iqlquery

import (
	"github.com/sirupsen/logrus"

	"github.com/inferenceql/iqlquery/internal/errs"
	"github.com/inferenceql/iqlquery/internal/eval"
	"github.com/inferenceql/iqlquery/internal/exec"
	"github.com/inferenceql/iqlquery/internal/gpm"
	"github.com/inferenceql/iqlquery/internal/node"
	"github.com/inferenceql/iqlquery/internal/parser"
	"github.com/inferenceql/iqlquery/internal/validator"
	"github.com/inferenceql/iqlquery/internal/value"
)

// Config controls an Engine's behavior.
type Config struct {
	// Log receives one Debug-level entry per query, and an Error-level entry
	// on failure.
	// Defaults to logrus.StandardLogger() when nil.
	Log *logrus.Logger
}

// Engine runs IQL-SQL queries against a fixed set of named tables and
// models, supplied per call (spec.md 4.8, section 5's per-call isolation:
// an Engine holds no mutable state between calls).
type Engine struct {
	cfg Config
}

// New builds an Engine from an explicit Config.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Engine{cfg: cfg}
}

// NewDefault builds an Engine with logrus's standard logger.
func NewDefault() *Engine {
	return New(Config{})
}

// Query parses, validates and executes query against the supplied tables
// and models, returning the result relation (spec.md 4.8). tables must
// include an entry named "data" for any query that reads or writes the
// default table; models similarly supplies the default GPM named "model".
func (e *Engine) Query(query string, tables map[string]*value.Relation, models map[string]gpm.GPM) (*value.Relation, error) {
	e.cfg.Log.WithField("query", query).Debug("iqlquery: executing query")

	tree, err := parser.Parse(query)
	if err != nil {
		e.cfg.Log.WithError(err).Error("iqlquery: parse failure")
		return nil, errs.ErrParseFailure.Wrap(err, err.Error())
	}

	if err := validator.Validate(tree); err != nil {
		e.cfg.Log.WithError(err).Error("iqlquery: validation failure")
		return nil, err
	}

	env := value.NewEnv()
	bindings := make(map[string]value.Value, len(tables)+len(models))
	for name, rel := range tables {
		bindings[name] = rel.AddPlaceholders()
	}
	for name, model := range models {
		bindings[name] = model
	}
	env = env.ExtendAll(bindings)

	ev := &eval.Evaluator{}
	ev.SelectExpr = func(n *node.Node, env *value.Env) (*value.Relation, error) {
		return exec.Select(n, env, ev)
	}

	result, err := e.runTopLevel(tree, env, ev)
	if err != nil {
		e.cfg.Log.WithError(err).Error("iqlquery: execution failure")
		return nil, err
	}
	return result, nil
}

func (e *Engine) runTopLevel(tree *node.Node, env *value.Env, ev *eval.Evaluator) (*value.Relation, error) {
	switch tree.Tag {
	case "select_expr":
		return exec.Select(tree, env, ev)
	case "insert_expr":
		v, err := ev.Eval(tree, env)
		if err != nil {
			return nil, err
		}
		rel, ok := v.(*value.Relation)
		if !ok {
			return nil, errs.ErrUnsupportedTag.New("insert_expr", "did not evaluate to a relation")
		}
		return rel, nil
	default:
		return nil, errs.ErrUnsupportedTag.New(tree.Tag, "top-level query")
	}
}
