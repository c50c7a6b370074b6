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

// Package errs declares the structured error kinds produced by the engine.
//
// The kinds below follow the gopkg.in/src-d/go-errors.v1 pattern of
// declaring a Kind once and instantiating it with .New(...) or .Wrap(...) at
// the failure site, as the teacher's auth package does for ErrNotAuthorized /
// ErrNoPermission. Not every engine error is one of them: ir's
// UnresolvedFuncError and the argument errors of the value package's
// built-in functions are plain Go errors.
package errs

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// ErrParseFailure wraps a malformed-input error from the parser. The
	// wrapped error carries the failing position and expected token set.
	ErrParseFailure = errors.NewKind("parse failure: %s")

	// ErrIncorrectInput is raised by the validator (spec.md 4.3) and by the
	// executor when a GENERATE source has no LIMIT clause.
	ErrIncorrectInput = errors.NewKind("incorrect input: %s")

	// ErrUnboundName is raised when an environment lookup misses.
	ErrUnboundName = errors.NewKind("unbound name %q (available: %s)")

	// ErrUnsupportedTag is raised when the evaluator or clause compiler sees
	// a node tag it does not recognize in a context that requires one.
	ErrUnsupportedTag = errors.NewKind("unsupported tag %q in context %s")

	// ErrProvider wraps an error a GPM's Simulate raises while the executor
	// drains a generated table; the error is unchanged in substance, only
	// tagged with this kind. Logpdf errors propagate as the GPM returns them.
	ErrProvider = errors.NewKind("model provider error: %s")
)
