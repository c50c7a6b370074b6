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

package gpm

import "github.com/inferenceql/iqlquery/internal/value"

// FuncModel is a GPM built from plain functions, letting tests (and
// SPEC_FULL.md's supplemented test tooling) build a deterministic provider
// without a real inference backend, matching spec.md 8's end-to-end
// scenario 5/6 ("a test GPM whose simulate returns...").
type FuncModel struct {
	LogpdfFn   func(targets, constraints value.Row) (float64, error)
	SimulateFn func(targets []string, constraints value.Row) (value.Row, error)
}

func (f *FuncModel) Logpdf(targets, constraints value.Row) (float64, error) {
	return f.LogpdfFn(targets, constraints)
}

func (f *FuncModel) Simulate(targets []string, constraints value.Row) (value.Row, error) {
	return f.SimulateFn(targets, constraints)
}

// NewConstantModel builds a FuncModel whose Logpdf always returns logLik
// and whose Simulate always returns a copy of row restricted to targets
// (falling back to the full row when targets is empty), regardless of
// constraints. Useful for the density/generate scenarios of spec.md 8.
func NewConstantModel(logLik float64, row value.Row) *FuncModel {
	return &FuncModel{
		LogpdfFn: func(_, _ value.Row) (float64, error) { return logLik, nil },
		SimulateFn: func(targets []string, _ value.Row) (value.Row, error) {
			if len(targets) == 0 {
				return row.Clone(), nil
			}
			out := value.Row{}
			for _, t := range targets {
				if v, ok := row[t]; ok {
					out[t] = v
				}
			}
			return out, nil
		},
	}
}
