// Copyright 2016 Qubit Digital Ltd.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package tsload is a collection of tools for loading flat binary
// time-series streams into databases and wire formats.

// Package financedb is a placeholder for a financedb loader. It accepts no
// groups.
package financedb

import (
	"context"

	"github.com/QubitProducts/tsload/sinks"
)

// Sink refuses every group with sinks.ErrUnsupported.
type Sink struct{}

// BeginGroup implements sinks.Sinker.
func (Sink) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	return nil, sinks.ErrUnsupported
}
