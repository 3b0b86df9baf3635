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

package main

import (
	"os"

	"github.com/golang/glog"

	"github.com/QubitProducts/tsload/cmd/tsload/root"

	_ "github.com/QubitProducts/tsload/cmd/tsload/completion"
	_ "github.com/QubitProducts/tsload/cmd/tsload/csv"
	_ "github.com/QubitProducts/tsload/cmd/tsload/dump"
	_ "github.com/QubitProducts/tsload/cmd/tsload/financedb"
	_ "github.com/QubitProducts/tsload/cmd/tsload/opentsdb"
	_ "github.com/QubitProducts/tsload/cmd/tsload/selftest"
	_ "github.com/QubitProducts/tsload/cmd/tsload/sqlite"
)

func main() {
	err := root.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
