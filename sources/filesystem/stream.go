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

package filesystem

import (
	"github.com/golang/glog"

	"github.com/QubitProducts/tsload/record"
	"github.com/QubitProducts/tsload/sources"
)

// OpenStream implements sources.GroupSourcer by opening the stream file at
// loc.
func (s *Source) OpenStream(loc sources.Location, width int) (sources.StreamReader, error) {
	f, err := record.Open(loc.Path, width)
	if err != nil {
		return nil, err
	}
	if glog.V(3) {
		glog.Infof("opened %s stream %s", loc.Role, loc.Path)
	}
	return f, nil
}
