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

// Package timer measures ingestion throughput for one group at a time.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrRunning is returned by Start when the timer is already running.
	ErrRunning = errors.New("timer not flipping state: already started")
	// ErrIdle is returned by Stop when the timer was never started.
	ErrIdle = errors.New("timer not flipping state: not started")
)

// Timer brackets a unit of work with Start and Stop calls. Misuse is
// reported as an error but the timer still changes state, so a run can
// carry on.
type Timer struct {
	now func() time.Time

	mu      sync.Mutex
	running bool
	start   time.Time
}

// New creates a timer using clock, or time.Now if clock is nil.
func New(clock func() time.Time) *Timer {
	if clock == nil {
		clock = time.Now
	}
	return &Timer{now: clock}
}

// Running reports whether the timer has been started.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Start starts the timer.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.running {
		err = ErrRunning
	}
	t.running = true
	t.start = t.now()
	return err
}

// Stop stops the timer and reports the throughput for count things.
func (t *Timer) Stop(count int64) (Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	end := t.now()
	if !t.running {
		return Report{Count: count}, ErrIdle
	}
	t.running = false

	r := Report{
		Count:   count,
		Elapsed: end.Sub(t.start),
	}
	if r.Elapsed <= 0 {
		r.Instant = true
	} else {
		r.Rate = float64(count) / r.Elapsed.Seconds()
	}
	return r, nil
}

// Report is the result of a Stop.
type Report struct {
	Count   int64
	Elapsed time.Duration
	Rate    float64 // things per second, unset when Instant
	Instant bool    // no measurable time passed
}

func (r Report) String() string {
	if r.Instant {
		return fmt.Sprintf("ops/sec instantaneous (%d ops)", r.Count)
	}
	return fmt.Sprintf("ops/sec %.2f (%d ops in %v)", r.Rate, r.Count, r.Elapsed)
}
