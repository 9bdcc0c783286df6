// Copyright 2026 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package softpwm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// manualClock only fires timers when Advance is called.
type manualClock struct {
	mutex  sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mutex.Lock()
	defer t.clock.mutex.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the current time of the clock.
func (c *manualClock) Now() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

// Pending returns the number of timers that are armed and not stopped.
func (c *manualClock) Pending() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	result := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			result++
		}
	}
	return result
}

// Advance moves the clock forward, firing all timers that become due
// in order of their deadline.
// Callbacks run without holding the clock lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mutex.Lock()
	end := c.now + d
	c.mutex.Unlock()
	for {
		c.mutex.Lock()
		var due []*manualTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= end {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = end
			c.timers = pruneTimers(c.timers)
			c.mutex.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at == due[j].at {
				return due[i].seq < due[j].seq
			}
			return due[i].at < due[j].at
		})
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mutex.Unlock()
		next.f()
	}
}

func pruneTimers(timers []*manualTimer) []*manualTimer {
	result := timers[:0]
	for _, t := range timers {
		if !t.stopped && !t.fired {
			result = append(result, t)
		}
	}
	return result
}

type levelChange struct {
	Level int
	At    time.Duration
}

// fakeGPIO records all level changes per pin.
type fakeGPIO struct {
	mutex         sync.Mutex
	clock         *manualClock
	claimed       map[int]bool
	output        map[int]bool
	history       map[int][]levelChange
	calls         int
	failClaim     map[int]error
	failDirection map[int]error
	failSetLevel  error
}

func newFakeGPIO(clock *manualClock) *fakeGPIO {
	return &fakeGPIO{
		clock:         clock,
		claimed:       make(map[int]bool),
		output:        make(map[int]bool),
		history:       make(map[int][]levelChange),
		failClaim:     make(map[int]error),
		failDirection: make(map[int]error),
	}
}

func (g *fakeGPIO) Claim(pin int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.calls++
	if err := g.failClaim[pin]; err != nil {
		return err
	}
	if g.claimed[pin] {
		return fmt.Errorf("pin %d busy", pin)
	}
	g.claimed[pin] = true
	return nil
}

func (g *fakeGPIO) SetDirectionOutput(pin int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.calls++
	if err := g.failDirection[pin]; err != nil {
		return err
	}
	g.output[pin] = true
	return nil
}

func (g *fakeGPIO) SetLevel(pin int, level int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.calls++
	if !g.claimed[pin] {
		return fmt.Errorf("pin %d not claimed", pin)
	}
	if g.failSetLevel != nil {
		return g.failSetLevel
	}
	g.history[pin] = append(g.history[pin], levelChange{Level: level, At: g.clock.Now()})
	return nil
}

func (g *fakeGPIO) Release(pin int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.calls++
	if !g.claimed[pin] {
		return fmt.Errorf("pin %d not claimed", pin)
	}
	delete(g.claimed, pin)
	delete(g.output, pin)
	return nil
}

func (g *fakeGPIO) setFailLevel(err error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.failSetLevel = err
}

func (g *fakeGPIO) Claimed(pin int) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.claimed[pin]
}

func (g *fakeGPIO) Calls() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.calls
}

func (g *fakeGPIO) History(pin int) []levelChange {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return append([]levelChange(nil), g.history[pin]...)
}

// LastLevel returns the last level written to the pin, or -1.
func (g *fakeGPIO) LastLevel(pin int) int {
	h := g.History(pin)
	if len(h) == 0 {
		return -1
	}
	return h[len(h)-1].Level
}

type failingPublisher struct {
	err error
}

func (p failingPublisher) Publish(ctx context.Context, slot, pin int) (Publication, error) {
	return nil, p.err
}

func (p failingPublisher) Unpublish(ctx context.Context, pub Publication) error {
	return nil
}

type testEnv struct {
	clock   *manualClock
	gpio    *fakeGPIO
	manager *Manager
	attrs   *Attributes
}

func newTestEnv(t *testing.T, capacity int) *testEnv {
	clock := &manualClock{}
	gpio := newFakeGPIO(clock)
	m, err := NewManager(Config{Capacity: capacity}, Dependencies{
		Log:   zerolog.Nop(),
		GPIO:  gpio,
		Clock: clock,
	})
	require.NoError(t, err)
	return &testEnv{
		clock:   clock,
		gpio:    gpio,
		manager: m,
		attrs:   NewAttributes(m),
	}
}

// exportChannel exports the pin and returns its channel.
func (e *testEnv) exportChannel(t *testing.T, pin int) *Channel {
	slot, err := e.manager.Export(context.Background(), pin)
	require.NoError(t, err)
	c, err := e.manager.Channel(slot)
	require.NoError(t, err)
	return c
}
