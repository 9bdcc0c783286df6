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
	"time"
)

const (
	// Low output level
	Low = 0
	// High output level
	High = 1
)

// GPIO is the backend used to acquire and drive output pins.
type GPIO interface {
	// Claim the pin for exclusive use.
	Claim(pin int) error
	// SetDirectionOutput configures a claimed pin as output.
	SetDirectionOutput(pin int) error
	// SetLevel drives a claimed output pin to the given level (0|1).
	SetLevel(pin int, level int) error
	// Release a claimed pin.
	Release(pin int) error
}

// Publication is the handle of a published channel.
type Publication interface {
	// Name of the published channel
	Name() string
}

// Publisher makes exported channels discoverable.
type Publisher interface {
	// Publish the channel in the given slot, controlling the given pin.
	Publish(ctx context.Context, slot, pin int) (Publication, error)
	// Unpublish a channel published earlier.
	Unpublish(ctx context.Context, p Publication) error
}

// Clock schedules one-shot callbacks.
type Clock interface {
	// AfterFunc calls f in its own goroutine after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the timer from firing.
	// Returns false if the timer already fired or was stopped.
	Stop() bool
}

// SystemClock is a Clock backed by the runtime timers.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type noPublication string

func (p noPublication) Name() string { return string(p) }

type noPublisher struct{}

func (noPublisher) Publish(ctx context.Context, slot, pin int) (Publication, error) {
	return noPublication(ChannelName(pin)), nil
}

func (noPublisher) Unpublish(ctx context.Context, p Publication) error {
	return nil
}
