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
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// NextToggle computes the transition of a running channel when its timer fires.
// Returns the new output level and how long to wait before the next toggle.
// The output is high for dutyCycleNs and low for the rest of periodNs.
func NextToggle(level int, dutyCycleNs, periodNs uint64) (int, time.Duration) {
	if level == Low {
		return High, nsToDuration(dutyCycleNs)
	}
	return Low, nsToDuration(periodNs - dutyCycleNs)
}

// CanRun returns true when a channel with the given configuration may be enabled.
func CanRun(dutyCycleNs, periodNs uint64) bool {
	return periodNs > 0 && dutyCycleNs < periodNs
}

func nsToDuration(ns uint64) time.Duration {
	if ns > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// Scheduler drives the pins of running channels using one-shot timers.
type Scheduler struct {
	log   zerolog.Logger
	gpio  GPIO
	clock Clock
}

// NewScheduler creates a scheduler that sets levels through the given GPIO backend.
func NewScheduler(log zerolog.Logger, gpio GPIO, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		log:   log.With().Str("component", "scheduler").Logger(),
		gpio:  gpio,
		clock: clock,
	}
}

// Enable starts the channel.
// When the configuration does not allow running, enabling is withheld:
// the channel is (or becomes) disabled and false is returned without error.
// Enabling a running channel has no effect.
func (s *Scheduler) Enable(c *Channel) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.claimed {
		return false, maskAny(NotFoundError)
	}
	if !CanRun(c.dutyCycleNs, c.periodNs) {
		enableWithheldTotal.Inc()
		s.log.Debug().
			Int("pin", c.pin).
			Uint64("period", c.periodNs).
			Uint64("duty_cycle", c.dutyCycleNs).
			Msg("Enable withheld")
		if c.enabled {
			return false, s.disableLocked(c)
		}
		return false, nil
	}
	if c.enabled {
		return true, nil
	}
	c.enabled = true
	c.errorLogged = false
	c.generation++
	s.armLocked(c, 0)
	channelsRunningGauge.Inc()
	return true, nil
}

// Disable stops the channel and drives its pin low before returning.
// A callback that is already running completes first; no toggle is
// scheduled afterwards. Disabling a disabled channel whose pin is low
// has no effect.
func (s *Scheduler) Disable(c *Channel) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.claimed {
		return maskAny(NotFoundError)
	}
	if !c.enabled && c.level == Low {
		return nil
	}
	return s.disableLocked(c)
}

// retire disables the channel for good: no callback armed before
// this call can touch the pin afterwards.
func (s *Scheduler) retire(c *Channel) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.claimed {
		return nil
	}
	err := s.disableLocked(c)
	c.claimed = false
	return err
}

func (s *Scheduler) disableLocked(c *Channel) error {
	if c.enabled {
		channelsRunningGauge.Dec()
	}
	c.enabled = false
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if err := s.gpio.SetLevel(c.pin, Low); err != nil {
		// level keeps the last state the pin was set to, so a later
		// Disable drives the pin again.
		c.errorTotal.Inc()
		return errors.Wrapf(err, "failed to set pin %d low", c.pin)
	}
	c.level = Low
	return nil
}

// armLocked schedules the next firing of the channel's timer.
func (s *Scheduler) armLocked(c *Channel, wait time.Duration) {
	generation := c.generation
	c.timer = s.clock.AfterFunc(wait, func() {
		s.fire(c, generation)
	})
}

// fire is the timer callback of a channel armed under the given generation.
func (s *Scheduler) fire(c *Channel, generation uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if generation != c.generation || !c.enabled || !c.claimed {
		// Disabled or released since this timer was armed
		return
	}
	if !CanRun(c.dutyCycleNs, c.periodNs) {
		// Reconfigured into an invalid state while running
		s.log.Warn().
			Int("pin", c.pin).
			Uint64("period", c.periodNs).
			Uint64("duty_cycle", c.dutyCycleNs).
			Msg("Invalid configuration while running, disabling")
		s.disableLocked(c)
		return
	}
	level, wait := NextToggle(c.level, c.dutyCycleNs, c.periodNs)
	if err := s.gpio.SetLevel(c.pin, level); err != nil {
		c.errorTotal.Inc()
		if !c.errorLogged {
			c.errorLogged = true
			s.log.Warn().Err(err).Int("pin", c.pin).Msg("Failed to set pin level")
		}
		// Retry the same edge one period later to keep the phase.
		wait = nsToDuration(c.periodNs)
	} else {
		c.level = level
		c.toggles++
		c.toggleTotal.Inc()
	}
	s.armLocked(c, wait)
}
