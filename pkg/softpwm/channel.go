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
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	channelNamePrefix = "pwm"
)

// ChannelName returns the name under which the channel for the given pin is published.
func ChannelName(pin int) string {
	return fmt.Sprintf("%s%d", channelNamePrefix, pin)
}

// ParseChannelName returns the pin of a channel name created by ChannelName.
func ParseChannelName(name string) (int, error) {
	if !strings.HasPrefix(name, channelNamePrefix) {
		return 0, errors.Wrapf(InvalidInputError, "invalid channel name '%s'", name)
	}
	pin, err := strconv.Atoi(strings.TrimPrefix(name, channelNamePrefix))
	if err != nil || pin < 0 {
		return 0, errors.Wrapf(InvalidInputError, "invalid channel name '%s'", name)
	}
	return pin, nil
}

// Channel is the descriptor of a single PWM output.
// All fields are guarded by the mutex; the pin level is only
// written by the Scheduler.
type Channel struct {
	slot int

	mutex       sync.Mutex
	claimed     bool
	pin         int
	periodNs    uint64
	dutyCycleNs uint64
	enabled     bool
	level       int
	timer       Timer
	generation  uint64
	publication Publication
	toggles     uint64
	errorLogged bool
	toggleTotal prometheus.Counter
	errorTotal  prometheus.Counter
}

// ChannelInfo is a snapshot of a channel.
type ChannelInfo struct {
	Slot        int    `json:"slot"`
	Pin         int    `json:"pin"`
	Name        string `json:"name"`
	PeriodNs    uint64 `json:"period"`
	DutyCycleNs uint64 `json:"duty_cycle"`
	Enabled     bool   `json:"enable"`
	Level       int    `json:"level"`
	Toggles     uint64 `json:"toggles"`
}

// Slot returns the index of the slot holding this channel.
func (c *Channel) Slot() int {
	return c.slot
}

// Info returns a snapshot of the channel.
func (c *Channel) Info() ChannelInfo {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.infoLocked()
}

func (c *Channel) infoLocked() ChannelInfo {
	return ChannelInfo{
		Slot:        c.slot,
		Pin:         c.pin,
		Name:        ChannelName(c.pin),
		PeriodNs:    c.periodNs,
		DutyCycleNs: c.dutyCycleNs,
		Enabled:     c.enabled,
		Level:       c.level,
		Toggles:     c.toggles,
	}
}

// SetPeriod stores the period in nanoseconds.
// Any value is accepted; validity is only checked when enabling.
func (c *Channel) SetPeriod(ns uint64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.claimed {
		return maskAny(NotFoundError)
	}
	c.periodNs = ns
	return nil
}

// SetDutyCycle stores the duty cycle in nanoseconds.
// Any value is accepted; validity is only checked when enabling.
func (c *Channel) SetDutyCycle(ns uint64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.claimed {
		return maskAny(NotFoundError)
	}
	c.dutyCycleNs = ns
	return nil
}

// Period returns the stored period in nanoseconds.
func (c *Channel) Period() (uint64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.claimed {
		return 0, maskAny(NotFoundError)
	}
	return c.periodNs, nil
}

// DutyCycle returns the stored duty cycle in nanoseconds.
func (c *Channel) DutyCycle() (uint64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.claimed {
		return 0, maskAny(NotFoundError)
	}
	return c.dutyCycleNs, nil
}

// Enabled returns true when the channel is running.
func (c *Channel) Enabled() (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.claimed {
		return false, maskAny(NotFoundError)
	}
	return c.enabled, nil
}

// activate initializes the descriptor for a freshly exported pin.
func (c *Channel) activate(pin int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	label := strconv.Itoa(pin)
	c.claimed = true
	c.pin = pin
	c.periodNs = 0
	c.dutyCycleNs = 0
	c.enabled = false
	c.level = Low
	c.toggles = 0
	c.errorLogged = false
	c.toggleTotal = togglesTotal.WithLabelValues(label)
	c.errorTotal = gpioErrorsTotal.WithLabelValues(label)
}

// setPublication stores the publication handle of this channel.
func (c *Channel) setPublication(p Publication) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.publication = p
}

// takePublication returns and clears the publication handle of this channel.
func (c *Channel) takePublication() Publication {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	p := c.publication
	c.publication = nil
	return p
}

// reset clears all fields so the slot can be reused.
func (c *Channel) reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.claimed = false
	c.pin = 0
	c.periodNs = 0
	c.dutyCycleNs = 0
	c.enabled = false
	c.level = Low
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
	c.publication = nil
	c.toggles = 0
	c.toggleTotal = nil
	c.errorTotal = nil
}
