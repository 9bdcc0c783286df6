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
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config of the Manager.
type Config struct {
	// Number of channel slots
	Capacity int
}

// Dependencies of the Manager.
type Dependencies struct {
	Log zerolog.Logger
	// Backend used to claim and drive pins
	GPIO GPIO
	// Used to announce exported channels (optional)
	Publisher Publisher
	// Used to schedule toggles (optional)
	Clock Clock
}

// Manager exports and unexports channels.
type Manager struct {
	log       zerolog.Logger
	table     *Table
	scheduler *Scheduler
	gpio      GPIO
	publisher Publisher

	eventsMutex  sync.Mutex
	events       *pubsub.PubSub
	eventsClosed bool
}

// NewManager creates a Manager with a table of the configured capacity.
func NewManager(conf Config, deps Dependencies) (*Manager, error) {
	if deps.GPIO == nil {
		return nil, errors.Wrap(InvalidInputError, "GPIO backend is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = noPublisher{}
	}
	log := deps.Log.With().Str("component", "channel-manager").Logger()
	return &Manager{
		log:       log,
		table:     NewTable(conf.Capacity),
		scheduler: NewScheduler(deps.Log, deps.GPIO, deps.Clock),
		gpio:      deps.GPIO,
		publisher: deps.Publisher,
		events:    pubsub.New(),
	}, nil
}

// Capacity returns the maximum number of exported channels.
func (m *Manager) Capacity() int {
	return m.table.Capacity()
}

// Channels returns a snapshot of all exported channels.
func (m *Manager) Channels() []ChannelInfo {
	return m.table.Snapshot()
}

// Lookup returns the exported channel for the given pin.
func (m *Manager) Lookup(pin int) (*Channel, error) {
	return m.table.Lookup(pin)
}

// Channel returns the exported channel in the given slot.
func (m *Manager) Channel(slot int) (*Channel, error) {
	return m.table.Channel(slot)
}

// Subscribe registers a callback that receives all channel events.
// Call the returned function to unsubscribe.
func (m *Manager) Subscribe(cb func(Event)) context.CancelFunc {
	m.eventsMutex.Lock()
	defer m.eventsMutex.Unlock()
	if m.eventsClosed {
		return func() {}
	}
	m.events.Sub(cb)
	return func() {
		m.eventsMutex.Lock()
		defer m.eventsMutex.Unlock()
		if !m.eventsClosed {
			m.events.Leave(cb)
		}
	}
}

// Export claims a slot and the given pin, drives the pin low
// and publishes the channel. Returns the slot index.
func (m *Manager) Export(ctx context.Context, pin int) (int, error) {
	log := m.log.With().Int("pin", pin).Logger()
	if pin < 0 {
		exportErrorsTotal.Inc()
		return -1, errors.Wrapf(InvalidInputError, "invalid pin %d", pin)
	}
	slot, err := m.table.Claim(pin)
	if err != nil {
		exportErrorsTotal.Inc()
		log.Debug().Err(err).Msg("No slot available")
		return -1, err
	}
	log = log.With().Int("slot", slot).Logger()
	c := m.table.channels[slot]

	// abort rolls back the slot claim
	abort := func(cause error) (int, error) {
		exportErrorsTotal.Inc()
		if err := m.table.Release(slot); err != nil {
			log.Error().Err(err).Msg("Failed to release slot")
		}
		log.Debug().Err(cause).Msg("Export failed")
		return -1, cause
	}
	// releasePin rolls back the pin claim
	releasePin := func() {
		if err := m.gpio.Release(pin); err != nil {
			log.Warn().Err(err).Msg("Failed to release pin")
		}
	}

	if err := m.gpio.Claim(pin); err != nil {
		return abort(errors.Wrapf(PinUnavailableError, "claim pin %d: %s", pin, err))
	}
	if err := m.gpio.SetDirectionOutput(pin); err != nil {
		releasePin()
		return abort(errors.Wrapf(PinUnavailableError, "set pin %d to output: %s", pin, err))
	}
	if err := m.gpio.SetLevel(pin, Low); err != nil {
		releasePin()
		return abort(errors.Wrapf(PinUnavailableError, "set pin %d low: %s", pin, err))
	}
	c.activate(pin)
	pub, err := m.publisher.Publish(ctx, slot, pin)
	if err != nil {
		m.scheduler.retire(c)
		releasePin()
		return abort(errors.Wrapf(err, "publish pin %d", pin))
	}
	c.setPublication(pub)
	if err := m.table.Commit(slot); err != nil {
		// Cannot happen; the slot is reserved by us
		return -1, maskAny(err)
	}

	exportTotal.Inc()
	channelsExportedGauge.Inc()
	log.Info().Str("name", pub.Name()).Msg("Exported channel")
	m.publishEvent(Event{Type: EventExported, Slot: slot, Pin: pin})
	return slot, nil
}

// Unexport stops the channel of the given pin, drives the pin low
// and releases the pin and its slot.
// Returns NotFoundError when the pin is not exported.
func (m *Manager) Unexport(ctx context.Context, pin int) error {
	log := m.log.With().Int("pin", pin).Logger()
	c, err := m.table.BeginRelease(pin)
	if err != nil {
		return err
	}
	slot := c.Slot()
	log = log.With().Int("slot", slot).Logger()

	var ae aerr.AggregateError
	if pub := c.takePublication(); pub != nil {
		if err := m.publisher.Unpublish(ctx, pub); err != nil {
			log.Warn().Err(err).Msg("Failed to unpublish channel")
			ae.Add(err)
		}
	}
	// After retire returns, no callback will touch the pin anymore.
	if err := m.scheduler.retire(c); err != nil {
		ae.Add(err)
	}
	if err := m.gpio.Release(pin); err != nil {
		log.Warn().Err(err).Msg("Failed to release pin")
		ae.Add(errors.Wrapf(err, "release pin %d", pin))
	}
	if err := m.table.Release(slot); err != nil {
		ae.Add(err)
	}

	unexportTotal.Inc()
	channelsExportedGauge.Dec()
	log.Info().Msg("Unexported channel")
	m.publishEvent(Event{Type: EventUnexported, Slot: slot, Pin: pin})
	return ae.AsError()
}

// SetEnabled enables or disables the given channel.
// Returns true when the channel is running afterwards.
func (m *Manager) SetEnabled(c *Channel, enable bool) (bool, error) {
	if !enable {
		if err := m.scheduler.Disable(c); err != nil {
			return false, err
		}
		m.publishEvent(Event{Type: EventDisabled, Slot: c.Slot(), Pin: c.Info().Pin})
		return false, nil
	}
	running, err := m.scheduler.Enable(c)
	if err != nil {
		return running, err
	}
	evType := EventEnabled
	if !running {
		evType = EventWithheld
	}
	m.publishEvent(Event{Type: evType, Slot: c.Slot(), Pin: c.Info().Pin})
	return running, nil
}

// Close unexports all channels and stops event delivery.
// Events of later operations are dropped.
func (m *Manager) Close(ctx context.Context) error {
	var ae aerr.AggregateError
	for _, pin := range m.table.Pins() {
		if err := m.Unexport(ctx, pin); err != nil && !IsNotFound(err) {
			ae.Add(err)
		}
	}

	m.eventsMutex.Lock()
	defer m.eventsMutex.Unlock()
	if !m.eventsClosed {
		m.eventsClosed = true
		m.events.Close()
	}
	return ae.AsError()
}

// publishEvent sends the event to all subscribers, unless the manager is closed.
func (m *Manager) publishEvent(e Event) {
	m.eventsMutex.Lock()
	defer m.eventsMutex.Unlock()
	if !m.eventsClosed {
		m.events.Pub(e)
	}
}
