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

package service

import (
	"context"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/SoftPWM/pkg/bridge"
	"github.com/binkynet/SoftPWM/pkg/config"
	"github.com/binkynet/SoftPWM/pkg/logging"
	"github.com/binkynet/SoftPWM/pkg/publish"
	"github.com/binkynet/SoftPWM/pkg/softpwm"
	"github.com/binkynet/SoftPWM/pkg/util"
)

type Config struct {
	// Number of channel slots
	Capacity int
	// MQTT publisher (disabled when BrokerAddress is empty)
	MQTT publish.MQTTConfig
	// Path of a YAML file with channels to export on startup (optional)
	PresetsPath string
}

type Dependencies struct {
	Log    zerolog.Logger
	Bridge bridge.API
	// Forwards logs to MQTT (optional)
	MQTTLogWriter logging.MQTTWriter
	// Used to schedule toggles (optional)
	Clock softpwm.Clock
}

// Service runs the channel manager and its publishers.
type Service struct {
	Config
	Dependencies

	manager    *softpwm.Manager
	attributes *softpwm.Attributes
	registry   *publish.Registry
	mqtt       *publish.MQTTPublisher
	presets    config.Presets
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (*Service, error) {
	deps.Log = deps.Log.With().Str("component", "service").Logger()
	if deps.Bridge == nil {
		return nil, errors.Wrap(softpwm.InvalidInputError, "bridge is required")
	}
	var presets config.Presets
	if conf.PresetsPath != "" {
		var err error
		presets, err = config.Load(conf.PresetsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load presets from %s", conf.PresetsPath)
		}
	}
	s := &Service{
		Config:       conf,
		Dependencies: deps,
		registry:     publish.NewRegistry(),
		presets:      presets,
	}
	var publisher softpwm.Publisher = s.registry
	if conf.MQTT.BrokerAddress != "" {
		s.mqtt = publish.NewMQTTPublisher(conf.MQTT, publish.MQTTDependencies{
			Log: deps.Log,
		})
		s.mqtt.SetCommandHandler(s.onCommand)
		publisher = publish.NewMulti(s.registry, s.mqtt)
	}
	m, err := softpwm.NewManager(softpwm.Config{
		Capacity: conf.Capacity,
	}, softpwm.Dependencies{
		Log:       deps.Log,
		GPIO:      deps.Bridge,
		Publisher: publisher,
		Clock:     deps.Clock,
	})
	if err != nil {
		return nil, err
	}
	s.manager = m
	s.attributes = softpwm.NewAttributes(m)
	return s, nil
}

// Run the service until the given context is canceled.
// All channels are unexported before it returns.
func (s *Service) Run(ctx context.Context) error {
	log := s.Log
	unsubscribe := s.manager.Subscribe(s.onEvent)
	defer unsubscribe()
	defer s.close()

	// Channels are published on MQTT once connected; exports do not wait.
	var wg sync.WaitGroup
	defer wg.Wait()
	if s.mqtt != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.connectMQTT(ctx)
		}()
	}

	if len(s.presets.Channels) > 0 {
		if err := s.presets.Apply(ctx, log, s.manager); err != nil {
			log.Warn().Err(err).Msg("Not all presets could be applied")
		} else {
			log.Info().Int("channels", len(s.presets.Channels)).Msg("Applied presets")
		}
	}

	log.Info().
		Int("capacity", s.manager.Capacity()).
		Str("bridge", s.Bridge.Name()).
		Msg("Service started")

	// Wait until context closed
	<-ctx.Done()
	return nil
}

// connectMQTT connects to the broker, retrying until it succeeds
// or the context is canceled.
func (s *Service) connectMQTT(ctx context.Context) {
	log := s.Log
	if err := util.UntilSucceeded(ctx, log, "connect to MQTT broker", func() error {
		return s.mqtt.Connect(ctx)
	}); err != nil {
		// Context canceled
		return
	}
	log.Info().Str("address", s.MQTT.BrokerAddress).Msg("Connected to MQTT broker")
	if w := s.MQTTLogWriter; w != nil {
		w.SetDestination(s.mqtt)
		w.Enable(true)
	}
}

// close unexports all channels and releases the backends.
func (s *Service) close() {
	log := s.Log
	var ae aerr.AggregateError
	ae.Add(s.manager.Close(context.Background()))
	if w := s.MQTTLogWriter; w != nil {
		w.Enable(false)
	}
	if s.mqtt != nil {
		ae.Add(s.mqtt.Close())
	}
	ae.Add(s.Bridge.Close())
	if err := ae.AsError(); err != nil {
		log.Error().Err(err).Msg("Failed to close service")
	} else {
		log.Info().Msg("Service closed")
	}
}

// Capacity returns the maximum number of exported channels.
func (s *Service) Capacity() int {
	return s.manager.Capacity()
}

// Attributes returns the text based configuration surface.
func (s *Service) Attributes() *softpwm.Attributes {
	return s.attributes
}

// Channels returns a snapshot of all exported channels.
func (s *Service) Channels() []softpwm.ChannelInfo {
	return s.manager.Channels()
}

// Lookup resolves a published channel name into its pin.
func (s *Service) Lookup(name string) (int, error) {
	entry, err := s.registry.Lookup(name)
	if publish.IsNotPublished(err) {
		return -1, errors.Wrapf(softpwm.NotFoundError, "channel '%s'", name)
	} else if err != nil {
		return -1, err
	}
	return entry.Pin, nil
}

// SetEnabled enables/disables the channel of the given pin.
// Returns true when the channel is running afterwards.
func (s *Service) SetEnabled(pin int, enable bool) (bool, error) {
	c, err := s.manager.Lookup(pin)
	if err != nil {
		return false, err
	}
	return s.manager.SetEnabled(c, enable)
}

// onCommand applies a value received on an MQTT command topic.
func (s *Service) onCommand(pin int, attr, value string) error {
	commandsTotal.WithLabelValues(attr).Inc()
	if err := s.attributes.WritePin(pin, attr, value); err != nil {
		commandErrorsTotal.WithLabelValues(attr).Inc()
		return err
	}
	return nil
}

// onEvent logs channel events.
func (s *Service) onEvent(e softpwm.Event) {
	eventsTotal.WithLabelValues(string(e.Type)).Inc()
	ev := s.Log.Info()
	if e.Type == softpwm.EventWithheld {
		ev = s.Log.Warn()
	}
	ev.Str("event", string(e.Type)).
		Int("slot", e.Slot).
		Int("pin", e.Pin).
		Msg("Channel changed")
}
