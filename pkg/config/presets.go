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

package config

import (
	"context"
	"os"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

// Nanoseconds is a duration in nanoseconds.
// In YAML it is written as an integer or as a duration string ("20ms").
type Nanoseconds uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Nanoseconds) UnmarshalYAML(value *yaml.Node) error {
	var raw uint64
	if err := value.Decode(&raw); err == nil {
		*n = Nanoseconds(raw)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return errors.Errorf("line %d: invalid duration", value.Line)
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return errors.Errorf("line %d: invalid duration '%s'", value.Line, s)
	}
	*n = Nanoseconds(d)
	return nil
}

// Channel is the initial configuration of a single channel.
type Channel struct {
	Pin       int         `yaml:"pin"`
	Period    Nanoseconds `yaml:"period"`
	DutyCycle Nanoseconds `yaml:"duty_cycle"`
	Enable    bool        `yaml:"enable"`
}

// Presets holds the channels to export at startup.
type Presets struct {
	Channels []Channel `yaml:"channels"`
}

// Load the presets from a YAML file.
func Load(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Presets{}, errors.Wrapf(err, "failed to read '%s'", path)
	}
	return Parse(data)
}

// Parse presets from YAML.
func Parse(data []byte) (Presets, error) {
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Presets{}, errors.Wrap(err, "failed to parse presets")
	}
	if err := p.Validate(); err != nil {
		return Presets{}, err
	}
	return p, nil
}

// Validate the presets.
func (p Presets) Validate() error {
	seen := make(map[int]struct{})
	for i, c := range p.Channels {
		if c.Pin < 0 {
			return errors.Wrapf(softpwm.InvalidInputError, "channel %d: invalid pin %d", i, c.Pin)
		}
		if _, found := seen[c.Pin]; found {
			return errors.Wrapf(softpwm.InvalidInputError, "channel %d: duplicate pin %d", i, c.Pin)
		}
		seen[c.Pin] = struct{}{}
	}
	return nil
}

// Apply exports and configures all channels.
// Failing channels are skipped; all errors are returned together.
func (p Presets) Apply(ctx context.Context, log zerolog.Logger, m *softpwm.Manager) error {
	var ae aerr.AggregateError
	for _, c := range p.Channels {
		if err := c.apply(ctx, log, m); err != nil {
			log.Warn().Err(err).Int("pin", c.Pin).Msg("Failed to apply preset")
			ae.Add(err)
		}
	}
	return ae.AsError()
}

func (c Channel) apply(ctx context.Context, log zerolog.Logger, m *softpwm.Manager) error {
	slot, err := m.Export(ctx, c.Pin)
	if err != nil {
		return errors.Wrapf(err, "export pin %d", c.Pin)
	}
	ch, err := m.Channel(slot)
	if err != nil {
		return err
	}
	if err := ch.SetPeriod(uint64(c.Period)); err != nil {
		return err
	}
	if err := ch.SetDutyCycle(uint64(c.DutyCycle)); err != nil {
		return err
	}
	if c.Enable {
		running, err := m.SetEnabled(ch, true)
		if err != nil {
			return err
		}
		if !running {
			log.Warn().
				Int("pin", c.Pin).
				Uint64("period", uint64(c.Period)).
				Uint64("duty_cycle", uint64(c.DutyCycle)).
				Msg("Preset cannot be enabled")
		}
	}
	log.Debug().Int("pin", c.Pin).Int("slot", slot).Msg("Applied preset")
	return nil
}
