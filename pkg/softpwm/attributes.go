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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// AttrDutyCycle is the high time of a channel in nanoseconds.
	AttrDutyCycle = "duty_cycle"
	// AttrPeriod is the period of a channel in nanoseconds.
	AttrPeriod = "period"
	// AttrEnable is 1 when a channel is running, 0 otherwise.
	AttrEnable = "enable"
)

// AttributeNames lists the per-channel attributes.
var AttributeNames = []string{AttrDutyCycle, AttrPeriod, AttrEnable}

// Attributes is the text based configuration surface of a Manager.
// Values are written and read as decimal text, the way
// sysfs attributes are.
type Attributes struct {
	manager *Manager
}

// NewAttributes creates the configuration surface for the given manager.
func NewAttributes(m *Manager) *Attributes {
	return &Attributes{manager: m}
}

// ParseValue parses an unsigned integer written to an attribute.
// A single trailing newline is allowed; a 0x prefix selects hexadecimal
// and a leading 0 selects octal.
func ParseValue(text string) (uint64, error) {
	s := strings.TrimSuffix(text, "\n")
	s = strings.TrimPrefix(s, "+")
	if s == "" || strings.ContainsRune(s, '_') {
		return 0, errors.Wrapf(InvalidInputError, "invalid value '%s'", text)
	}
	if len(s) > 1 && s[0] == '0' && strings.ContainsRune("oObB", rune(s[1])) {
		return 0, errors.Wrapf(InvalidInputError, "invalid value '%s'", text)
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(InvalidInputError, "invalid value '%s'", text)
	}
	return v, nil
}

func parsePin(text string) (int, error) {
	v, err := ParseValue(text)
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint32(0)>>1) {
		return 0, errors.Wrapf(InvalidInputError, "invalid pin '%s'", text)
	}
	return int(v), nil
}

// Export exports the pin written as text.
// Returns the slot of the new channel.
func (a *Attributes) Export(ctx context.Context, text string) (int, error) {
	pin, err := parsePin(text)
	if err != nil {
		return -1, err
	}
	return a.manager.Export(ctx, pin)
}

// Unexport unexports the pin written as text.
func (a *Attributes) Unexport(ctx context.Context, text string) error {
	pin, err := parsePin(text)
	if err != nil {
		return err
	}
	return a.manager.Unexport(ctx, pin)
}

// Write stores a value in an attribute of the channel in the given slot.
func (a *Attributes) Write(slot int, attr, text string) error {
	c, err := a.manager.Channel(slot)
	if err != nil {
		return err
	}
	return a.write(c, attr, text)
}

// WritePin stores a value in an attribute of the channel of the given pin.
func (a *Attributes) WritePin(pin int, attr, text string) error {
	c, err := a.manager.Lookup(pin)
	if err != nil {
		return err
	}
	return a.write(c, attr, text)
}

// Read returns an attribute of the channel in the given slot.
func (a *Attributes) Read(slot int, attr string) (string, error) {
	c, err := a.manager.Channel(slot)
	if err != nil {
		return "", err
	}
	return read(c, attr)
}

// ReadPin returns an attribute of the channel of the given pin.
func (a *Attributes) ReadPin(pin int, attr string) (string, error) {
	c, err := a.manager.Lookup(pin)
	if err != nil {
		return "", err
	}
	return read(c, attr)
}

func (a *Attributes) write(c *Channel, attr, text string) error {
	switch attr {
	case AttrDutyCycle, AttrPeriod, AttrEnable:
	default:
		return errors.Wrapf(NotFoundError, "unknown attribute '%s'", attr)
	}
	v, err := ParseValue(text)
	if err != nil {
		return err
	}
	switch attr {
	case AttrDutyCycle:
		return c.SetDutyCycle(v)
	case AttrPeriod:
		return c.SetPeriod(v)
	default:
		// A withheld enable is not an error
		_, err := a.manager.SetEnabled(c, v != 0)
		return err
	}
}

func read(c *Channel, attr string) (string, error) {
	var v uint64
	switch attr {
	case AttrDutyCycle:
		x, err := c.DutyCycle()
		if err != nil {
			return "", err
		}
		v = x
	case AttrPeriod:
		x, err := c.Period()
		if err != nil {
			return "", err
		}
		v = x
	case AttrEnable:
		enabled, err := c.Enabled()
		if err != nil {
			return "", err
		}
		if enabled {
			v = 1
		}
	default:
		return "", errors.Wrapf(NotFoundError, "unknown attribute '%s'", attr)
	}
	return strconv.FormatUint(v, 10) + "\n", nil
}
