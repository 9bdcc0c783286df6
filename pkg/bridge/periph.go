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

package bridge

import (
	"fmt"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// PeriphBridgeName is the name of the bridge using periph.io drivers.
	PeriphBridgeName = "periph"
)

type periphBridge struct {
	mutex sync.Mutex
	pins  map[int]gpio.PinIO
}

// NewPeriphBridge implements the bridge using the periph.io host drivers.
// Pins are resolved by their "GPIO<n>" name.
func NewPeriphBridge() (API, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host.Init failed")
	}
	return &periphBridge{
		pins: make(map[int]gpio.PinIO),
	}, nil
}

// Name of the bridge type
func (b *periphBridge) Name() string {
	return PeriphBridgeName
}

// Claim resolves the pin for exclusive use.
func (b *periphBridge) Claim(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, found := b.pins[pin]; found {
		return errors.Wrapf(PinBusyError, "pin %d", pin)
	}
	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return errors.Wrapf(PinNotFoundError, "%s", name)
	}
	b.pins[pin] = p
	return nil
}

// SetDirectionOutput configures the pin as output that is initially low.
func (b *periphBridge) SetDirectionOutput(pin int) error {
	p, err := b.getPin(pin)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Low); err != nil {
		return errors.Wrapf(err, "Out[%s] failed", p.Name())
	}
	return nil
}

// SetLevel drives a claimed output pin to the given level.
func (b *periphBridge) SetLevel(pin int, level int) error {
	p, err := b.getPin(pin)
	if err != nil {
		return err
	}
	l := gpio.Low
	if level != 0 {
		l = gpio.High
	}
	if err := p.Out(l); err != nil {
		return errors.Wrapf(err, "Out[%s] failed", p.Name())
	}
	return nil
}

// Release halts a claimed pin.
func (b *periphBridge) Release(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found {
		return errors.Wrapf(PinNotClaimedError, "pin %d", pin)
	}
	delete(b.pins, pin)
	if err := p.Halt(); err != nil {
		return errors.Wrapf(err, "Halt[%s] failed", p.Name())
	}
	return nil
}

// Close halts all pins.
func (b *periphBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var ae aerr.AggregateError
	for pin, p := range b.pins {
		if err := p.Halt(); err != nil {
			ae.Add(err)
		}
		delete(b.pins, pin)
	}
	return ae.AsError()
}

func (b *periphBridge) getPin(pin int) (gpio.PinIO, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found {
		return nil, errors.Wrapf(PinNotClaimedError, "pin %d", pin)
	}
	return p, nil
}
