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
	"io"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

const (
	// SysfsBridgeName is the name of the bridge using /sys/class/gpio.
	SysfsBridgeName = "sysfs"
)

type sysfsBridge struct {
	mutex sync.Mutex
	// Claimed pins; the value is nil until the pin is configured as output
	pins map[int]gpio.OutputPin
}

// NewSysfsBridge implements the bridge using the sysfs GPIO interface.
func NewSysfsBridge() (API, error) {
	return &sysfsBridge{
		pins: make(map[int]gpio.OutputPin),
	}, nil
}

// Name of the bridge type
func (b *sysfsBridge) Name() string {
	return SysfsBridgeName
}

// Claim the pin for exclusive use.
func (b *sysfsBridge) Claim(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, found := b.pins[pin]; found {
		return errors.Wrapf(PinBusyError, "pin %d", pin)
	}
	b.pins[pin] = nil
	return nil
}

// SetDirectionOutput exports the pin as an output that is initially low.
func (b *sysfsBridge) SetDirectionOutput(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found {
		return errors.Wrapf(PinNotClaimedError, "pin %d", pin)
	}
	if p != nil {
		return nil
	}
	activeLow := false
	initialValue := false
	p, err := gpio.Output(pin, activeLow, initialValue)
	if err != nil {
		return errors.Wrapf(err, "Output[%d] failed", pin)
	}
	b.pins[pin] = p
	return nil
}

// SetLevel drives a claimed output pin to the given level.
func (b *sysfsBridge) SetLevel(pin int, level int) error {
	b.mutex.Lock()
	p := b.pins[pin]
	b.mutex.Unlock()

	if p == nil {
		return errors.Wrapf(PinNotClaimedError, "pin %d is not an output", pin)
	}
	if err := p.Write(level != 0); err != nil {
		return errors.Wrapf(err, "Write[%d] failed", pin)
	}
	return nil
}

// Release a claimed pin.
func (b *sysfsBridge) Release(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found {
		return errors.Wrapf(PinNotClaimedError, "pin %d", pin)
	}
	delete(b.pins, pin)
	return closePin(p)
}

// Close releases all pins.
func (b *sysfsBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var ae aerr.AggregateError
	for pin, p := range b.pins {
		if err := closePin(p); err != nil {
			ae.Add(err)
		}
		delete(b.pins, pin)
	}
	return ae.AsError()
}

func closePin(p gpio.OutputPin) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
