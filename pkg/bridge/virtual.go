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
	"sort"
	"sync"

	"github.com/pkg/errors"
)

const (
	// VirtualBridgeName is the name of the in-memory bridge.
	VirtualBridgeName = "virtual"
)

type virtualPin struct {
	output      bool
	level       int
	transitions uint64
}

// VirtualBridge is an in-memory bridge without hardware.
// It remembers the level of every claimed pin.
type VirtualBridge struct {
	mutex    sync.Mutex
	pins     map[int]*virtualPin
	reserved map[int]struct{}
}

// NewVirtualBridge implements the bridge for a system without GPIO hardware.
// Claiming one of the reserved pins fails.
func NewVirtualBridge(reserved ...int) *VirtualBridge {
	b := &VirtualBridge{
		pins:     make(map[int]*virtualPin),
		reserved: make(map[int]struct{}),
	}
	for _, pin := range reserved {
		b.reserved[pin] = struct{}{}
	}
	return b
}

// Name of the bridge type
func (b *VirtualBridge) Name() string {
	return VirtualBridgeName
}

// Claim the pin for exclusive use.
func (b *VirtualBridge) Claim(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, found := b.reserved[pin]; found {
		return errors.Wrapf(PinBusyError, "pin %d is reserved", pin)
	}
	if _, found := b.pins[pin]; found {
		return errors.Wrapf(PinBusyError, "pin %d", pin)
	}
	b.pins[pin] = &virtualPin{}
	return nil
}

// SetDirectionOutput configures a claimed pin as output.
func (b *VirtualBridge) SetDirectionOutput(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, err := b.getPin(pin)
	if err != nil {
		return err
	}
	p.output = true
	return nil
}

// SetLevel drives a claimed output pin to the given level.
func (b *VirtualBridge) SetLevel(pin int, level int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, err := b.getPin(pin)
	if err != nil {
		return err
	}
	if !p.output {
		return errors.Errorf("pin %d is not an output", pin)
	}
	if p.level != level {
		p.transitions++
	}
	p.level = level
	return nil
}

// Release a claimed pin.
func (b *VirtualBridge) Release(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, err := b.getPin(pin); err != nil {
		return err
	}
	delete(b.pins, pin)
	return nil
}

// Close releases all pins.
func (b *VirtualBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.pins = make(map[int]*virtualPin)
	return nil
}

// Level returns the current level of a claimed pin.
func (b *VirtualBridge) Level(pin int) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, err := b.getPin(pin)
	if err != nil {
		return 0, err
	}
	return p.level, nil
}

// Transitions returns the number of level changes of a claimed pin.
func (b *VirtualBridge) Transitions(pin int) (uint64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, err := b.getPin(pin)
	if err != nil {
		return 0, err
	}
	return p.transitions, nil
}

// ClaimedPins returns all claimed pins in ascending order.
func (b *VirtualBridge) ClaimedPins() []int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	result := make([]int, 0, len(b.pins))
	for pin := range b.pins {
		result = append(result, pin)
	}
	sort.Ints(result)
	return result
}

func (b *VirtualBridge) getPin(pin int) (*virtualPin, error) {
	p, found := b.pins[pin]
	if !found {
		return nil, errors.Wrapf(PinNotClaimedError, "pin %d", pin)
	}
	return p, nil
}
