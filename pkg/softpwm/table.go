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
	"sync"

	"github.com/pkg/errors"
)

const (
	// DefaultCapacity is the default number of channel slots.
	DefaultCapacity = 5
)

type slotState uint8

const (
	slotFree slotState = iota
	// Claimed by an export that has not completed yet
	slotReserved
	// Exported
	slotClaimed
	// Claimed by an unexport that has not completed yet
	slotReleasing
)

// Table is a fixed size pool of channel slots.
// The slot index is the handle of a channel.
type Table struct {
	mutex    sync.Mutex
	channels []*Channel
	states   []slotState
	pins     []int
}

// NewTable creates a table with the given number of slots.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t := &Table{
		channels: make([]*Channel, capacity),
		states:   make([]slotState, capacity),
		pins:     make([]int, capacity),
	}
	for i := range t.channels {
		t.channels[i] = &Channel{slot: i}
	}
	return t
}

// Capacity returns the number of slots in the table.
func (t *Table) Capacity() int {
	return len(t.channels)
}

// Claim reserves the first free slot (by ascending index) for the given pin.
// Returns BusyError when the table is full or the pin is already
// held by another slot.
func (t *Table) Claim(pin int) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	free := -1
	for i, state := range t.states {
		if state == slotFree {
			if free < 0 {
				free = i
			}
		} else if t.pins[i] == pin {
			return -1, errors.Wrapf(BusyError, "pin %d is already exported in slot %d", pin, i)
		}
	}
	if free < 0 {
		return -1, errors.Wrapf(BusyError, "all %d slots are in use", len(t.states))
	}
	t.states[free] = slotReserved
	t.pins[free] = pin
	return free, nil
}

// Commit marks a reserved slot as exported, making it visible to lookups.
func (t *Table) Commit(slot int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if slot < 0 || slot >= len(t.states) || t.states[slot] != slotReserved {
		return errors.Wrapf(NotFoundError, "slot %d is not reserved", slot)
	}
	t.states[slot] = slotClaimed
	return nil
}

// BeginRelease marks the exported slot of the given pin as releasing
// and returns its channel.
// Concurrent callers for the same pin get NotFoundError.
func (t *Table) BeginRelease(pin int) (*Channel, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	slot, err := t.lookupLocked(pin)
	if err != nil {
		return nil, err
	}
	t.states[slot] = slotReleasing
	return t.channels[slot], nil
}

// Release frees the given slot and clears its descriptor.
// The caller must make sure no timer of the channel is pending.
func (t *Table) Release(slot int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if slot < 0 || slot >= len(t.states) || t.states[slot] == slotFree {
		return errors.Wrapf(NotFoundError, "slot %d is not claimed", slot)
	}
	t.channels[slot].reset()
	t.states[slot] = slotFree
	t.pins[slot] = 0
	return nil
}

// Lookup returns the channel exported for the given pin.
func (t *Table) Lookup(pin int) (*Channel, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	slot, err := t.lookupLocked(pin)
	if err != nil {
		return nil, err
	}
	return t.channels[slot], nil
}

func (t *Table) lookupLocked(pin int) (int, error) {
	for i, state := range t.states {
		if state == slotClaimed && t.pins[i] == pin {
			return i, nil
		}
	}
	return -1, errors.Wrapf(NotFoundError, "pin %d is not exported", pin)
}

// Channel returns the exported channel in the given slot.
func (t *Table) Channel(slot int) (*Channel, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if slot < 0 || slot >= len(t.states) || t.states[slot] != slotClaimed {
		return nil, errors.Wrapf(NotFoundError, "slot %d is not exported", slot)
	}
	return t.channels[slot], nil
}

// Pins returns the pins of all exported channels, ordered by slot.
func (t *Table) Pins() []int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var result []int
	for i, state := range t.states {
		if state == slotClaimed {
			result = append(result, t.pins[i])
		}
	}
	return result
}

// Snapshot returns information of all exported channels, ordered by slot.
func (t *Table) Snapshot() []ChannelInfo {
	t.mutex.Lock()
	var exported []*Channel
	for i, state := range t.states {
		if state == slotClaimed {
			exported = append(exported, t.channels[i])
		}
	}
	t.mutex.Unlock()

	result := make([]ChannelInfo, 0, len(exported))
	for _, c := range exported {
		result = append(result, c.Info())
	}
	return result
}
