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

package publish

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

var (
	// AlreadyPublishedError is returned when a channel name is published twice.
	AlreadyPublishedError = errors.New("already published")
	IsAlreadyPublished    = isErrorFunc(AlreadyPublishedError)
	// NotPublishedError is returned when a name is not published.
	NotPublishedError = errors.New("not published")
	IsNotPublished    = isErrorFunc(NotPublishedError)
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}

// Entry describes a published channel.
type Entry struct {
	Name        string    `json:"name"`
	Slot        int       `json:"slot"`
	Pin         int       `json:"pin"`
	PublishedAt time.Time `json:"published_at"`
}

// entryPublication is the handle returned by the Registry.
type entryPublication struct {
	entry Entry
}

func (p *entryPublication) Name() string { return p.entry.Name }

// Registry keeps the published channels in memory, so they can be
// enumerated and addressed by name.
type Registry struct {
	mutex   sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
	}
}

// Publish the channel in the given slot, controlling the given pin.
func (r *Registry) Publish(ctx context.Context, slot, pin int) (softpwm.Publication, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := softpwm.ChannelName(pin)
	if _, found := r.entries[name]; found {
		return nil, errors.Wrapf(AlreadyPublishedError, "channel '%s'", name)
	}
	e := Entry{
		Name:        name,
		Slot:        slot,
		Pin:         pin,
		PublishedAt: time.Now(),
	}
	r.entries[name] = e
	return &entryPublication{entry: e}, nil
}

// Unpublish a channel published earlier.
func (r *Registry) Unpublish(ctx context.Context, p softpwm.Publication) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := p.Name()
	if _, found := r.entries[name]; !found {
		return errors.Wrapf(NotPublishedError, "channel '%s'", name)
	}
	delete(r.entries, name)
	return nil
}

// Lookup returns the entry published under the given name.
func (r *Registry) Lookup(name string) (Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	e, found := r.entries[name]
	if !found {
		return Entry{}, errors.Wrapf(NotPublishedError, "channel '%s'", name)
	}
	return e, nil
}

// Entries returns all published channels ordered by slot.
func (r *Registry) Entries() []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot < result[j].Slot })
	return result
}
