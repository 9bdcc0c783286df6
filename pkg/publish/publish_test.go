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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	p1, err := r.Publish(ctx, 1, 18)
	require.NoError(t, err)
	assert.Equal(t, "pwm18", p1.Name())
	_, err = r.Publish(ctx, 0, 4)
	require.NoError(t, err)

	_, err = r.Publish(ctx, 2, 18)
	assert.True(t, IsAlreadyPublished(err))

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "pwm4", entries[0].Name)
	assert.Equal(t, "pwm18", entries[1].Name)

	e, err := r.Lookup("pwm18")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Slot)
	assert.Equal(t, 18, e.Pin)

	require.NoError(t, r.Unpublish(ctx, p1))
	_, err = r.Lookup("pwm18")
	assert.True(t, IsNotPublished(err))
	assert.True(t, IsNotPublished(r.Unpublish(ctx, p1)))
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, slot, pin int) (softpwm.Publication, error) {
	return nil, errors.New("unreachable")
}

func (failingPublisher) Unpublish(ctx context.Context, p softpwm.Publication) error {
	return nil
}

func TestMultiPublisher(t *testing.T) {
	ctx := context.Background()
	r1, r2 := NewRegistry(), NewRegistry()
	m := NewMulti(r1, nil, r2)

	pub, err := m.Publish(ctx, 0, 7)
	require.NoError(t, err)
	assert.Equal(t, "pwm7", pub.Name())
	assert.Len(t, r1.Entries(), 1)
	assert.Len(t, r2.Entries(), 1)

	require.NoError(t, m.Unpublish(ctx, pub))
	assert.Empty(t, r1.Entries())
	assert.Empty(t, r2.Entries())
}

func TestMultiPublisherRollback(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	m := NewMulti(r, failingPublisher{})

	_, err := m.Publish(ctx, 0, 7)
	assert.Error(t, err)
	assert.Empty(t, r.Entries())
}
