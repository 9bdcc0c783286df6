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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewTable(0).Capacity())
	assert.Equal(t, 3, NewTable(3).Capacity())
}

func TestTableClaimFirstFree(t *testing.T) {
	tb := NewTable(3)
	for i, pin := range []int{10, 11, 12} {
		slot, err := tb.Claim(pin)
		require.NoError(t, err)
		assert.Equal(t, i, slot)
	}
	_, err := tb.Claim(13)
	assert.True(t, IsBusy(err))

	require.NoError(t, tb.Release(1))
	slot, err := tb.Claim(13)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
}

func TestTableDuplicatePin(t *testing.T) {
	tb := NewTable(3)
	slot, err := tb.Claim(4)
	require.NoError(t, err)

	// Reserved slots count as owners too
	_, err = tb.Claim(4)
	assert.True(t, IsBusy(err))

	require.NoError(t, tb.Commit(slot))
	_, err = tb.Claim(4)
	assert.True(t, IsBusy(err))

	_, err = tb.BeginRelease(4)
	require.NoError(t, err)
	_, err = tb.Claim(4)
	assert.True(t, IsBusy(err))

	require.NoError(t, tb.Release(slot))
	_, err = tb.Claim(4)
	assert.NoError(t, err)
}

func TestTableLookupOnlySeesCommitted(t *testing.T) {
	tb := NewTable(2)
	slot, err := tb.Claim(7)
	require.NoError(t, err)

	_, err = tb.Lookup(7)
	assert.True(t, IsNotFound(err))
	_, err = tb.Channel(slot)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, tb.Pins())

	require.NoError(t, tb.Commit(slot))
	c, err := tb.Lookup(7)
	require.NoError(t, err)
	assert.Equal(t, slot, c.Slot())
	assert.Equal(t, []int{7}, tb.Pins())
}

func TestTableBeginReleaseOnce(t *testing.T) {
	tb := NewTable(2)
	slot, err := tb.Claim(3)
	require.NoError(t, err)
	require.NoError(t, tb.Commit(slot))

	_, err = tb.BeginRelease(3)
	require.NoError(t, err)
	_, err = tb.BeginRelease(3)
	assert.True(t, IsNotFound(err))
	_, err = tb.Lookup(3)
	assert.True(t, IsNotFound(err))
}

func TestTableReleaseErrors(t *testing.T) {
	tb := NewTable(2)
	assert.True(t, IsNotFound(tb.Release(0)))
	assert.True(t, IsNotFound(tb.Release(-1)))
	assert.True(t, IsNotFound(tb.Release(2)))
	assert.True(t, IsNotFound(tb.Commit(0)))
}
