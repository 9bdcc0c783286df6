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

package ui

import (
	"testing"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

type testSource struct {
	channels []softpwm.ChannelInfo
	enabled  map[int]bool
}

func (s *testSource) Capacity() int { return 5 }

func (s *testSource) Channels() []softpwm.ChannelInfo {
	result := append([]softpwm.ChannelInfo(nil), s.channels...)
	for i := range result {
		result[i].Enabled = s.enabled[result[i].Pin]
	}
	return result
}

func (s *testSource) SetEnabled(pin int, enable bool) (bool, error) {
	s.enabled[pin] = enable
	return enable, nil
}

func TestChannelRows(t *testing.T) {
	rows := channelRows([]softpwm.ChannelInfo{
		{Slot: 0, Name: "pwm18", Pin: 18, PeriodNs: 500000, DutyCycleNs: 125000, Enabled: true, Level: 1, Toggles: 12345},
		{Slot: 1, Name: "pwm4", Pin: 4},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, table.Row{"0", "pwm18", "500 µs", "125 µs", "25.0%", "2 kHz", "yes", "1", "12,345"}, rows[0])
	assert.Equal(t, table.Row{"1", "pwm4", "0", "0", "-", "-", "no", "0", "0"}, rows[1])
}

func TestRootToggle(t *testing.T) {
	source := &testSource{
		channels: []softpwm.ChannelInfo{
			{Slot: 0, Name: "pwm18", Pin: 18, PeriodNs: 1000, DutyCycleNs: 500},
		},
		enabled: make(map[int]bool),
	}
	var m tea.Model = NewRoot(source)
	m, _ = m.Update(refreshMsg{})
	assert.Contains(t, m.View(), "pwm18")
	assert.Contains(t, m.View(), "1/5 channels")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.True(t, source.enabled[18])
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.False(t, source.enabled[18])

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
