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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/ssh"
	"github.com/dustin/go-humanize"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

const (
	refreshInterval = time.Second
)

// Source provides the channels shown in the console.
type Source interface {
	// Capacity returns the maximum number of channels
	Capacity() int
	// Channels returns a snapshot of all exported channels
	Channels() []softpwm.ChannelInfo
	// SetEnabled enables/disables the channel of the given pin
	SetEnabled(pin int, enable bool) (bool, error)
}

// UI creates a console for every SSH session.
type UI struct {
	source Source
}

// New creates a UI showing the channels of the given source.
func New(source Source) *UI {
	return &UI{source: source}
}

// Handler creates the model for a new SSH session.
func (u *UI) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	r := NewRoot(u.source)
	r.term = pty.Term
	r.width = pty.Window.Width
	r.height = pty.Window.Height
	return r, []tea.ProgramOption{tea.WithAltScreen()}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// Root is the model of the console.
type Root struct {
	source   Source
	term     string
	width    int
	height   int
	loadAvg  string
	status   string
	channels table.Model
}

var _ tea.Model = Root{}

// NewRoot creates the root model.
func NewRoot(source Source) Root {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Slot", Width: 4},
			{Title: "Name", Width: 8},
			{Title: "Period", Width: 10},
			{Title: "Duty", Width: 10},
			{Title: "Ratio", Width: 6},
			{Title: "Freq", Width: 10},
			{Title: "Enable", Width: 6},
			{Title: "Level", Width: 5},
			{Title: "Toggles", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(softpwm.DefaultCapacity+1),
	)
	return Root{
		source:   source,
		channels: t,
	}
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return tea.Batch(doRefresh(0), doReloadCPULoadAvg())
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadAvgMsg:
		r.loadAvg = string(msg)
		return r, doReloadCPULoadAvg()
	case refreshMsg:
		r = r.refresh()
		return r, doRefresh(refreshInterval)
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "e":
			r = r.toggleSelected()
			return r, nil
		case "r":
			r = r.refresh()
			return r, nil
		}
	}

	var cmd tea.Cmd
	r.channels, cmd = r.channels.Update(msg)
	cmds = append(cmds, cmd)
	return r, tea.Batch(cmds...)
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	s := r.headerView()
	s += r.channels.View() + "\n"
	if r.status != "" {
		s += statusStyle.Render(r.status) + "\n"
	}
	s += `e - Enable/disable selected channel
r - Refresh
q - Disconnect
`
	return s
}

func (r Root) headerView() string {
	title := fmt.Sprintf("Software PWM (%d/%d channels)", len(r.channels.Rows()), r.source.Capacity())
	return lipgloss.JoinHorizontal(lipgloss.Left,
		headerStyle.Render(title),
		"  ",
		strings.TrimSpace(r.loadAvg),
	) + "\n"
}

// refresh loads the current channels into the table.
func (r Root) refresh() Root {
	r.channels.SetRows(channelRows(r.source.Channels()))
	return r
}

// toggleSelected enables or disables the selected channel.
func (r Root) toggleSelected() Root {
	row := r.channels.SelectedRow()
	if row == nil {
		return r
	}
	pin, err := softpwm.ParseChannelName(row[1])
	if err != nil {
		r.status = err.Error()
		return r
	}
	enable := row[6] != "yes"
	running, err := r.source.SetEnabled(pin, enable)
	switch {
	case err != nil:
		r.status = err.Error()
	case enable && !running:
		r.status = fmt.Sprintf("%s cannot run with its current period/duty cycle", row[1])
	default:
		r.status = ""
	}
	return r.refresh()
}

// channelRows converts channels into table rows.
func channelRows(channels []softpwm.ChannelInfo) []table.Row {
	rows := make([]table.Row, 0, len(channels))
	for _, c := range channels {
		ratio, freq := "-", "-"
		if c.PeriodNs > 0 {
			ratio = fmt.Sprintf("%.1f%%", 100*float64(c.DutyCycleNs)/float64(c.PeriodNs))
			freq = humanize.SI(1e9/float64(c.PeriodNs), "Hz")
		}
		enabled := "no"
		if c.Enabled {
			enabled = "yes"
		}
		rows = append(rows, table.Row{
			strconv.Itoa(c.Slot),
			c.Name,
			formatNanoseconds(c.PeriodNs),
			formatNanoseconds(c.DutyCycleNs),
			ratio,
			freq,
			enabled,
			strconv.Itoa(c.Level),
			humanize.Comma(int64(c.Toggles)),
		})
	}
	return rows
}

func formatNanoseconds(ns uint64) string {
	if ns == 0 {
		return "0"
	}
	return humanize.SI(float64(ns)/1e9, "s")
}

type refreshMsg struct{}

func doRefresh(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return refreshMsg{}
	})
}

type loadAvgMsg string

func doReloadCPULoadAvg() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		if content, err := os.ReadFile("/proc/loadavg"); err != nil {
			return loadAvgMsg(err.Error())
		} else {
			return loadAvgMsg(string(content))
		}
	})
}
