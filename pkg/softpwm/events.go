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

// EventType identifies a change of a channel.
type EventType string

const (
	EventExported   EventType = "exported"
	EventUnexported EventType = "unexported"
	EventEnabled    EventType = "enabled"
	EventDisabled   EventType = "disabled"
	EventWithheld   EventType = "enable-withheld"
)

// Event is sent to subscribers when a channel changes.
type Event struct {
	Type EventType
	Slot int
	Pin  int
}
