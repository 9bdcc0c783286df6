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

package service

import (
	"github.com/binkynet/SoftPWM/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of channel events per type
	eventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"events_total",
		"Total number of channel events per type",
		"type")
	// Total number of MQTT commands per attribute
	commandsTotal = metrics.MustRegisterCounterVec(subSystem,
		"commands_total",
		"Total number of MQTT commands per attribute",
		"attr")
	// Total number of failed MQTT commands per attribute
	commandErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"command_errors_total",
		"Total number of failed MQTT commands per attribute",
		"attr")
)
