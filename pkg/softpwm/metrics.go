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
	"github.com/binkynet/SoftPWM/pkg/metrics"
)

const (
	subSystem = "channels"
)

var (
	// Number of exported channels
	channelsExportedGauge = metrics.MustRegisterGauge(subSystem,
		"exported",
		"Number of exported channels")
	// Total number of successful exports
	exportTotal = metrics.MustRegisterCounter(subSystem,
		"export_total",
		"Total number of successful exports")
	// Total number of failed exports
	exportErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"export_errors_total",
		"Total number of failed exports")
	// Total number of unexports
	unexportTotal = metrics.MustRegisterCounter(subSystem,
		"unexport_total",
		"Total number of unexports")
	// Total number of enable requests that were withheld because of an invalid configuration
	enableWithheldTotal = metrics.MustRegisterCounter(subSystem,
		"enable_withheld_total",
		"Total number of enable requests withheld because of an invalid configuration")
	// Number of running channels
	channelsRunningGauge = metrics.MustRegisterGauge(subSystem,
		"running",
		"Number of running channels")
	// Total number of pin toggles per pin
	togglesTotal = metrics.MustRegisterCounterVec(subSystem,
		"toggles_total",
		"Total number of output toggles",
		"pin")
	// Total number of failed pin level changes per pin
	gpioErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"gpio_errors_total",
		"Total number of failed pin level changes",
		"pin")
)
