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
	"strconv"

	"github.com/binkynet/SoftPWM/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of times a pin is claimed
	claimCounters = metrics.MustRegisterCounterVec(subSystem,
		"claim_total",
		"Total number of times a pin is claimed",
		"bridge")
	// Total number of times claiming a pin failed
	claimErrorCounters = metrics.MustRegisterCounterVec(subSystem,
		"claim_error_total",
		"Total number of times claiming a pin failed",
		"bridge")
	// Total number of times setting a pin level failed
	setLevelErrorCounters = metrics.MustRegisterCounterVec(subSystem,
		"set_level_error_total",
		"Total number of times setting a pin level failed",
		"bridge", "pin")
	// Number of claimed pins
	claimedPinsGauge = metrics.MustRegisterGaugeVec(subSystem,
		"claimed_pins",
		"Number of claimed pins",
		"bridge")
)

// instrumented wraps a bridge, counting claims and failures.
type instrumented struct {
	API
	claims      prometheus.Counter
	claimErrors prometheus.Counter
	claimed     prometheus.Gauge
}

// withMetrics wraps the given bridge with prometheus metrics.
func withMetrics(api API) API {
	name := api.Name()
	return &instrumented{
		API:         api,
		claims:      claimCounters.WithLabelValues(name),
		claimErrors: claimErrorCounters.WithLabelValues(name),
		claimed:     claimedPinsGauge.WithLabelValues(name),
	}
}

func (b *instrumented) Claim(pin int) error {
	b.claims.Inc()
	if err := b.API.Claim(pin); err != nil {
		b.claimErrors.Inc()
		return err
	}
	b.claimed.Inc()
	return nil
}

func (b *instrumented) SetLevel(pin int, level int) error {
	if err := b.API.SetLevel(pin, level); err != nil {
		setLevelErrorCounters.WithLabelValues(b.API.Name(), strconv.Itoa(pin)).Inc()
		return err
	}
	return nil
}

func (b *instrumented) Release(pin int) error {
	if err := b.API.Release(pin); err != nil {
		return err
	}
	b.claimed.Dec()
	return nil
}
