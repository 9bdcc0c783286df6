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
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// CdevBridgeName is the name of the bridge using the GPIO character device.
	CdevBridgeName = "cdev"
	// DefaultChip is the GPIO chip used by the cdev bridge.
	DefaultChip = "gpiochip0"
	// DefaultConsumer is the consumer label of requested lines.
	DefaultConsumer = "softpwm"
)

// Config of a bridge.
type Config struct {
	// Type of bridge: cdev|sysfs|periph|virtual
	Type string
	// GPIO chip (cdev only)
	Chip string
	// Pins that cannot be claimed (virtual only)
	Reserved []int
}

// New creates a bridge of the configured type, instrumented with metrics.
func New(log zerolog.Logger, conf Config) (API, error) {
	var api API
	var err error
	switch conf.Type {
	case CdevBridgeName:
		api, err = NewCdevBridge(conf.Chip, DefaultConsumer)
	case SysfsBridgeName:
		api, err = NewSysfsBridge()
	case PeriphBridgeName:
		api, err = NewPeriphBridge()
	case VirtualBridgeName:
		api = NewVirtualBridge(conf.Reserved...)
	default:
		return nil, errors.Errorf("unknown bridge type '%s'", conf.Type)
	}
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("component", "bridge").
		Str("type", api.Name()).
		Msg("Created bridge")
	return withMetrics(api), nil
}
