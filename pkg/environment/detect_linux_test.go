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

package environment

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/binkynet/SoftPWM/pkg/bridge"
)

func TestDetectBridgeType(t *testing.T) {
	paths := func(existing ...string) func(string) bool {
		return func(path string) bool {
			for _, x := range existing {
				if x == path {
					return true
				}
			}
			return false
		}
	}
	assert.Equal(t, bridge.CdevBridgeName, detectBridgeType("", paths("/dev/gpiochip0", "/sys/class/gpio/export")))
	assert.Equal(t, bridge.CdevBridgeName, detectBridgeType("gpiochip4", paths("/dev/gpiochip4")))
	assert.Equal(t, bridge.SysfsBridgeName, detectBridgeType("gpiochip4", paths("/dev/gpiochip0", "/sys/class/gpio/export")))
	assert.Equal(t, bridge.VirtualBridgeName, detectBridgeType("", paths()))
}

func TestAutoDetectBridgeType(t *testing.T) {
	result := AutoDetectBridgeType(zerolog.Nop(), "")
	assert.Contains(t, []string{bridge.CdevBridgeName, bridge.SysfsBridgeName, bridge.VirtualBridgeName}, result)
}

func TestUtsString(t *testing.T) {
	assert.Equal(t, "6.1.0-rpi", utsString([]byte("6.1.0-rpi\x00\x00\x00")))
	assert.Equal(t, "x86_64", utsString([]byte("x86_64")))
}
