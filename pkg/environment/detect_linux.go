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
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/binkynet/SoftPWM/pkg/bridge"
)

const (
	devDir        = "/dev"
	sysfsGPIODir  = "/sys/class/gpio"
	sysfsGPIOFile = "export"
)

// AutoDetectBridgeType detects the default bridge type based on the environment.
func AutoDetectBridgeType(log zerolog.Logger, chip string) string {
	var name unix.Utsname
	release := ""
	machine := ""
	if err := unix.Uname(&name); err == nil {
		release = utsString(name.Release[:])
		machine = utsString(name.Machine[:])
	}
	result := detectBridgeType(chip, exists)
	log.Debug().
		Str("release", release).
		Str("machine", machine).
		Str("bridge", result).
		Msg("Detected bridge type")
	return result
}

// detectBridgeType prefers the character device, then sysfs.
// Without GPIO support a virtual bridge is used.
func detectBridgeType(chip string, exists func(path string) bool) string {
	if chip == "" {
		chip = bridge.DefaultChip
	}
	if exists(filepath.Join(devDir, chip)) {
		return bridge.CdevBridgeName
	}
	if exists(filepath.Join(sysfsGPIODir, sysfsGPIOFile)) {
		return bridge.SysfsBridgeName
	}
	return bridge.VirtualBridgeName
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func utsString(raw []byte) string {
	if i := strings.IndexByte(string(raw), 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(string(raw))
}
