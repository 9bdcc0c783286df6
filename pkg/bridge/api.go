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
	"github.com/binkynet/SoftPWM/pkg/softpwm"
	"github.com/pkg/errors"
)

// API of the bridge, the hardware used to drive the output pins
// of the PWM channels.
type API interface {
	softpwm.GPIO

	// Name of the bridge type
	Name() string
	// Release all pins and close the bridge
	Close() error
}

var (
	// PinBusyError is returned when a pin is already claimed.
	PinBusyError = errors.New("pin busy")
	IsPinBusy    = isErrorFunc(PinBusyError)
	// PinNotClaimedError is returned when a pin is used before it is claimed.
	PinNotClaimedError = errors.New("pin not claimed")
	IsPinNotClaimed    = isErrorFunc(PinNotClaimedError)
	// PinNotFoundError is returned when the hardware has no such pin.
	PinNotFoundError = errors.New("pin not found")
	IsPinNotFound    = isErrorFunc(PinNotFoundError)
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
