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
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	// InvalidInputError is returned when a written value cannot be parsed.
	InvalidInputError = errors.New("invalid input")
	IsInvalidInput    = isErrorFunc(InvalidInputError)
	// BusyError is returned when no channel slot is free, or the pin
	// is already owned by another channel.
	BusyError = errors.New("busy")
	IsBusy    = isErrorFunc(BusyError)
	// PinUnavailableError is returned when the GPIO backend refuses a pin.
	PinUnavailableError = errors.New("pin unavailable")
	IsPinUnavailable    = isErrorFunc(PinUnavailableError)
	// NotFoundError is returned when no exported channel matches.
	NotFoundError = errors.New("not found")
	IsNotFound    = isErrorFunc(NotFoundError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}

// Errno converts the given error into a negative errno value,
// the way a sysfs attribute write reports failure.
// Returns 0 for a nil error.
func Errno(err error) int {
	switch {
	case err == nil:
		return 0
	case IsInvalidInput(err):
		return -int(unix.EINVAL)
	case IsBusy(err):
		return -int(unix.EBUSY)
	case IsPinUnavailable(err):
		return -int(unix.ENODEV)
	case IsNotFound(err):
		return -int(unix.ENOENT)
	default:
		return -int(unix.EIO)
	}
}
