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
	goerrors "errors"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

type cdevBridge struct {
	mutex    sync.Mutex
	chip     string
	consumer string
	lines    map[int]*gpiocdev.Line
}

// NewCdevBridge implements the bridge using the GPIO character device
// of the given chip (e.g. "gpiochip0").
// The pin numbers are line offsets of that chip.
func NewCdevBridge(chip, consumer string) (API, error) {
	if chip == "" {
		chip = DefaultChip
	}
	if consumer == "" {
		consumer = DefaultConsumer
	}
	return &cdevBridge{
		chip:     chip,
		consumer: consumer,
		lines:    make(map[int]*gpiocdev.Line),
	}, nil
}

// Name of the bridge type
func (b *cdevBridge) Name() string {
	return CdevBridgeName
}

// Claim requests the line, leaving its direction unchanged.
func (b *cdevBridge) Claim(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, found := b.lines[pin]; found {
		return errors.Wrapf(PinBusyError, "pin %d", pin)
	}
	line, err := gpiocdev.RequestLine(b.chip, pin, gpiocdev.WithConsumer(b.consumer))
	if err != nil {
		if goerrors.Is(err, unix.EBUSY) {
			return errors.Wrapf(PinBusyError, "line %d of %s is in use", pin, b.chip)
		}
		return errors.Wrapf(err, "RequestLine[%s:%d] failed", b.chip, pin)
	}
	b.lines[pin] = line
	return nil
}

// SetDirectionOutput configures the line as output that is initially low.
func (b *cdevBridge) SetDirectionOutput(pin int) error {
	line, err := b.getLine(pin)
	if err != nil {
		return err
	}
	if err := line.Reconfigure(gpiocdev.AsOutput(0)); err != nil {
		return errors.Wrapf(err, "Reconfigure[%d] failed", pin)
	}
	return nil
}

// SetLevel drives a claimed output line to the given level.
func (b *cdevBridge) SetLevel(pin int, level int) error {
	line, err := b.getLine(pin)
	if err != nil {
		return err
	}
	if err := line.SetValue(level); err != nil {
		return errors.Wrapf(err, "SetValue[%d] failed", pin)
	}
	return nil
}

// Release turns the line back into an input and closes it.
func (b *cdevBridge) Release(pin int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	line, found := b.lines[pin]
	if !found {
		return errors.Wrapf(PinNotClaimedError, "pin %d", pin)
	}
	delete(b.lines, pin)
	return closeLine(line)
}

// Close releases all lines.
func (b *cdevBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var ae aerr.AggregateError
	for pin, line := range b.lines {
		if err := closeLine(line); err != nil {
			ae.Add(err)
		}
		delete(b.lines, pin)
	}
	return ae.AsError()
}

func (b *cdevBridge) getLine(pin int) (*gpiocdev.Line, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	line, found := b.lines[pin]
	if !found {
		return nil, errors.Wrapf(PinNotClaimedError, "pin %d", pin)
	}
	return line, nil
}

func closeLine(line *gpiocdev.Line) error {
	line.Reconfigure(gpiocdev.AsInput)
	if err := line.Close(); err != nil {
		return errors.Wrap(err, "Close failed")
	}
	return nil
}
