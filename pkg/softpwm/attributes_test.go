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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestParseValue(t *testing.T) {
	valid := map[string]uint64{
		"0":                    0,
		"500000":               500000,
		"500000\n":             500000,
		"+7":                   7,
		"0x10":                 16,
		"0X1f":                 31,
		"010":                  8,
		"18446744073709551615": 18446744073709551615,
	}
	for text, expected := range valid {
		v, err := ParseValue(text)
		require.NoError(t, err, text)
		assert.Equal(t, expected, v, text)
	}

	invalid := []string{"", "\n", "-1", "abc", "12abc", "1_000", "0b101", "0o17", "1.5", "18446744073709551616", "09",
		" 42", "42 ", "42\n\n", "\t42\n", "+", "+-1"}
	for _, text := range invalid {
		_, err := ParseValue(text)
		assert.True(t, IsInvalidInput(err), text)
	}
}

func TestAttributesRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultCapacity)
	slot, err := env.attrs.Export(ctx, "17\n")
	require.NoError(t, err)

	require.NoError(t, env.attrs.Write(slot, AttrPeriod, "500000\n"))
	require.NoError(t, env.attrs.Write(slot, AttrDutyCycle, "125000\n"))
	require.NoError(t, env.attrs.Write(slot, AttrEnable, "1\n"))

	v, err := env.attrs.Read(slot, AttrPeriod)
	require.NoError(t, err)
	assert.Equal(t, "500000\n", v)
	v, err = env.attrs.ReadPin(17, AttrDutyCycle)
	require.NoError(t, err)
	assert.Equal(t, "125000\n", v)
	v, err = env.attrs.Read(slot, AttrEnable)
	require.NoError(t, err)
	assert.Equal(t, "1\n", v)

	// 25% duty cycle at 500us period
	env.clock.Advance(5 * time.Millisecond)
	var high, low time.Duration
	history := env.gpio.History(17)[1:]
	for i := 1; i < len(history); i++ {
		d := history[i].At - history[i-1].At
		if history[i-1].Level == High {
			high += d
		} else {
			low += d
		}
	}
	assert.Equal(t, 10*125*time.Microsecond, high)
	assert.Equal(t, 10*375*time.Microsecond, low)

	require.NoError(t, env.attrs.Write(slot, AttrEnable, "0"))
	v, err = env.attrs.Read(slot, AttrEnable)
	require.NoError(t, err)
	assert.Equal(t, "0\n", v)
	assert.Equal(t, Low, env.gpio.LastLevel(17))

	require.NoError(t, env.attrs.Unexport(ctx, "17"))
	_, err = env.attrs.Read(slot, AttrPeriod)
	assert.True(t, IsNotFound(err))
}

func TestAttributesWriteAcceptsUnsafeValues(t *testing.T) {
	env := newTestEnv(t, 1)
	slot, err := env.attrs.Export(context.Background(), "3")
	require.NoError(t, err)

	require.NoError(t, env.attrs.WritePin(3, AttrPeriod, "100"))
	require.NoError(t, env.attrs.WritePin(3, AttrDutyCycle, "200"))
	// Enable is withheld, the write still succeeds
	require.NoError(t, env.attrs.WritePin(3, AttrEnable, "1"))

	v, err := env.attrs.Read(slot, AttrEnable)
	require.NoError(t, err)
	assert.Equal(t, "0\n", v)
	v, err = env.attrs.Read(slot, AttrDutyCycle)
	require.NoError(t, err)
	assert.Equal(t, "200\n", v)
}

func TestAttributesErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 1)

	_, err := env.attrs.Export(ctx, "pin4")
	assert.Equal(t, -int(unix.EINVAL), Errno(err))
	_, err = env.attrs.Export(ctx, "99999999999")
	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, -int(unix.ENOENT), Errno(env.attrs.Unexport(ctx, "4")))
	assert.Equal(t, -int(unix.EINVAL), Errno(env.attrs.Unexport(ctx, "x")))

	slot, err := env.attrs.Export(ctx, "4")
	require.NoError(t, err)
	_, err = env.attrs.Export(ctx, "5")
	assert.Equal(t, -int(unix.EBUSY), Errno(err))

	assert.True(t, IsInvalidInput(env.attrs.Write(slot, AttrPeriod, "-5")))
	assert.True(t, IsNotFound(env.attrs.Write(slot, "polarity", "1")))
	_, err = env.attrs.Read(slot, "polarity")
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(env.attrs.Write(slot+1, AttrPeriod, "5")))
	assert.True(t, IsNotFound(env.attrs.WritePin(5, AttrPeriod, "5")))
	_, err = env.attrs.ReadPin(5, AttrPeriod)
	assert.True(t, IsNotFound(err))
}

func TestErrno(t *testing.T) {
	assert.Equal(t, 0, Errno(nil))
	assert.Equal(t, -int(unix.EINVAL), Errno(InvalidInputError))
	assert.Equal(t, -int(unix.EBUSY), Errno(BusyError))
	assert.Equal(t, -int(unix.ENODEV), Errno(PinUnavailableError))
	assert.Equal(t, -int(unix.ENOENT), Errno(NotFoundError))
	assert.Equal(t, -int(unix.EIO), Errno(errors.New("other")))
	assert.Equal(t, -int(unix.EBUSY), Errno(maskAny(BusyError)))
}
