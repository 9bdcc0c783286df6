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

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/binkynet/SoftPWM/pkg/bridge"
	"github.com/binkynet/SoftPWM/pkg/service"
	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	svc, err := service.NewService(service.Config{
		Capacity: 2,
	}, service.Dependencies{
		Log:    zerolog.Nop(),
		Bridge: bridge.NewVirtualBridge(21),
	})
	require.NoError(t, err)
	return &testServer{
		t:       t,
		handler: newRouter(zerolog.Nop(), svc),
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) errno(rec *httptest.ResponseRecorder) int {
	var resp errorResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Errno
}

func TestExportUnexport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/export", "18\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp exportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, exportResponse{Slot: 0, Name: "pwm18"}, resp)

	rec = s.do(http.MethodGet, "/pwm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []softpwm.ChannelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 18, list[0].Pin)

	rec = s.do(http.MethodPost, "/unexport", "18")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/pwm/pwm18", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, -int(unix.ENOENT), s.errno(rec))
}

func TestExportErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		Body   string
		Status int
		Errno  int
	}{
		{"abc", http.StatusBadRequest, -int(unix.EINVAL)},
		{"-1", http.StatusBadRequest, -int(unix.EINVAL)},
		{strings.Repeat("1", 100), http.StatusBadRequest, -int(unix.EINVAL)},
		{"21", http.StatusServiceUnavailable, -int(unix.ENODEV)},
	}
	for _, test := range tests {
		rec := s.do(http.MethodPost, "/export", test.Body)
		assert.Equal(t, test.Status, rec.Code, test.Body)
		assert.Equal(t, test.Errno, s.errno(rec), test.Body)
	}

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/export", "4").Code)
	rec := s.do(http.MethodPost, "/export", "4")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, -int(unix.EBUSY), s.errno(rec))

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/export", "5").Code)
	rec = s.do(http.MethodPost, "/export", "6")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, -int(unix.EBUSY), s.errno(rec))

	rec = s.do(http.MethodPost, "/unexport", "7")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, -int(unix.ENOENT), s.errno(rec))
}

func TestAttributes(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/export", "18").Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPut, "/pwm/pwm18/period", "500000").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPut, "/pwm/pwm18/duty_cycle", "0x1e848").Code)

	rec := s.do(http.MethodGet, "/pwm/pwm18/duty_cycle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "125000\n", rec.Body.String())

	rec = s.do(http.MethodPut, "/pwm/pwm18/period", "12ab")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, -int(unix.EINVAL), s.errno(rec))

	rec = s.do(http.MethodGet, "/pwm/pwm18/polarity", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/pwm/pwm18", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info softpwm.ChannelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, uint64(500000), info.PeriodNs)
	assert.Equal(t, uint64(125000), info.DutyCycleNs)
	assert.False(t, info.Enabled)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(softpwm.InvalidInputError))
	assert.Equal(t, http.StatusConflict, statusOf(softpwm.BusyError))
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(softpwm.PinUnavailableError))
	assert.Equal(t, http.StatusNotFound, statusOf(softpwm.NotFoundError))
	assert.Equal(t, http.StatusInternalServerError, statusOf(assert.AnError))
}
