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
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

const (
	maxBodySize = 64
)

// errorResponse is the body of a failed request.
type errorResponse struct {
	Errno   int    `json:"errno"`
	Message string `json:"message"`
}

// exportResponse is the body of a successful export.
type exportResponse struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
}

type handlers struct {
	log     zerolog.Logger
	service Service
}

// newRouter creates the HTTP routes of the configuration surface.
func newRouter(log zerolog.Logger, service Service) *echo.Echo {
	h := &handlers{
		log:     log,
		service: service,
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.POST("/export", h.export)
	e.POST("/unexport", h.unexport)
	e.GET("/pwm", h.list)
	e.GET("/pwm/:name", h.get)
	e.GET("/pwm/:name/:attr", h.readAttribute)
	e.PUT("/pwm/:name/:attr", h.writeAttribute)
	return e
}

// POST /export
func (h *handlers) export(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.sendError(c, err)
	}
	slot, err := h.service.Attributes().Export(c.Request().Context(), body)
	if err != nil {
		return h.sendError(c, err)
	}
	info, err := h.channelInSlot(slot)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusCreated, exportResponse{Slot: slot, Name: info.Name})
}

// POST /unexport
func (h *handlers) unexport(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.sendError(c, err)
	}
	if err := h.service.Attributes().Unexport(c.Request().Context(), body); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /pwm
func (h *handlers) list(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Channels())
}

// GET /pwm/:name
func (h *handlers) get(c echo.Context) error {
	pin, err := h.service.Lookup(c.Param("name"))
	if err != nil {
		return h.sendError(c, err)
	}
	for _, info := range h.service.Channels() {
		if info.Pin == pin {
			return c.JSON(http.StatusOK, info)
		}
	}
	return h.sendError(c, softpwm.NotFoundError)
}

// GET /pwm/:name/:attr
func (h *handlers) readAttribute(c echo.Context) error {
	pin, err := h.service.Lookup(c.Param("name"))
	if err != nil {
		return h.sendError(c, err)
	}
	value, err := h.service.Attributes().ReadPin(pin, c.Param("attr"))
	if err != nil {
		return h.sendError(c, err)
	}
	return c.String(http.StatusOK, value)
}

// PUT /pwm/:name/:attr
func (h *handlers) writeAttribute(c echo.Context) error {
	pin, err := h.service.Lookup(c.Param("name"))
	if err != nil {
		return h.sendError(c, err)
	}
	body, err := readBody(c)
	if err != nil {
		return h.sendError(c, err)
	}
	if err := h.service.Attributes().WritePin(pin, c.Param("attr"), body); err != nil {
		return h.sendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) channelInSlot(slot int) (softpwm.ChannelInfo, error) {
	for _, info := range h.service.Channels() {
		if info.Slot == slot {
			return info, nil
		}
	}
	return softpwm.ChannelInfo{}, softpwm.NotFoundError
}

// sendError responds with the errno of the given error.
func (h *handlers) sendError(c echo.Context, err error) error {
	errno := softpwm.Errno(err)
	status := statusOf(err)
	h.log.Debug().Err(err).
		Int("errno", errno).
		Str("path", c.Request().URL.Path).
		Msg("Request failed")
	return c.JSON(status, errorResponse{Errno: errno, Message: err.Error()})
}

// statusOf returns the HTTP status for the given error.
func statusOf(err error) int {
	switch {
	case softpwm.IsInvalidInput(err):
		return http.StatusBadRequest
	case softpwm.IsBusy(err):
		return http.StatusConflict
	case softpwm.IsPinUnavailable(err):
		return http.StatusServiceUnavailable
	case softpwm.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func readBody(c echo.Context) (string, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxBodySize {
		return "", softpwm.InvalidInputError
	}
	return string(data), nil
}
