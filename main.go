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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/SoftPWM/pkg/bridge"
	"github.com/binkynet/SoftPWM/pkg/environment"
	"github.com/binkynet/SoftPWM/pkg/logging"
	"github.com/binkynet/SoftPWM/pkg/server"
	"github.com/binkynet/SoftPWM/pkg/service"
	"github.com/binkynet/SoftPWM/pkg/softpwm"
	"github.com/binkynet/SoftPWM/pkg/ui"
)

const (
	projectName     = "SoftPWM"
	defaultHTTPPort = 7130
	defaultGRPCPort = 7131
	defaultSSHPort  = 7132
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var bridgeConf bridge.Config
	var serverConf server.Config
	var serviceConf service.Config

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeConf.Type, "bridge", "b", "", "Type of bridge to use (cdev|sysfs|periph|virtual), detected when empty")
	pflag.StringVar(&bridgeConf.Chip, "gpiochip", bridge.DefaultChip, "GPIO chip used by the cdev bridge")
	pflag.IntSliceVar(&bridgeConf.Reserved, "reserved-pins", nil, "Pins that cannot be claimed (virtual bridge only)")
	pflag.IntVar(&serviceConf.Capacity, "channels", softpwm.DefaultCapacity, "Maximum number of exported channels")
	pflag.StringVar(&serviceConf.PresetsPath, "presets", "", "Path of a YAML file with channels to export on startup")
	pflag.StringVar(&serviceConf.MQTT.BrokerAddress, "mqtt-broker", "", "Address (host:port) of the MQTT broker to publish channels on")
	pflag.StringVar(&serviceConf.MQTT.TopicPrefix, "mqtt-prefix", "softpwm", "Prefix of all MQTT topics")
	pflag.StringVar(&serviceConf.MQTT.ClientID, "mqtt-client-id", "", "Client ID used to connect to the MQTT broker")
	pflag.StringVar(&serverConf.Host, "host", "0.0.0.0", "Host address the servers will listen on")
	pflag.IntVar(&serverConf.HTTPPort, "http-port", defaultHTTPPort, "Port the HTTP server will listen on")
	pflag.IntVar(&serverConf.GRPCPort, "grpc-port", defaultGRPCPort, "Port the GRPC server will listen on (0 disables)")
	pflag.IntVar(&serverConf.SSHPort, "ssh-port", defaultSSHPort, "Port the SSH console will listen on (0 disables)")
	pflag.StringVar(&serverConf.SSHHostKeyPath, "ssh-host-key", "", "Path of the SSH host key")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	mqttWriter := logging.NewMQTTWriter(ctx)
	logger := zerolog.New(logging.NewMultiWriter(
		zerolog.ConsoleWriter{Out: os.Stderr},
		mqttWriter,
	)).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logger = logger.Level(level)

	if bridgeConf.Type == "" {
		bridgeConf.Type = environment.AutoDetectBridgeType(logger, bridgeConf.Chip)
	}
	br, err := bridge.New(logger, bridgeConf)
	if err != nil {
		Exitf("Failed to initialize %s bridge: %v\n", bridgeConf.Type, err)
	}

	svc, err := service.NewService(serviceConf, service.Dependencies{
		Log:           logger,
		Bridge:        br,
		MQTTLogWriter: mqttWriter,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	srv, err := server.New(serverConf, logger, ui.New(svc), svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return errors.WithStack(svc.Run(ctx)) })
	g.Go(func() error { return errors.WithStack(srv.Run(ctx)) })
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %v\n", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
