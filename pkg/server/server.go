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
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

const (
	// Name of the service reported by the gRPC health service
	healthServiceName = "softpwm"
)

// Config for the servers.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
	// Port to listen on for SSH requests (0 disables SSH)
	SSHPort int
	// Port to listen on for GRPC requests (0 disables GRPC)
	GRPCPort int
	// Path of the SSH host key
	SSHHostKeyPath string
}

// Server runs the HTTP, GRPC & SSH servers for the service.
type Server struct {
	Config
	log     zerolog.Logger
	ui      UI
	service Service
}

type UI interface {
	// You can wire any Bubble Tea model up to the middleware with a function that
	// handles the incoming ssh.Session.
	Handler(s ssh.Session) (tea.Model, []tea.ProgramOption)
}

// Service provides the channels served by the configuration surface.
type Service interface {
	// Attributes returns the text based configuration surface
	Attributes() *softpwm.Attributes
	// Channels returns a snapshot of all exported channels
	Channels() []softpwm.ChannelInfo
	// Lookup resolves a published channel name into its pin
	Lookup(name string) (int, error)
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, ui UI, service Service) (*Server, error) {
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/id_ed25519"
	}
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		ui:      ui,
		service: service,
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	// Prepare HTTP listener
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}

	// Prepare HTTP server
	httpRouter := newRouter(log, s.service)
	httpRouter.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpRouter.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	httpSrv := http.Server{
		Handler: httpRouter,
	}

	// Serve apis
	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()

	var grpcSrv *grpc.Server
	var healthSrv *health.Server
	if s.GRPCPort != 0 {
		// Prepare GRPC listener
		grpcAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.GRPCPort))
		grpcLis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on address %s", grpcAddr)
		}

		// Prepare GRPC server
		grpcSrv = grpc.NewServer(
			grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
				grpc_prometheus.StreamServerInterceptor,
				grpc_recovery.StreamServerInterceptor(),
			)),
			grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
				grpc_prometheus.UnaryServerInterceptor,
				grpc_recovery.UnaryServerInterceptor(),
			)),
		)
		healthSrv = health.NewServer()
		healthSrv.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcSrv, healthSrv)
		grpc_prometheus.Register(grpcSrv)
		// Register reflection service on gRPC server.
		reflection.Register(grpcSrv)

		log.Debug().Str("address", grpcAddr).Msg("Serving GRPC")
		go func() {
			if err := grpcSrv.Serve(grpcLis); err != nil {
				log.Fatal().Err(err).Msg("failed to serve GRPC server")
			}
			log.Debug().Str("address", grpcAddr).Msg("Done Serving GRPC")
		}()
	}

	var sshServer *ssh.Server
	if s.SSHPort != 0 && s.ui != nil {
		// Prepare SSH server
		sshAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.SSHPort))
		sshServer, err = wish.NewServer(
			// The address the server will listen to.
			wish.WithAddress(sshAddr),

			// The SSH server need its own keys, this will create a keypair in the
			// given path if it doesn't exist yet.
			// By default, it will create an ED25519 key.
			wish.WithHostKeyPath(s.SSHHostKeyPath),

			// Middlewares do something on a ssh.Session, and then call the next
			// middleware in the stack.
			wish.WithMiddleware(
				bubbletea.Middleware(s.ui.Handler),
				// The last item in the chain is the first to be called.
				activeterm.Middleware(),
				logging.Middleware(),
			),
		)
		if err != nil {
			return errors.Wrap(err, "could not start SSH server")
		}
		// Serve UI
		log.Debug().Str("address", sshAddr).Msg("Serving SSH")
		go func() {
			if err := sshServer.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				log.Fatal().Err(err).Msg("failed to serve SSH server")
			}
			log.Debug().Str("address", sshAddr).Msg("Done Serving SSH")
		}()
	}

	// Wait until context closed
	<-ctx.Done()

	log.Info().Msg("Closing servers")
	httpSrv.Shutdown(context.Background())
	if grpcSrv != nil {
		healthSrv.Shutdown()
		grpcSrv.GracefulStop()
	}
	if sshServer != nil {
		sshServer.Shutdown(context.Background())
	}

	return nil
}
