package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/handler"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"golang.org/x/sync/errgroup"
)

// transport is one listener owned by the server.
type transport interface {
	serve() error
	Shutdown()
}

type server struct {
	transports []transport
	logger     *logger.Logger
}

// NewServer builds the transports enabled in cfg: the HTTP API when
// HTTPAddress is set and the gRPC health endpoint when GRPCAddress is set.
func NewServer(handlers *handler.Handlers, cfg config.Server, logger *logger.Logger) (Server, error) {
	s := &server{logger: logger}

	if cfg.HTTPAddress != "" {
		s.transports = append(s.transports, newHTTPServer(handlers.HTTP.Init(), cfg, logger))
	}
	if cfg.GRPCAddress != "" {
		grpcSrv, err := newGRPCServer(handlers.GRPC, cfg, logger)
		if err != nil {
			return nil, err
		}
		s.transports = append(s.transports, grpcSrv)
	}

	if len(s.transports) == 0 {
		return nil, errNoServersAreCreated
	}
	return s, nil
}

func (s *server) RunServer() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := s.run(ctx); err != nil {
		s.logger.Err(err).Msg("server stopped with error")
		return
	}
	s.logger.Info().Msg("server shut down gracefully")
}

func (s *server) Shutdown() {
	for _, t := range s.transports {
		t.Shutdown()
	}
}

// run serves every transport until ctx is done or one of them fails; either
// way all transports are shut down before run returns.
func (s *server) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.transports {
		g.Go(t.serve)
	}
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown()
		return nil
	})
	return g.Wait()
}
