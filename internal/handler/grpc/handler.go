// Package grpc exposes the ledger over gRPC. Only the standard health
// service is served; evidence operations are HTTP only.
package grpc

import (
	"context"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// LedgerServiceName is the health service name reported next to the
// overall ("") status.
const LedgerServiceName = "custody.Ledger"

type Handler struct {
	services *service.Services
	health   *health.Server

	logger *logger.Logger
}

func NewHandler(services *service.Services, logger *logger.Logger) *Handler {
	logger.Debug().Msg("gRPC handler created")
	return &Handler{
		services: services,
		health:   health.NewServer(),
		logger:   logger,
	}
}

// Register attaches the health service to s and marks the ledger serving.
func (h *Handler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)

	version := h.services.AppInfoService.GetAppVersion(context.Background())
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(LedgerServiceName, healthpb.HealthCheckResponse_SERVING)
	h.logger.Info().Str("version", version.Version).Time("at", time.Now()).Msg("gRPC health service registered")
}

// Shutdown reports NOT_SERVING to every watcher before the server stops.
func (h *Handler) Shutdown() {
	h.health.Shutdown()
}
