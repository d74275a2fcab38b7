package http

import (
	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
)

const defaultMaxBodyBytes = 64 << 20

type Handler struct {
	services *service.Services

	// maxBodyBytes bounds every request body.
	maxBodyBytes int64

	logger *logger.Logger
}

func NewHandler(services *service.Services, cfg config.Server, logger *logger.Logger) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	logger.Info().Int64("max_body_bytes", maxBody).Msg("http handler created")
	return &Handler{
		services:     services,
		maxBodyBytes: maxBody,
		logger:       logger,
	}
}
