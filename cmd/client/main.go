package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/client"
	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	log := logger.NewClientLogger("custody-ledger-agent", os.Getenv("AGENT_LOG_FILE"))
	log.Debug().Str("version", buildVersion).Str("date", buildDate).Str("commit", buildCommit).Msg("device agent")

	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create server adapter")
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}
	defer storages.Close()

	services := service.NewClientServices(storages, serverAdapter, cfg, log)

	app, err := client.NewApp(services, serverAdapter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(ctx, cfg.Args); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		storages.Close()
		os.Exit(1)
	}
}
