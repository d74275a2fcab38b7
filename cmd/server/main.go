package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/blob"
	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/handler"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/server"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/MKhiriev/go-custody-ledger/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	build := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)

	log := logger.NewLogger("custody-ledger-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if err = cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("invalid configs")
	}

	ctx := context.Background()

	storages, err := store.NewStorages(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer storages.Close()

	collab, err := newCollaborators(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating collaborators")
	}

	services, err := service.NewServices(storages, collab, cfg, build, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	// token <tenant> <subject> [device] mints a caller token and exits
	if args := cfg.Args(); len(args) > 0 {
		if err = runCommand(ctx, services, args); err != nil {
			log.Fatal().Err(err).Msg("command failed")
		}
		return
	}

	fmt.Println(build)

	handlers, err := handler.NewHandlers(services, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func newCollaborators(cfg *config.StructuredConfig, log *logger.Logger) (service.Collaborators, error) {
	var collab service.Collaborators

	if cfg.Storage.Blobs.Dir != "" {
		files, err := blob.NewFileStore(cfg.Storage.Blobs.Dir, log)
		if err != nil {
			return collab, err
		}
		collab.Blobs = files
	} else {
		log.Warn().Msg("no blob directory configured, blobs are kept in memory")
		collab.Blobs = blob.NewMemoryStore()
	}

	if cfg.Adapter.HoldURL != "" {
		holds, err := adapter.NewHTTPHoldChecker(cfg.Adapter.HoldURL, cfg.Adapter.RequestTimeout, log)
		if err != nil {
			return collab, err
		}
		collab.Holds = holds
	} else {
		collab.Holds = adapter.NewStaticHoldChecker(cfg.Adapter.StaticHolds...)
	}

	collab.Fetcher = adapter.NewHTTPFetcher(cfg.Adapter.RequestTimeout, cfg.Adapter.FetchMaxBytes, log)
	return collab, nil
}

func runCommand(ctx context.Context, services *service.Services, args []string) error {
	switch args[0] {
	case "token":
		if len(args) < 3 || len(args) > 4 {
			return fmt.Errorf("usage: token <tenant> <subject> [device]")
		}
		caller := models.Caller{TenantID: args[1], Subject: args[2]}
		if len(args) == 4 {
			caller.DeviceID = args[3]
		}
		token, err := services.AuthService.CreateToken(ctx, caller)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, token.SignedString)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}
