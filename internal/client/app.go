package client

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/adapter"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/workers"
	"github.com/MKhiriev/go-custody-ledger/models"
)

var (
	ErrNoCommand      = errors.New("no command given")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("wrong arguments")
	ErrNotVerified    = errors.New("artifact does not verify")
)

const usage = `usage: client [flags] <command> [args]

commands:
  capture-note [-scope id] [-occurred-at time] <text>
  capture-file [-scope id] [-occurred-at time] [-url source] [-target object-id] <path>
  capture-snapshot [-scope id] [-occurred-at time] <path.json | ->
  status
  sync
  daemon
  export <bundle-id> <out-path>
  verify <artifact-path>
  version`

type App struct {
	services *service.ClientServices
	server   adapter.ServerAdapter

	in  io.Reader
	out io.Writer

	logger *logger.Logger
}

func NewApp(services *service.ClientServices, server adapter.ServerAdapter, logger *logger.Logger) (*App, error) {
	if services == nil {
		return nil, errors.New("client services are required")
	}
	return &App{
		services: services,
		server:   server,
		in:       os.Stdin,
		out:      os.Stdout,
		logger:   logger,
	}, nil
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrNoCommand
	}
	ctx = a.logger.WithContext(ctx)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "capture-note":
		return a.captureNote(ctx, rest)
	case "capture-file":
		return a.captureFile(ctx, rest)
	case "capture-snapshot":
		return a.captureSnapshot(ctx, rest)
	case "status":
		return a.status(ctx)
	case "sync":
		return a.sync(ctx)
	case "daemon":
		return a.daemon(ctx)
	case "export":
		return a.export(ctx, rest)
	case "verify":
		return a.verify(ctx, rest)
	case "version":
		return a.version(ctx)
	case "help":
		fmt.Fprintln(a.out, usage)
		return nil
	}

	fmt.Fprintln(a.out, usage)
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

// captureFlags parses the options shared by the capture commands and returns
// the positional arguments left.
func captureFlags(name string, args []string, withFile bool) (service.CaptureOptions, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var scope, occurredAt, sourceURL, target string
	fs.StringVar(&scope, "scope", "", "claim or case id")
	fs.StringVar(&occurredAt, "occurred-at", "", "claimed event time, RFC 3339")
	if withFile {
		fs.StringVar(&sourceURL, "url", "", "source URL of a fetched document")
		fs.StringVar(&target, "target", "", "pending server object to complete")
	}
	if err := fs.Parse(args); err != nil {
		return service.CaptureOptions{}, nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	var opts service.CaptureOptions
	if scope != "" {
		opts.ScopeID = &scope
	}
	if sourceURL != "" {
		opts.SourceURL = &sourceURL
	}
	if target != "" {
		opts.TargetObjectID = &target
	}
	if occurredAt != "" {
		at, err := time.Parse(time.RFC3339, occurredAt)
		if err != nil {
			return service.CaptureOptions{}, nil, fmt.Errorf("%w: occurred-at: %w", ErrUsage, err)
		}
		opts.OccurredAt = &at
	}
	return opts, fs.Args(), nil
}

func (a *App) captureNote(ctx context.Context, args []string) error {
	opts, rest, err := captureFlags("capture-note", args, false)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: capture-note takes one text argument", ErrUsage)
	}

	item, err := a.services.CaptureService.CaptureNote(ctx, rest[0], opts)
	if err != nil {
		return err
	}
	return a.print(captureView(item))
}

func (a *App) captureFile(ctx context.Context, args []string) error {
	opts, rest, err := captureFlags("capture-file", args, true)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: capture-file takes one path", ErrUsage)
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", rest[0], err)
	}
	item, err := a.services.CaptureService.CaptureFile(ctx, data, opts)
	if err != nil {
		return err
	}
	return a.print(captureView(item))
}

func (a *App) captureSnapshot(ctx context.Context, args []string) error {
	opts, rest, err := captureFlags("capture-snapshot", args, false)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: capture-snapshot takes one path or -", ErrUsage)
	}

	var payload []byte
	if rest[0] == "-" {
		payload, err = io.ReadAll(a.in)
	} else {
		payload, err = os.ReadFile(rest[0])
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	item, err := a.services.CaptureService.CaptureSnapshot(ctx, payload, opts)
	if err != nil {
		return err
	}
	return a.print(captureView(item))
}

func (a *App) status(ctx context.Context) error {
	items, err := a.services.CaptureService.List(ctx)
	if err != nil {
		return err
	}

	views := make([]outboxView, 0, len(items))
	for _, it := range items {
		views = append(views, captureView(it))
	}
	return a.print(views)
}

func (a *App) sync(ctx context.Context) error {
	report, err := a.services.SyncService.Sync(ctx)
	if err != nil {
		return err
	}
	return a.print(report)
}

func (a *App) daemon(ctx context.Context) error {
	a.logger.Info().Msg("outbox sync worker started")
	err := workers.NewWorkers(a.services.SyncJob).Run(ctx)
	a.logger.Info().Msg("outbox sync worker stopped")
	return err
}

func (a *App) export(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: export takes a bundle id and an output path", ErrUsage)
	}
	if a.server == nil {
		return errors.New("no ledger server configured")
	}

	data, err := a.server.ExportBundle(ctx, args[0])
	if err != nil {
		return fmt.Errorf("export bundle %s: %w", args[0], err)
	}
	if err = os.WriteFile(args[1], data, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	report, err := a.services.VerifyService.VerifyArtifact(ctx, data)
	if err != nil {
		return err
	}
	return a.print(report)
}

func (a *App) verify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: verify takes one artifact path", ErrUsage)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	report, err := a.services.VerifyService.VerifyArtifact(ctx, data)
	if err != nil {
		return err
	}
	if err = a.print(report); err != nil {
		return err
	}
	if !report.Valid {
		return fmt.Errorf("%w: %s", ErrNotVerified, report.Reason)
	}
	return nil
}

func (a *App) version(ctx context.Context) error {
	if a.server == nil {
		return errors.New("no ledger server configured")
	}
	v, err := a.server.Version(ctx)
	if err != nil {
		return err
	}
	return a.print(v)
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outboxView is the printed form of a queued item.
type outboxView struct {
	ItemRequestKey  string              `json:"item_request_key"`
	SourceKind      models.SourceKind   `json:"source_kind"`
	ContentHash     string              `json:"content_hash"`
	CapturedAt      time.Time           `json:"captured_at"`
	BatchRequestKey *string             `json:"batch_request_key,omitempty"`
	Outcome         *models.ItemOutcome `json:"outcome,omitempty"`
	ObjectID        *string             `json:"object_id,omitempty"`
	ErrorCode       *string             `json:"error_code,omitempty"`
}

func captureView(it models.OutboxItem) outboxView {
	return outboxView{
		ItemRequestKey:  it.Item.ItemRequestKey,
		SourceKind:      it.Item.SourceKind,
		ContentHash:     it.ContentHash,
		CapturedAt:      it.CapturedAt,
		BatchRequestKey: it.BatchRequestKey,
		Outcome:         it.Outcome,
		ObjectID:        it.ObjectID,
		ErrorCode:       it.ErrorCode,
	}
}
