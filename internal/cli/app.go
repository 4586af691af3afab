package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mkandawire/docket/internal/audit"
	"github.com/mkandawire/docket/internal/config"
	"github.com/mkandawire/docket/internal/docstore"
	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/lifecycle"
	"github.com/mkandawire/docket/internal/notify"
	"github.com/mkandawire/docket/internal/schema"
	"github.com/mkandawire/docket/internal/seq"
	"github.com/mkandawire/docket/internal/store"
)

// app wires the full service stack for one command invocation.
type app struct {
	cfg     config.Config
	db      *store.DB
	docs    *docstore.Store
	svc     *lifecycle.Service
	auditr  *audit.Reader
	gen     *seq.Generator
	emitter *notify.StoreEmitter
	log     *slog.Logger
}

// openApp loads configuration, opens the database, and builds the
// lifecycle service. Callers must Close.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}

	log := cfg.NewLogger(opts.Verbose)
	slog.SetDefault(log)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	docs := docstore.New(db, docstore.WithLogger(log))
	if err := lifecycle.Bootstrap(ctx, docs); err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "bootstrap database", err)
	}

	gen := seq.New(docs,
		seq.WithMaxRetries(cfg.SequenceRetries),
		seq.WithPadWidth(cfg.SequencePadWidth),
		seq.WithLogger(log),
	)
	auditw, err := audit.NewWriter(ctx, docs, audit.WithWriterLogger(log))
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "open audit log", err)
	}
	schemas, err := schema.NewRegistry()
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "compile schemas", err)
	}

	emitter := notify.NewStoreEmitter(docs, notify.WithLogger(log))
	metrics := notify.NewMetrics(prometheus.NewRegistry())

	svcOpts := []lifecycle.Option{
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(metrics),
	}
	if cfg.Notifications {
		svcOpts = append(svcOpts, lifecycle.WithEmitter(emitter))
	}

	return &app{
		cfg:     cfg,
		db:      db,
		docs:    docs,
		svc:     lifecycle.New(docs, gen, auditw, schemas, svcOpts...),
		auditr:  audit.NewReader(docs),
		gen:     gen,
		emitter: emitter,
		log:     log,
	}, nil
}

func (a *app) Close() error { return a.db.Close() }

// formatter builds the output formatter for a command.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}

// parseActor parses the --actor flag ("user-id:role").
func parseActor(s string) (domain.Actor, error) {
	id, roleStr, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return domain.Actor{}, WrapExitError(ExitCommandError, "invalid --actor",
			fmt.Errorf("want <user-id>:<role>, got %q", s))
	}
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return domain.Actor{}, WrapExitError(ExitCommandError, "invalid --actor", err)
	}
	return domain.Actor{ID: id, Role: role}, nil
}
