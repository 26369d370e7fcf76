package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"teamops/internal/assign"
	"teamops/internal/config"
	"teamops/internal/lifecycle"
	"teamops/internal/notify"
	"teamops/internal/router"
	"teamops/internal/store/sqlite"
)

// env wires config, store, and services for one command invocation.
type env struct {
	cfg        config.Config
	store      *sqlite.Store
	manager    *lifecycle.Manager
	router     *router.Router
	engine     *assign.Engine
	dispatcher *notify.Dispatcher
}

func openEnv(cmd *cobra.Command) (*env, error) {
	opts := optionsFrom(cmd.Context())
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		store.Close()
		return nil, err
	}

	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	var sender notify.Sender
	if len(cfg.NotifyCommand) > 0 {
		sender = notify.CommandSender{Argv: cfg.NotifyCommand}
	} else {
		sender = notify.WriterSender{W: cmd.ErrOrStderr()}
	}
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyBuffer, logger)
	emitter := notify.NewEmitter(store, dispatcher, logger)

	manager := lifecycle.New(store, emitter, nil, logger)
	rtr := router.New(store, emitter, cfg.HelperKeywords, cfg.FallbackHelpers, nil, logger)
	engine := assign.New(store, manager, emitter, cfg.AssignmentKeywords, logger)

	return &env{
		cfg:        cfg,
		store:      store,
		manager:    manager,
		router:     rtr,
		engine:     engine,
		dispatcher: dispatcher,
	}, nil
}

// Close drains queued notifications and releases the store.
func (e *env) Close(ctx context.Context) {
	e.dispatcher.Drain(ctx)
	_ = e.store.Close()
}
