package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/eventbridge"
	"github.com/kingrea/workbench/internal/seed"
	"github.com/kingrea/workbench/internal/tui"
)

// runTUI starts the terminal UI plus the optional event bridge and seed
// watcher. Everything stops when the program exits.
func (c *cli) runTUI(parent context.Context) error {
	dir, err := c.projectDir()
	if err != nil {
		return err
	}
	if err := config.InitWorkbenchDir(dir); err != nil {
		return fmt.Errorf("init %s: %w", config.WorkbenchDir, err)
	}
	cfg, err := c.loadConfig(dir)
	if err != nil {
		return err
	}
	logger := c.logger(dir)
	defer func() { _ = logger.Sync() }()

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}
	app, err := tui.NewApp(cfg, store, tui.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(parent))
	g, gctx := errgroup.WithContext(ctx)

	if err := startBridge(gctx, g, cfg, app, program, logger); err != nil {
		return err
	}
	startSeedWatcher(gctx, g, cfg, store, program, logger)

	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && parent.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// startBridge serves the loopback HTTP bridge when enabled and forwards its
// navigate commands into the update loop.
func startBridge(ctx context.Context, g *errgroup.Group, cfg *config.Config, app *tui.App, program *tea.Program, logger *zap.Logger) error {
	settings := eventbridge.SettingsFromConfig(cfg)
	if !settings.Enabled {
		return nil
	}
	router := eventbridge.NewRouter(eventbridge.RouterWithLogger(logger))
	server := eventbridge.NewServer(settings, app.Shell(),
		eventbridge.WithProcessor(router),
		eventbridge.WithLogger(logger),
	)
	if err := server.Start(ctx); err != nil {
		return err
	}
	sub := router.Subscribe(eventbridge.TopicNavigate)

	g.Go(func() error {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case cmd, ok := <-sub.Commands:
				if !ok {
					return nil
				}
				logger.Debug("bridge navigate", zap.String("tab", string(cmd.Tab)), zap.String("request_id", cmd.ID))
				program.Send(tui.NavigateMsg{Tab: cmd.Tab, Payload: cmd.Payload})
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return nil
}

// startSeedWatcher reloads the seed override on save. A watcher that cannot
// start is logged and skipped.
func startSeedWatcher(ctx context.Context, g *errgroup.Group, cfg *config.Config, store *seed.Store, program *tea.Program, logger *zap.Logger) {
	path := cfg.SeedPath()
	if path == "" {
		return
	}
	watcher, err := seed.NewWatcher(path, store,
		seed.WithLogger(logger),
		seed.OnReload(func(s seed.Seed, err error) {
			if err != nil {
				logger.Warn("seed reload rejected", zap.Error(err))
				return
			}
			program.Send(tui.SeedReloadedMsg{Seed: s})
		}),
	)
	if err != nil {
		logger.Warn("seed watcher unavailable", zap.Error(err))
		return
	}
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		logger.Warn("seed watcher unavailable", zap.Error(err))
		return
	}
	g.Go(func() error {
		<-ctx.Done()
		watcher.Stop()
		return nil
	})
}
