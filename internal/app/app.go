// Package app 负责应用级编排：加载配置→装配依赖→启动对账循环与附属服务。
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ordo/internal/config"
	"ordo/internal/engine"
	"ordo/internal/journal"
	"ordo/internal/logger"
	"ordo/internal/position"
	"ordo/internal/scheduler"
	"ordo/internal/stream"
	adminhttp "ordo/internal/transport/http"
)

type App struct {
	cfg     *config.Config
	engine  *engine.Engine
	book    *position.Book
	journal *journal.Journal
	updater *stream.Updater
	admin   *adminhttp.Server
}

// New 根据配置构建应用对象（不启动）。
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Engine exposes the reconciliation engine (for testing/replay harnesses).
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Run 启动全部服务，直到 ctx 取消或某个服务出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	interval, ok := scheduler.ParseIntervalDuration(a.cfg.Engine.SweepInterval)
	if !ok {
		return fmt.Errorf("invalid sweep interval: %s", a.cfg.Engine.SweepInterval)
	}

	// Account-context bring-up is serialized so concurrent processes
	// sharing credentials do not race on session establishment.
	engine.SessionInitMu.Lock()
	restored, err := a.engine.Recover(ctx)
	engine.SessionInitMu.Unlock()
	if err != nil {
		return fmt.Errorf("journal recovery failed: %w", err)
	}
	if restored > 0 {
		logger.Infof("app: recovered %d in-flight order(s)", restored)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.admin.Start(ctx); err != nil {
			return fmt.Errorf("admin http server error: %w", err)
		}
		return nil
	})

	if a.updater != nil {
		group.Go(func() error {
			err := a.updater.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, interval, a.cfg.Engine.SweepOffset())
		sched.RunImmediately = a.cfg.Engine.RunImmediately
		sched.Start(func() {
			if err := a.engine.Process(ctx); err != nil {
				logger.Warnf("app: reconciliation sweep finished with errors: %v", err)
			}
		})
		return ctx.Err()
	})

	return group.Wait()
}

// WatchConfig re-applies runtime-tunable settings when the config file
// changes. Only the log level is hot-reloadable; everything else needs
// a restart.
func (a *App) WatchConfig(ctx context.Context, path string) error {
	return config.Watch(ctx, path, func(fresh *config.Config) {
		if fresh.App.LogLevel != a.cfg.App.LogLevel {
			logger.SetLevel(fresh.App.LogLevel)
			logger.Infof("app: log level changed to %s", fresh.App.LogLevel)
			a.cfg.App.LogLevel = fresh.App.LogLevel
		}
	})
}
