package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	hcfg "helmsman/internal/config"
	"helmsman/internal/engine"
	"helmsman/internal/logger"
	"helmsman/internal/state"
	adminhttp "helmsman/internal/transport/http/admin"
)

// App 负责应用级编排：加载配置→初始化依赖→启动引擎与运维 HTTP 服务。
type App struct {
	cfg       *hcfg.Config
	engine    *engine.Engine
	adminHTTP *adminhttp.Server
	store     state.Store
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *hcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动引擎与运维服务，阻塞直到 ctx 结束或任一组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.engine == nil {
		return fmt.Errorf("engine not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.adminHTTP != nil {
		group.Go(func() error {
			if err := a.adminHTTP.Start(ctx); err != nil {
				return fmt.Errorf("admin http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		defer a.closeStore()
		return a.engine.Run(ctx)
	})

	return group.Wait()
}

// Engine exposes the engine instance (for testing/replay harnesses).
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("app: closing store failed: %v", err)
	}
}
