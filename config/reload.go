// 配置热重载。
//
// Reloader 组合 Loader 与 FileWatcher：配置文件变更后重新加载并
// 校验，校验失败保留旧配置。订阅方通过 OnReload 拿到新旧两份配置
// 自行决定如何应用（典型做法是重建 ProviderRegistry）。
package config

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Reloader 监听单个配置文件并维护当前生效的配置
type Reloader struct {
	loader  *Loader
	watcher *FileWatcher
	logger  *zap.Logger

	mu        sync.RWMutex
	current   *Config
	callbacks []func(old, updated *Config)
}

// NewReloader 创建热重载器并完成首次加载。首次加载失败直接返回错误，
// 之后的加载失败只记日志、不替换配置。
func NewReloader(path string, logger *zap.Logger, watcherOpts ...WatcherOption) (*Reloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loader := NewLoader().WithConfigPath(path).WithValidator(func(c *Config) error {
		return c.Validate()
	})

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("initial config load failed: %w", err)
	}

	watcherOpts = append(watcherOpts, WithWatcherLogger(logger))
	watcher, err := NewFileWatcher([]string{path}, watcherOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	r := &Reloader{
		loader:  loader,
		watcher: watcher,
		logger:  logger,
		current: cfg,
	}
	watcher.OnChange(r.handleEvent)

	return r, nil
}

// Current 返回当前生效的配置
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnReload 注册重载回调，回调收到旧配置与新配置
func (r *Reloader) OnReload(cb func(old, updated *Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Start 开始监听配置文件
func (r *Reloader) Start(ctx context.Context) error {
	return r.watcher.Start(ctx)
}

// Stop 停止监听
func (r *Reloader) Stop() error {
	return r.watcher.Stop()
}

// handleEvent 处理文件事件：删除事件忽略（保留旧配置），
// 创建/修改事件触发重载。
func (r *Reloader) handleEvent(event FileEvent) {
	if event.Op == FileOpRemove {
		r.logger.Warn("config file removed, keeping current config",
			zap.String("path", event.Path))
		return
	}

	cfg, err := r.loader.Load()
	if err != nil {
		r.logger.Warn("config reload failed, keeping current config",
			zap.String("path", event.Path),
			zap.Error(err))
		return
	}

	r.mu.Lock()
	old := r.current
	r.current = cfg
	callbacks := make([]func(*Config, *Config), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	r.logger.Info("config reloaded", zap.String("path", event.Path))

	for _, cb := range callbacks {
		cb(old, cfg)
	}
}
