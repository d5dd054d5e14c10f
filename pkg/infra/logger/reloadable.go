package logger

import (
	"fmt"
	"sync"

	"github.com/kart-io/logger"

	configpkg "github.com/kart-io/medbot/pkg/infra/config"
	logopts "github.com/kart-io/medbot/pkg/options/logger"
)

// ReloadableLogger applies log-section changes from the config file at
// runtime. Only level, format, development and caller/stacktrace settings
// are reloaded; output paths and the engine stay as started.
type ReloadableLogger struct {
	opts *logopts.Options
	mu   sync.Mutex
}

// NewReloadableLogger creates a new reloadable logger manager.
func NewReloadableLogger(opts *logopts.Options) *ReloadableLogger {
	return &ReloadableLogger{opts: opts}
}

// OnConfigChange implements config.Reloadable.
func (rl *ReloadableLogger) OnConfigChange(newConfig any) error {
	newOpts, ok := newConfig.(*logopts.Options)
	if !ok {
		return fmt.Errorf("invalid config type: expected *logger.Options, got %T", newConfig)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	next := *rl.opts.LogOption
	next.Level = newOpts.Level
	next.Format = newOpts.Format
	next.Development = newOpts.Development
	next.DisableCaller = newOpts.DisableCaller
	next.DisableStacktrace = newOpts.DisableStacktrace

	candidate := &logopts.Options{LogOption: &next}
	if errs := candidate.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid logger configuration: %v", errs)
	}
	if err := candidate.Init(); err != nil {
		return fmt.Errorf("failed to apply logger config: %w", err)
	}

	rl.opts.LogOption = &next
	logger.Infow("logger configuration reloaded", "level", next.Level, "format", next.Format)
	return nil
}

// Level returns the level currently in effect.
func (rl *ReloadableLogger) Level() string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.opts.Level
}

// RegisterWithWatcher subscribes this logger to changes of configKey.
func (rl *ReloadableLogger) RegisterWithWatcher(watcher *configpkg.Watcher, handlerID, configKey string) {
	watcher.Subscribe(handlerID, configpkg.NewReloadableSubscriber(rl, configKey, logopts.NewOptions).Handler())
}
