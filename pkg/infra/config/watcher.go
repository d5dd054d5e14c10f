// Package config watches the medbot configuration file and notifies
// subscribers when it changes.
package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
	"github.com/spf13/viper"
)

// ChangeHandler is invoked with the reloaded viper instance after the
// configuration file changes.
type ChangeHandler func(v *viper.Viper) error

// Watcher fans a single viper file watch out to named handlers.
type Watcher struct {
	viper    *viper.Viper
	handlers map[string]ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a watcher around a viper instance that already has a
// config file loaded.
func NewWatcher(v *viper.Viper) *Watcher {
	return &Watcher{
		viper:    v,
		handlers: make(map[string]ChangeHandler),
	}
}

// Subscribe registers handler under id, replacing any previous one.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.Debugw("config watcher subscribed", "handler", id)
}

// Unsubscribe removes the handler registered under id.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.handlers[id]; ok {
		delete(w.handlers, id)
		logger.Debugw("config watcher unsubscribed", "handler", id)
	}
}

// Start begins watching. Calling it more than once has no effect.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return
	}
	w.watching = true
	w.mu.Unlock()

	w.viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Infow("config file changed", "file", e.Name, "op", e.Op.String())
		w.Notify()
	})
	w.viper.WatchConfig()

	logger.Infow("config watcher started", "file", w.viper.ConfigFileUsed())
}

// Notify runs every handler against the current viper state. Handler
// failures are logged and do not stop the remaining handlers.
func (w *Watcher) Notify() int {
	w.mu.RLock()
	if !w.watching {
		w.mu.RUnlock()
		return 0
	}
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		handlers[id] = h
	}
	w.mu.RUnlock()

	failed := 0
	for id, handler := range handlers {
		if err := handler(w.viper); err != nil {
			failed++
			logger.Errorw("config reload rejected", "handler", id, "error", err)
			continue
		}
		logger.Debugw("config reload applied", "handler", id)
	}
	return failed
}

// Stop marks the watcher inactive. viper cannot remove its fsnotify watch,
// so later file events are ignored instead.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return
	}
	w.watching = false
	logger.Info("config watcher stopped")
}

// IsWatching reports whether change events are being dispatched.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// HandlerCount returns the number of registered handlers.
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

// ReloadableSubscriber decodes one config section into a fresh value and
// hands it to a Reloadable component.
type ReloadableSubscriber[T any] struct {
	component Reloadable
	configKey string
	newTarget func() T
}

// NewReloadableSubscriber creates a subscriber for configKey (e.g. "log").
// newTarget must return a pointer carrying the section defaults; it is
// called once per change so a rejected reload never leaks partial state.
func NewReloadableSubscriber[T any](component Reloadable, configKey string, newTarget func() T) *ReloadableSubscriber[T] {
	return &ReloadableSubscriber[T]{
		component: component,
		configKey: configKey,
		newTarget: newTarget,
	}
}

// Handler returns the ChangeHandler to register with a Watcher.
func (rs *ReloadableSubscriber[T]) Handler() ChangeHandler {
	return func(v *viper.Viper) error {
		target := rs.newTarget()
		if err := v.UnmarshalKey(rs.configKey, target); err != nil {
			return fmt.Errorf("failed to unmarshal config key '%s': %w", rs.configKey, err)
		}
		if err := rs.component.OnConfigChange(target); err != nil {
			return fmt.Errorf("component rejected config change: %w", err)
		}
		return nil
	}
}
