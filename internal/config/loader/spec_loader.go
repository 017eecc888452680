package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"stratsim/internal/backtest"
	"stratsim/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileConfig is the full strategy definitions file.
type FileConfig struct {
	Strategies map[string]backtest.StrategyConfig `mapstructure:"strategies"`
}

// SpecSnapshot is a read-only copy of the loaded definitions.
type SpecSnapshot struct {
	Version    int64
	LoadedAt   time.Time
	Strategies map[string]backtest.StrategyConfig
}

// Names lists the loaded strategy names in stable order.
func (s SpecSnapshot) Names() []string {
	out := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ChangeListener is called with a fresh snapshot after each reload.
type ChangeListener func(SpecSnapshot)

// SpecLoader loads named strategy definitions from a YAML file and
// watches it for edits.
type SpecLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  SpecSnapshot
	listeners []ChangeListener
}

// NewSpecLoader reads the definitions file and starts watching it.
func NewSpecLoader(path string) (*SpecLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("spec loader requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read strategy definitions: %w", err)
	}
	l := &SpecLoader{path: path, v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := l.reload(); err != nil {
			logger.Errorf("strategy definitions reload failed (%s): %v", evt.Name, err)
			return
		}
		l.notify()
	})
	v.WatchConfig()
	return l, nil
}

// Snapshot returns the current definitions.
func (l *SpecLoader) Snapshot() SpecSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// Get looks up one named definition.
func (l *SpecLoader) Get(name string) (backtest.StrategyConfig, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cfg, ok := l.snapshot.Strategies[name]
	return cfg, ok
}

// Subscribe registers a listener and immediately sends it the current
// snapshot.
func (l *SpecLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go fn(snap)
}

func (l *SpecLoader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		go fn(snap)
	}
}

func (l *SpecLoader) reload() error {
	var fileCfg FileConfig
	if err := l.v.Unmarshal(&fileCfg); err != nil {
		return fmt.Errorf("parse strategy definitions: %w", err)
	}
	loaded := make(map[string]backtest.StrategyConfig, len(fileCfg.Strategies))
	for name, def := range fileCfg.Strategies {
		if def.Name == "" {
			def.Name = name
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("strategy %q: %w", name, err)
		}
		loaded[name] = def
	}
	l.mu.Lock()
	l.snapshot = SpecSnapshot{
		Version:    l.snapshot.Version + 1,
		LoadedAt:   time.Now(),
		Strategies: loaded,
	}
	l.mu.Unlock()
	logger.Infof("loaded %d strategy definitions from %s", len(loaded), filepath.Base(l.path))
	return nil
}

func cloneSnapshot(in SpecSnapshot) SpecSnapshot {
	out := SpecSnapshot{
		Version:    in.Version,
		LoadedAt:   in.LoadedAt,
		Strategies: make(map[string]backtest.StrategyConfig, len(in.Strategies)),
	}
	for name, def := range in.Strategies {
		out.Strategies[name] = def
	}
	return out
}
