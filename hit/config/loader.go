package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultDebounce is how long the Loader waits after the last file event before reloading.
const DefaultDebounce = 100 * time.Millisecond

// Load reads the file at path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read is Load without validation, for callers which complete the configuration themselves.
func Read(path string) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Loader loads a configuration file and reloads it when the file changes.
type Loader struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)

	watcher *fsnotify.Watcher
	timer   *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	errChan chan error
	done    chan struct{}
}

// NewLoader creates a loader for the file at path. A debounce of zero means DefaultDebounce.
func NewLoader(path string, debounce time.Duration) *Loader {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Loader{
		path:     path,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		errChan:  make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Load reads the file and makes it the current configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()

	return cfg.Clone(), nil
}

// Config returns a copy of the current configuration, nil before the first successful Load.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.config == nil {
		return nil
	}

	return l.config.Clone()
}

// OnChange registers a callback invoked with every successfully reloaded configuration.
func (l *Loader) OnChange(cb func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.onChange = append(l.onChange, cb)
}

// Errors delivers reload and watcher errors. Errors are dropped while the channel is full.
func (l *Loader) Errors() <-chan error {
	return l.errChan
}

// Watch starts watching the file's directory. Writes and creates of the file trigger a debounced reload.
// An invalid file is reported on Errors and the previous configuration stays current.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	l.watcher = watcher
	go l.watchLoop()

	return nil
}

// Close stops watching. It is safe to call more than once and without Watch.
func (l *Loader) Close() error {
	l.cancel()

	if l.watcher == nil {
		return nil
	}

	err := l.watcher.Close()
	<-l.done

	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.mu.Unlock()

	return err
}

func (l *Loader) watchLoop() {
	defer close(l.done)

	name := filepath.Base(l.path)

	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != name || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}

			l.scheduleReload()

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}

			l.report(err)
		}
	}
}

func (l *Loader) scheduleReload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.timer != nil {
		l.timer.Stop()
	}

	l.timer = time.AfterFunc(l.debounce, l.reload)
}

func (l *Loader) reload() {
	if l.ctx.Err() != nil {
		return
	}

	cfg, err := Load(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload config: %w", err))
		return
	}

	l.mu.Lock()
	l.config = cfg
	callbacks := append([]func(*Config){}, l.onChange...)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg.Clone())
	}
}

func (l *Loader) report(err error) {
	select {
	case l.errChan <- err:
	default:
	}
}

// loadConfigFromFile decodes the file on top of DefaultConfig, choosing the format by extension.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if err := autoDetectAndParse(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// autoDetectAndParse tries TOML, then JSON, then YAML, each on a fresh copy of the defaults.
func autoDetectAndParse(data []byte, cfg *Config) error {
	decoders := []func(*Config) error{
		func(c *Config) error { _, err := toml.Decode(string(data), c); return err },
		func(c *Config) error { return json.Unmarshal(data, c) },
		func(c *Config) error { return yaml.Unmarshal(data, c) },
	}

	for _, decode := range decoders {
		candidate := cfg.Clone()
		if err := decode(candidate); err == nil {
			*cfg = *candidate
			return nil
		}
	}

	return ErrUnknownFormat
}
