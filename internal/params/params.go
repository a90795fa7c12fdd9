// Package params holds the live RTL tunables. Readers get the current value
// without blocking; a background watcher reloads the params file when it
// changes and uplinked parameter sets take effect on the next read.
package params

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/internal/rtl"
	"github.com/curbz/rtl-navigator/pkg/util"
)

const (
	ReturnAlt  = "RTL_RETURN_ALT"
	DescendAlt = "RTL_DESCEND_ALT"
	LandDelay  = "RTL_LAND_DELAY"
)

var (
	ErrUnknownParam = errors.New("unknown parameter")
	ErrOutOfRange   = errors.New("parameter out of range")
)

type limits struct {
	min, max float64
}

var ranges = map[string]limits{
	ReturnAlt:  {0, 150},
	DescendAlt: {0, 100},
	LandDelay:  {-1, 300},
}

// Defaults are used for anything the params file leaves out.
var Defaults = rtl.Tunables{
	ReturnAlt:  100,
	DescendAlt: 20,
	LandDelay:  -1,
}

type Store struct {
	current atomic.Pointer[rtl.Tunables]

	// serialises writers; readers only touch current
	mu      sync.Mutex
	modTime time.Time
}

func NewStore(initial rtl.Tunables) *Store {
	s := &Store{}
	s.current.Store(&initial)
	return s
}

// Tunables returns the live values.
func (s *Store) Tunables() rtl.Tunables {
	return *s.current.Load()
}

// Load reads a params file over the defaults and validates the result.
func Load(path string) (rtl.Tunables, error) {
	t := Defaults
	if err := util.LoadConfigInto(path, &t); err != nil {
		return t, fmt.Errorf("error loading params file %s: %w", path, err)
	}
	if err := Validate(t); err != nil {
		return t, err
	}
	return t, nil
}

func Validate(t rtl.Tunables) error {
	for name, v := range map[string]float64{
		ReturnAlt:  t.ReturnAlt,
		DescendAlt: t.DescendAlt,
		LandDelay:  t.LandDelay,
	} {
		if err := checkRange(name, v); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(name string, v float64) error {
	l, ok := ranges[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	if v < l.min || v > l.max {
		return fmt.Errorf("%w: %s=%v not in [%v, %v]", ErrOutOfRange, name, v, l.min, l.max)
	}
	return nil
}

// Set changes a single parameter by name.
func (s *Store) Set(name string, value float64) error {
	if err := checkRange(name, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.Tunables()
	switch name {
	case ReturnAlt:
		t.ReturnAlt = value
	case DescendAlt:
		t.DescendAlt = value
	case LandDelay:
		t.LandDelay = value
	}
	s.current.Store(&t)
	log.Printf("param %s set to %v", name, value)
	return nil
}

// Reload re-reads path if it changed since the last reload. It reports
// whether new values were applied. On error the current values are kept.
func (s *Store) Reload(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("error checking params file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !info.ModTime().After(s.modTime) {
		return false, nil
	}

	t, err := Load(path)
	if err != nil {
		return false, err
	}
	s.modTime = info.ModTime()
	s.current.Store(&t)
	return true, nil
}

// Watch polls path every interval until ctx is done.
func (s *Store) Watch(ctx context.Context, path string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.Reload(path)
			if err != nil {
				log.Warnf("params reload failed, keeping current values: %v", err)
				continue
			}
			if changed {
				t := s.Tunables()
				log.Printf("params reloaded: return %.0f m, descend %.0f m, land delay %.1f s",
					t.ReturnAlt, t.DescendAlt, t.LandDelay)
			}
		}
	}
}

// Config is the params section of the application config.
type Config struct {
	File            string        `yaml:"file"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type config struct {
	Params Config `yaml:"params"`
}

var DefaultConfig = Config{
	File:            "params.yaml",
	RefreshInterval: 2 * time.Second,
}

func LoadConfig(cfgPath string) (Config, error) {
	cfg := config{Params: DefaultConfig}
	if err := util.LoadConfigInto(cfgPath, &cfg); err != nil {
		return cfg.Params, fmt.Errorf("error reading params config: %w", err)
	}
	if cfg.Params.RefreshInterval <= 0 {
		return cfg.Params, fmt.Errorf("params refresh_interval must be positive")
	}
	return cfg.Params, nil
}
