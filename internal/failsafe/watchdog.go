// Package failsafe triggers a return to launch when the ground link goes
// quiet.
package failsafe

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/pkg/util"
)

// LinkWatchdog is a dead-man switch on the ground link. Reset must be called
// on every heartbeat or command from the ground station. Once expired it
// stays triggered until Clear, and onTrigger runs once per trigger. A
// trigger whose onTrigger fails is dropped and the watchdog re-arms.
type LinkWatchdog struct {
	timeout   time.Duration
	onTrigger func() error

	mu        sync.Mutex
	timer     *time.Timer
	triggered bool
	stopped   bool
}

// NewLinkWatchdog arms a watchdog that calls onTrigger after timeout without
// a Reset.
func NewLinkWatchdog(timeout time.Duration, onTrigger func() error) *LinkWatchdog {
	w := &LinkWatchdog{
		timeout:   timeout,
		onTrigger: onTrigger,
	}
	w.timer = time.AfterFunc(timeout, w.expire)
	log.Infof("link watchdog armed with %v timeout", timeout)
	return w
}

func (w *LinkWatchdog) expire() {
	w.mu.Lock()
	if w.triggered || w.stopped {
		w.mu.Unlock()
		return
	}
	w.triggered = true
	w.mu.Unlock()

	log.Errorf("ground link lost for %v", w.timeout)
	if w.onTrigger == nil {
		return
	}
	if err := w.onTrigger(); err != nil {
		log.Errorf("link loss action failed, re-arming: %v", err)
		w.rearm()
	}
}

func (w *LinkWatchdog) rearm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.triggered = false
	w.timer = time.AfterFunc(w.timeout, w.expire)
}

// Reset restarts the countdown. It is ignored once triggered or stopped.
func (w *LinkWatchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.triggered || w.stopped {
		return
	}
	w.timer.Stop()
	w.timer = time.AfterFunc(w.timeout, w.expire)
}

func (w *LinkWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	w.timer.Stop()
}

func (w *LinkWatchdog) IsTriggered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.triggered
}

// Clear re-arms a triggered watchdog.
func (w *LinkWatchdog) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.triggered {
		return
	}
	w.triggered = false
	w.stopped = false
	w.timer = time.AfterFunc(w.timeout, w.expire)
	log.Warn("link watchdog cleared")
}

// Config is the failsafe section of the application config. A zero
// LinkTimeout disables the watchdog.
type Config struct {
	LinkTimeout time.Duration `yaml:"link_timeout"`
}

type config struct {
	Failsafe Config `yaml:"failsafe"`
}

func LoadConfig(cfgPath string) (Config, error) {
	cfg := config{Failsafe: Config{LinkTimeout: 10 * time.Second}}
	if err := util.LoadConfigInto(cfgPath, &cfg); err != nil {
		return cfg.Failsafe, fmt.Errorf("error reading failsafe config: %w", err)
	}
	return cfg.Failsafe, nil
}
