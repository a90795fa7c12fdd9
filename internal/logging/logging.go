// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/curbz/rtl-navigator/pkg/util"
)

// Config is the log section of the application config. An empty Dir logs
// to stderr only.
type Config struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type config struct {
	Log Config `yaml:"log"`
}

var DefaultConfig = Config{
	Level:      "info",
	MaxSizeMB:  32,
	MaxBackups: 3,
}

func LoadConfig(cfgPath string) (Config, error) {
	cfg := config{Log: DefaultConfig}
	if err := util.LoadConfigInto(cfgPath, &cfg); err != nil {
		return cfg.Log, fmt.Errorf("error reading log config: %w", err)
	}
	return cfg.Log, nil
}

// Setup applies cfg to the standard logrus logger. The returned closer
// releases the log file, if any.
func Setup(cfg Config) (io.Closer, error) {
	lvl, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if cfg.Dir == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "rtlnav.log"),
		MaxSize:    cfg.MaxSizeMB, // MB
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, w))
	log.Infof("logging to %s", w.Filename)
	return w, nil
}
