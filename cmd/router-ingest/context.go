package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/joseph-ayodele/router-ingest/internal/common"
)

type commandContext struct {
	logLevelFlag *string

	configOnce sync.Once
	config     *common.Config
	logger     *slog.Logger
}

func newCommandContext(logLevelFlag *string) *commandContext {
	return &commandContext{logLevelFlag: logLevelFlag}
}

// ensureConfig loads configuration and sets up the process logger once.
func (c *commandContext) ensureConfig() (*common.Config, *slog.Logger) {
	c.configOnce.Do(func() {
		cfg := common.LoadConfig()
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.LogLevel = *c.logLevelFlag
		}
		c.config = cfg
		c.logger = newLogger(cfg.LogLevel)
		slog.SetDefault(c.logger)
	})
	return c.config, c.logger
}

// newLogger builds a text logger that prints messages with variables but no time.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// acquireSessionLock makes sure only one queue session runs per lock file.
func acquireSessionLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrLocked, path)
	}
	return lock, nil
}

func releaseSessionLock(lock *flock.Flock, logger *slog.Logger) {
	if err := lock.Unlock(); err != nil {
		logger.Warn("failed to release session lock", "error", err)
	}
}
