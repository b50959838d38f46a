package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/menta2k/scene-narrator/internal/config"
	"github.com/menta2k/scene-narrator/internal/logging"
)

type commandContext struct {
	configFlag string
	logLevel   string
	logFormat  string
	jsonFlag   bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureConfig loads --config, or the default path when it exists, or the
// built-in defaults
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.configFlag)
		explicit := path != ""
		if !explicit {
			path = config.GetConfigPath()
		}

		cfg, err := config.LoadFromFile(path)
		switch {
		case err == nil:
		case !explicit && errors.Is(err, fs.ErrNotExist):
			cfg = config.Default()
		default:
			c.configErr = err
			return
		}

		if c.logLevel != "" {
			cfg.Log.Level = c.logLevel
		}
		if c.logFormat != "" {
			cfg.Log.Format = c.logFormat
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor returns the configured logger writing to the command's stderr
func (c *commandContext) loggerFor(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		level, format := c.logLevel, c.logFormat
		if c.config != nil {
			level, format = c.config.Log.Level, c.config.Log.Format
		}
		logger, err := logging.New(logging.Options{Level: level, Format: format, Output: cmd.ErrOrStderr()})
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// wantJSON reports whether output should be JSON rather than a table
func (c *commandContext) wantJSON(cmd *cobra.Command) bool {
	return c.jsonFlag || !isTerminal(cmd.OutOrStdout())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
