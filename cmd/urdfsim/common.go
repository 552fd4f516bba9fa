package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"

	"go.viam.com/urdfsim/config"
	"go.viam.com/urdfsim/logging"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow)
)

func heading(w io.Writer, format string, a ...interface{}) {
	headingColor.Fprintf(w, format+"\n", a...) //nolint:errcheck
}

func warningf(w io.Writer, format string, a ...interface{}) {
	warnColor.Fprintf(w, "Warning: "+format+"\n", a...) //nolint:errcheck
}

// loadConfig reads --config, or builds a default config around the robot file given as the first
// argument.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, err
		}
	} else {
		if c.Args().Len() == 0 {
			return nil, errors.New("need a robot file argument or --config")
		}
		cfg = config.NewDefaultConfig(c.Args().First())
	}
	if c.IsSet(flagPhysics) {
		cfg.Physics.Enabled = c.Bool(flagPhysics)
	}
	return cfg, nil
}

// newLogger builds the command logger: --debug wins over the config level, and --log-file over the
// config file.
func newLogger(c *cli.Context, cfg *config.Config) logging.Logger {
	level := logging.INFO
	file := c.String(flagLogFile)
	maxSize := config.DefaultLogMaxSize
	if cfg != nil {
		level = cfg.LogLevel()
		if file == "" {
			file = cfg.Log.File
		}
		maxSize = cfg.Log.MaxSizeMB
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	var logger logging.Logger
	if file != "" {
		logger = logging.NewFileLogger("urdfsim", level, file, maxSize)
	} else {
		logger = logging.NewLogger("urdfsim")
		logger.SetLevel(level)
	}
	logging.ReplaceGlobal(logger)
	return logger
}

// parseSet parses JOINT=VALUE assignments.
func parseSet(assignments []string) (map[string]float64, error) {
	out := make(map[string]float64, len(assignments))
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("expected JOINT=VALUE, got %q", a)
		}
		v, err := cast.ToFloat64E(strings.TrimSpace(value))
		if err != nil {
			return nil, errors.Wrapf(err, "joint %q", name)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func printf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, format+"\n", a...) //nolint:errcheck
}
