package main

import (
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/urdfsim/config"
	"go.viam.com/urdfsim/inspect"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/urdf"
)

// InspectAction prints the link and joint tables of a robot, optionally renders its tree, and with
// --watch prints what changed whenever the file changes.
func InspectAction(c *cli.Context) error {
	cfg, err := loadConfig(c, logging.NewBlankLogger("config"))
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)
	w := c.App.Writer
	report, err := inspectOnce(cfg, c.String(flagGraph), logger)
	if err != nil {
		return err
	}
	printf(w, "%s", report)
	if !c.Bool(flagWatch) {
		return nil
	}

	watcher, err := inspect.NewWatcher(cfg.RobotPath(), inspect.DefaultWatchDelay, logger)
	if err != nil {
		return err
	}
	heading(w, "Watching %s", cfg.RobotPath())
	var mu sync.Mutex
	return watcher.Run(c.Context, func() {
		mu.Lock()
		defer mu.Unlock()
		next, err := inspectOnce(cfg, c.String(flagGraph), logger)
		if err != nil {
			warningf(c.App.ErrWriter, "%v", err)
			return
		}
		if diff := inspect.Diff(report, next); diff != "" {
			heading(w, "%s changed", cfg.RobotPath())
			printf(w, "%s", diff)
		}
		report = next
	})
}

func inspectOnce(cfg *config.Config, graphPath string, logger logging.Logger) (string, error) {
	robot, err := urdf.ParseFile(cfg.RobotPath())
	if err != nil {
		return "", err
	}
	tree, err := referenceframe.NewTree(robot, logger)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	heading(&sb, "Robot %q: %d links, %d joints", robot.Name, len(tree.Links), len(tree.Joints))
	printf(&sb, "%s", inspect.LinkTable(tree, cfg.BasePose()))
	if len(robot.Joints) > 0 {
		printf(&sb, "%s", inspect.JointTable(tree))
	}
	for _, s := range tree.Skipped {
		warningf(&sb, "joint %q skipped: %s", s.Joint.Name, s.Reason)
	}
	for _, u := range tree.Unconnected {
		warningf(&sb, "link %q is not connected to %q", tree.Links[u].Link.Name, tree.RootLink().Name)
	}
	if graphPath == "" {
		return sb.String(), nil
	}
	f, err := os.Create(graphPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %q", graphPath)
	}
	if err := inspect.WriteGraph(tree, inspect.FormatForPath(graphPath), f); err != nil {
		//nolint:errcheck
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	printf(&sb, "wrote %s", graphPath)
	return sb.String(), nil
}
