package main

import (
	"encoding/json"

	"github.com/urfave/cli/v2"

	"go.viam.com/urdfsim/config"
	"go.viam.com/urdfsim/inspect"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/sim"
)

// RunAction runs a number of frames, then prints the joint panel and frame timings.
func RunAction(c *cli.Context) error {
	cfg, err := loadConfig(c, logging.NewBlankLogger("config"))
	if err != nil {
		return err
	}
	set, err := parseSet(c.StringSlice(flagSet))
	if err != nil {
		return err
	}
	if len(set) > 0 && cfg.Joints == nil {
		cfg.Joints = map[string]float64{}
	}
	for name, v := range set {
		cfg.Joints[name] = v
	}
	logger := newLogger(c, cfg)

	s := sim.New(cfg, sim.Deps{Logger: logger})
	if err := s.Startup(c.Context); err != nil {
		return err
	}
	defer s.Close()

	frames := c.Int(flagFrames)
	if c.Bool(flagRealtime) {
		if err := s.Run(c.Context, frames); err != nil {
			return err
		}
	} else {
		dt := 1 / cfg.Render.FPS
		for i := 0; i < frames; i++ {
			if err := s.Frame(dt); err != nil {
				return err
			}
		}
	}
	return report(c, s, cfg)
}

func report(c *cli.Context, s *sim.Simulation, cfg *config.Config) error {
	w := c.App.Writer
	heading(w, "%s after %d frames (%s)", s.Scene.Robot.Name, s.Frames(), s.Scene.Mode)
	printf(w, "%s", inspect.PanelTable(s.Controller.Panel()))
	if fs, err := s.Recorder.Stats(); err == nil {
		printf(w, "frame time: mean %.3fms, median %.3fms, p95 %.3fms, max %.3fms",
			fs.Mean, fs.Median, fs.P95, fs.Max)
		if c.Bool(flagHist) {
			if err := s.Recorder.Histogram(w, 10); err != nil {
				return err
			}
		}
	}
	if path := c.String(flagPlot); path != "" {
		if err := s.Recorder.Plot(path); err != nil {
			return err
		}
		printf(w, "wrote %s", path)
	}
	if cfg.LogLevel() == logging.DEBUG {
		positions, err := json.Marshal(s.Controller.Positions())
		if err != nil {
			return err
		}
		printf(w, "positions: %s", positions)
	}
	return nil
}
