package main

import (
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"go.viam.com/urdfsim/control"
	"go.viam.com/urdfsim/inspect"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/sim"
)

const quitOption = "(quit)"

// InteractiveAction shows the joint panel and asks which joint to move and where, one frame per
// answer, until the user quits.
func InteractiveAction(c *cli.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("interactive mode needs a terminal; use run --set instead")
	}
	cfg, err := loadConfig(c, logging.NewBlankLogger("config"))
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	commands := make(chan control.Command, 1)
	s := sim.New(cfg, sim.Deps{Logger: logger, Input: control.NewChannelInput(commands)})
	spinner, err := pterm.DefaultSpinner.
		WithRemoveWhenDone(false).
		WithText("Loading " + cfg.RobotPath()).
		Start()
	if err != nil {
		return err
	}
	if err := s.Startup(c.Context); err != nil {
		spinner.Fail(err.Error())
		return err
	}
	defer s.Close()
	spinner.Success("Loaded " + s.Scene.Robot.Name)
	dt := 1 / cfg.Render.FPS

	for {
		if err := s.Frame(dt); err != nil {
			return err
		}
		rows := s.Controller.Panel()
		printf(c.App.Writer, "%s", inspect.PanelTable(rows))

		options := []huh.Option[string]{}
		for _, r := range rows {
			if r.Enabled {
				options = append(options, huh.NewOption(r.Label+" ("+r.Kind.String()+")", r.Label))
			}
		}
		if len(options) == 0 {
			warningf(c.App.ErrWriter, "robot has no controllable joints")
			return nil
		}
		options = append(options, huh.NewOption(quitOption, quitOption))

		var joint, value string
		err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().Title("Joint").Options(options...).Value(&joint),
		)).Run()
		if errors.Is(err, huh.ErrUserAborted) || joint == quitOption {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := s.Controller.Position(joint)
		if err != nil {
			return err
		}
		value = strconv.FormatFloat(current, 'f', 4, 64)
		err = huh.NewInput().
			Title("Position of " + joint).
			Value(&value).
			Validate(func(s string) error {
				_, err := cast.ToFloat64E(s)
				return err
			}).
			Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		commands <- control.Command{Joint: joint, Position: cast.ToFloat64(value)}
	}
}
