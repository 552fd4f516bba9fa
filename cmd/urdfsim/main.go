// Package main is the urdfsim command line tool.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"go.viam.com/urdfsim/logging"
)

const (
	flagDebug    = "debug"
	flagLogFile  = "log-file"
	flagConfig   = "config"
	flagPhysics  = "physics"
	flagGraph    = "graph"
	flagWatch    = "watch"
	flagFrames   = "frames"
	flagSet      = "set"
	flagPlot     = "plot"
	flagRealtime = "realtime"
	flagHist     = "histogram"
)

func newApp() *cli.App {
	return &cli.App{
		Name:            "urdfsim",
		Usage:           "load, inspect and simulate URDF robots",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to a rotating `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print the kinematic tree of a robot",
				ArgsUsage: "[robot.urdf]",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  flagGraph,
						Usage: "render the tree to `FILE` (svg, png, jpg or gv)",
					},
					&cli.BoolFlag{
						Name:  flagWatch,
						Usage: "inspect again whenever the robot file changes",
					},
				},
				Action: InspectAction,
			},
			{
				Name:      "run",
				Usage:     "run frames headless and print the joint panel",
				ArgsUsage: "[robot.urdf]",
				Flags: []cli.Flag{
					configFlag(),
					physicsFlag(),
					&cli.IntFlag{
						Name:  flagFrames,
						Value: 60,
						Usage: "number of frames to run",
					},
					&cli.StringSliceFlag{
						Name:  flagSet,
						Usage: "set a joint position, as `JOINT=VALUE`",
					},
					&cli.StringFlag{
						Name:  flagPlot,
						Usage: "save a plot of the joint positions to `FILE`",
					},
					&cli.BoolFlag{
						Name:  flagRealtime,
						Usage: "pace frames at the configured fps",
					},
					&cli.BoolFlag{
						Name:  flagHist,
						Usage: "print a histogram of frame times",
					},
				},
				Action: RunAction,
			},
			{
				Name:      "interactive",
				Usage:     "move joints from a terminal form",
				ArgsUsage: "[robot.urdf]",
				Flags:     []cli.Flag{configFlag(), physicsFlag()},
				Action:    InteractiveAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the config file",
				Action: SchemaAction,
			},
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "load configuration from `FILE`",
	}
}

func physicsFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  flagPhysics,
		Usage: "simulate physics even if the config does not enable it",
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: ") //nolint:errcheck
		os.Stderr.WriteString(err.Error() + "\n")                        //nolint:errcheck
		logging.Global().Sync()                                          //nolint:errcheck
		os.Exit(1)
	}
}
