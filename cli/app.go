// Package cli contains the kinsim command line tool.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/robokit/kinsim/logging"
)

const (
	flagDebug    = "debug"
	flagLogLevel = "log-level"
	flagPlot     = "plot"
	flagDuration = "duration"
	flagPacing   = "pacing"
	flagBins     = "histogram"
	flagBase     = "base"
	flagTool     = "tool"
	flagLink     = "link"
	flagXYZ      = "xyz"
	flagRPY      = "rpy"
	flagOut      = "out"
)

var app = &cli.App{
	Name:            "kinsim",
	Usage:           "simulate kinematic robots, their controllers and their tools",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging, same as --log-level debug",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Value: "warn",
			Usage: "minimum `LEVEL` logged to stderr (debug, info, warn or error)",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "run",
			Usage:     "run a scenario and report how well every robot tracked its target",
			ArgsUsage: "<scenario.yaml>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagPlot,
					Usage: "write a plot of the tracking error to `FILE`",
				},
				&cli.Float64Flag{
					Name:  flagDuration,
					Usage: "override the scenario duration in seconds",
				},
				&cli.IntFlag{
					Name:  flagBins,
					Usage: "print a histogram of each robot's tracking error with `N` bins",
				},
				&cli.BoolFlag{
					Name:  flagPacing,
					Usage: "pace the simulation against the wall clock",
				},
			},
			Action: RunAction,
		},
		{
			Name:      "inspect",
			Usage:     "print the links and joints of a URDF file",
			ArgsUsage: "<model.urdf>",
			Action:    InspectAction,
		},
		{
			Name:  "merge",
			Usage: "attach a tool URDF to a link of a base URDF and write the result",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagBase, Required: true, Usage: "base `URDF`"},
				&cli.StringFlag{Name: flagTool, Required: true, Usage: "tool `URDF`"},
				&cli.StringFlag{Name: flagLink, Required: true, Usage: "base link the tool is attached to"},
				&cli.Float64SliceFlag{Name: flagXYZ, Usage: "offset translation in meters"},
				&cli.Float64SliceFlag{Name: flagRPY, Usage: "offset roll, pitch and yaw in radians"},
				&cli.StringFlag{Name: flagOut, Required: true, Usage: "output `FILE`"},
			},
			Action: MergeAction,
		},
	},
}

// NewApp returns the kinsim app writing to the given outputs.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func newLogger(c *cli.Context) (logging.Logger, error) {
	level := logging.DEBUG
	if !c.Bool(flagDebug) {
		var err error
		if level, err = logging.LevelFromString(c.String(flagLogLevel)); err != nil {
			return nil, err
		}
	}
	logger := logging.NewBlankLogger("kinsim")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(level)
	return logger, nil
}
