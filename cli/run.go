package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/robokit/kinsim/config"
	"github.com/robokit/kinsim/scenario"
)

// RunAction is the corresponding action for 'run'.
func RunAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("run expects exactly one scenario file")
	}
	cfg, err := config.Load(c.Args().First())
	if err != nil {
		return err
	}
	if c.IsSet(flagDuration) {
		cfg.Duration = c.Float64(flagDuration)
	}
	if c.Bool(flagPacing) {
		cfg.World.Pacing = true
	}

	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	runner, err := scenario.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(func() error { return runner.Close(c.Context) })

	res, err := runner.Run(c.Context)
	if err != nil {
		return err
	}

	printf(c.App.Writer, "simulated %.3fs in %d steps", res.SimTime, res.Steps)
	summaries := make([]scenario.Summary, 0, len(res.Traces))
	for _, t := range res.Traces {
		s, err := scenario.Summarize(t)
		if err != nil {
			return errors.Wrapf(err, "summarizing %q", t.Robot)
		}
		summaries = append(summaries, s)
	}
	printf(c.App.Writer, "%s", scenario.SummaryTable(summaries))
	if len(res.Events) > 0 {
		printf(c.App.Writer, "%s", scenario.EventTable(res.Events))
	}

	if bins := c.Int(flagBins); bins > 0 {
		for _, t := range res.Traces {
			if len(t.Samples) == 0 {
				continue
			}
			printf(c.App.Writer, "%s tracking error:", t.Robot)
			if err := scenario.FprintHistogram(c.App.Writer, t, bins); err != nil {
				return err
			}
		}
	}

	if path := c.String(flagPlot); path != "" {
		if err := scenario.SavePlot(res.Traces, path); err != nil {
			return errors.Wrap(err, "saving plot")
		}
		printf(c.App.Writer, "wrote %s", path)
	}
	return nil
}
