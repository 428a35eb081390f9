package control

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/robot"
	"github.com/robokit/kinsim/state"
)

// Cascade is a fixed chain of stages driving one actuator. The chain is built once and never
// rewired.
type Cascade struct {
	stage    Stage
	next     *Cascade
	actuator Actuator
	logger   logging.Logger
}

// NewCascade links stages in order. The last stage's kind is the command kind sent to act.
func NewCascade(act Actuator, logger logging.Logger, stages ...Stage) (*Cascade, error) {
	if len(stages) == 0 {
		return nil, errors.New("cascade needs at least one stage")
	}
	var head *Cascade
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i] == nil {
			return nil, errors.Errorf("cascade stage %d is nil", i)
		}
		head = &Cascade{stage: stages[i], next: head, actuator: act, logger: logger}
	}
	return head, nil
}

// Stages returns the stages in order.
func (c *Cascade) Stages() []Stage {
	var out []Stage
	for n := c; n != nil; n = n.next {
		out = append(out, n.stage)
	}
	return out
}

// Kind returns the command kind the cascade finally sends.
func (c *Cascade) Kind() state.ControlKind {
	n := c
	for n.next != nil {
		n = n.next
	}
	return n.stage.Kind()
}

// Submit runs target through every stage, then sends it to the actuator. target is rewritten in
// place. A stage that cannot produce an output stops the chain and nothing is sent. Missing
// kinematic data, such as an unloaded robot, is reported as false rather than as an error.
func (c *Cascade) Submit(ctx context.Context, target *state.Motion) (bool, error) {
	if target == nil {
		return false, errors.New("nil motion target")
	}
	ok, err := c.stage.Compute(ctx, c.actuator, target)
	if err != nil {
		if errors.Is(err, robot.ErrNotInitialized) {
			c.logger.Warnw("stage has no kinematic data", "stage", c.stage.Name(), "error", err)
			return false, nil
		}
		return false, errors.Wrapf(err, "stage %s", c.stage.Name())
	}
	if !ok {
		c.logger.Debugw("stage produced no output", "stage", c.stage.Name())
		return false, nil
	}
	if c.next != nil {
		return c.next.Submit(ctx, target)
	}
	return c.actuator.SetControl(ctx, c.stage.Kind(), target)
}

// Reset clears the memory of every stage that keeps some.
func (c *Cascade) Reset() {
	for n := c; n != nil; n = n.next {
		if r, ok := n.stage.(resetter); ok {
			r.Reset()
		}
	}
}

// Command pairs a cascade with the target it should follow this tick.
type Command struct {
	Cascade *Cascade
	Target  *state.Motion
}

// SubmitAll submits every command, one after another, and reports whether all of them succeeded.
// A failing command does not prevent the others from being submitted.
func SubmitAll(ctx context.Context, cmds ...Command) (bool, error) {
	all := true
	var errs error
	for _, cmd := range cmds {
		ok, err := cmd.Cascade.Submit(ctx, cmd.Target)
		all = all && ok
		errs = multierr.Combine(errs, err)
	}
	return all, errs
}
