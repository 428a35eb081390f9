package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/robot"
	"github.com/robokit/kinsim/spatialmath"
)

// Robot is what the world needs from a robot to reset and query it.
type Robot interface {
	Name() string
	Reset(ctx context.Context) error
	ClearID()
	LinkPose(name string) (spatialmath.Pose, error)
	Close(ctx context.Context) error
}

// WorldConfig describes the world's time base.
type WorldConfig struct {
	// TimeStep is the simulated duration of one Step, in seconds.
	TimeStep float64
	// TimeScale is simulated seconds per wall second when pacing.
	TimeScale float64
	// Pacing makes Step wait TimeStep/TimeScale of wall time.
	Pacing bool
}

// Validate checks the time base.
func (cfg WorldConfig) Validate() error {
	if cfg.TimeStep <= 0 || cfg.TimeStep >= 1 {
		return errors.Errorf("time step must be in (0, 1) seconds, got %v", cfg.TimeStep)
	}
	if cfg.TimeScale <= 0 || cfg.TimeScale >= 1e3 {
		return errors.Errorf("time scale must be in (0, 1000), got %v", cfg.TimeScale)
	}
	return nil
}

type object struct {
	name    string
	path    string
	pose    spatialmath.Pose
	persist bool
	id      robot.ModelID
}

// World owns an Engine, the robots driven in it and the static objects placed in it.
type World struct {
	mu      sync.Mutex
	cfg     WorldConfig
	engine  *Engine
	clock   clock.Clock
	logger  logging.Logger
	robots  []Robot
	objects map[string]*object
	steps   int64
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithClock replaces the wall clock used for pacing.
func WithClock(c clock.Clock) WorldOption {
	return func(w *World) {
		w.clock = c
	}
}

// NewWorld returns an empty world with its own Engine.
func NewWorld(cfg WorldConfig, logger logging.Logger, opts ...WorldOption) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		cfg:     cfg,
		engine:  NewEngine(logger.Sublogger("engine")),
		clock:   clock.New(),
		logger:  logger,
		objects: map[string]*object{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Engine returns the backend robots in this world should load into.
func (w *World) Engine() *Engine {
	return w.engine
}

// Config returns the world's time base.
func (w *World) Config() WorldConfig {
	return w.cfg
}

// AddRobot registers a robot and resets it so its model is loaded. Registering a second robot
// with the same name fails.
func (w *World) AddRobot(ctx context.Context, r Robot) error {
	w.mu.Lock()
	for _, existing := range w.robots {
		if existing.Name() == r.Name() {
			w.mu.Unlock()
			return errors.Errorf("robot %q already in world", r.Name())
		}
	}
	w.robots = append(w.robots, r)
	w.mu.Unlock()
	return r.Reset(ctx)
}

// Robots returns the registered robots in registration order.
func (w *World) Robots() []Robot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Robot(nil), w.robots...)
}

// AddObject loads a static object. An object with the same name is replaced. Persistent objects
// are reloaded by Reset; the others are dropped.
func (w *World) AddObject(ctx context.Context, name, path string, pose spatialmath.Pose, persist bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if old, ok := w.objects[name]; ok {
		if err := w.engine.RemoveModel(ctx, old.id); err != nil {
			return err
		}
		delete(w.objects, name)
	}
	id, err := w.engine.LoadModel(ctx, path, pose)
	if err != nil {
		return errors.Wrapf(err, "adding object %q", name)
	}
	w.objects[name] = &object{name: name, path: path, pose: pose, persist: persist, id: id}
	w.logger.Debugw("added object", "name", name, "persist", persist)
	return nil
}

// RemoveObject removes a static object.
func (w *World) RemoveObject(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	obj, ok := w.objects[name]
	if !ok {
		return errors.Errorf("no object named %q", name)
	}
	delete(w.objects, name)
	return w.engine.RemoveModel(ctx, obj.id)
}

// ObjectNames returns the names of the objects currently in the world, sorted.
func (w *World) ObjectNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.objects))
	for n := range w.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LinkTF returns the pose of link on model relative to refLink on refModel. Models are robot or
// object names; referenceframe.Global as a model name denotes the world frame.
func (w *World) LinkTF(model, link, refModel, refLink string) (spatialmath.Pose, error) {
	pose, err := w.worldPose(model, link)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	ref, err := w.worldPose(refModel, refLink)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return spatialmath.PoseBetween(ref, pose), nil
}

func (w *World) worldPose(model, link string) (spatialmath.Pose, error) {
	if model == referenceframe.Global {
		return spatialmath.NewZeroPose(), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.robots {
		if r.Name() == model {
			return r.LinkPose(link)
		}
	}
	obj, ok := w.objects[model]
	if !ok {
		return spatialmath.Pose{}, referenceframe.NewUnknownFrameError(model)
	}
	idx, err := w.engine.LinkIndex(obj.id, link)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return w.engine.LinkPose(obj.id, idx)
}

// SimTime returns the simulated seconds elapsed since the last Reset.
func (w *World) SimTime() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return float64(w.steps) * w.cfg.TimeStep
}

// Step advances the simulation by one time step. With pacing enabled it then waits
// TimeStep/TimeScale of wall time, returning early with the context's error if it is cancelled.
func (w *World) Step(ctx context.Context) error {
	w.engine.Step(w.cfg.TimeStep)
	w.mu.Lock()
	w.steps++
	w.mu.Unlock()
	if !w.cfg.Pacing {
		return ctx.Err()
	}
	wait := time.Duration(w.cfg.TimeStep / w.cfg.TimeScale * float64(time.Second))
	timer := w.clock.Timer(wait)
	defer timer.Stop()
	if !goutils.SelectContextOrWaitChan(ctx, timer.C) {
		return ctx.Err()
	}
	return nil
}

// Reset removes every model from the engine, then reloads every robot and every persistent
// object. Non-persistent objects are forgotten. Simulated time restarts at zero.
func (w *World) Reset(ctx context.Context) error {
	w.mu.Lock()
	robots := append([]Robot(nil), w.robots...)
	for _, r := range robots {
		r.ClearID()
	}
	w.engine.Reset()
	w.steps = 0
	objects := make([]*object, 0, len(w.objects))
	for name, obj := range w.objects {
		if obj.persist {
			objects = append(objects, obj)
		} else {
			w.logger.Debugw("dropping non-persistent object", "name", name)
		}
	}
	w.objects = map[string]*object{}
	w.mu.Unlock()

	for _, r := range robots {
		if err := r.Reset(ctx); err != nil {
			return errors.Wrapf(err, "resetting robot %q", r.Name())
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].id < objects[j].id })
	for _, obj := range objects {
		if err := w.AddObject(ctx, obj.name, obj.path, obj.pose, true); err != nil {
			return err
		}
	}
	w.logger.Infow("world reset", "robots", len(robots), "objects", len(objects))
	return nil
}

// Close closes every registered robot and empties the engine.
func (w *World) Close(ctx context.Context) error {
	w.mu.Lock()
	robots := w.robots
	w.robots = nil
	w.objects = map[string]*object{}
	w.mu.Unlock()

	var err error
	for _, r := range robots {
		err = multierr.Combine(err, r.Close(ctx))
	}
	w.engine.Reset()
	return err
}
