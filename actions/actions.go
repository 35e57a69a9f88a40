package actions

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/taskmesh/collaborator"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/database"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/registry"
	"github.com/hupe1980/taskmesh/step"
)

// Registered action names.
const (
	RecognizeObjectName = "recognize_object"
	RepositionName      = "reposition"
	MoveName            = "move"
	SpeakName           = "speak"
	GripperName         = "gripper"
	WaitName            = "wait"
)

// Default collaborator names.
const (
	RecognizeObjectService = "/rail_object_recognition/recognize_object"
	RepositionServer       = "/reposition"
	MoveBaseServer         = "/move_base"
	SpeechServer           = "/sound_play"
	GripperServer          = "/gripper_controller/gripper_action"
)

// Deps are the collaborators the default actions are built on. An action
// whose collaborators are missing cannot be enabled.
type Deps struct {
	Reposition core.GoalClient
	MoveBase   core.GoalClient
	Speech     core.GoalClient
	Gripper    core.GoalClient

	Recognizer        core.ServiceClient[RecognizeRequest, []float64]
	Waypoints         core.ServiceClient[string, []database.Waypoint]
	Beliefs           core.ServiceClient[struct{}, map[string]float64]
	PartsAtLocation   core.ServiceClient[string, []string]
	SemanticLocations core.ServiceClient[struct{}, []string]

	Notifier core.Notifier
	Logger   logging.Logger
}

// Config tunes the default actions.
type Config struct {
	// UseBelief makes recognize_object reject objects that are not expected
	// at the robot's current location.
	UseBelief bool
	// ConnectTimeout bounds each collaborator wait in Init. Zero waits until
	// the init context ends.
	ConnectTimeout time.Duration
	// CancelTimeout bounds the cancel request sent on Stop.
	CancelTimeout time.Duration
	// WaitTick is the longest single sleep of the wait action.
	WaitTick time.Duration
	// Enabled restricts the entries to these names. Empty enables all.
	Enabled []string
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		CancelTimeout:  step.DefaultCancelTimeout,
		WaitTick:       100 * time.Millisecond,
	}
}

// Names lists every action Default can build, in registration order.
func Names() []string {
	return []string{RecognizeObjectName, RepositionName, MoveName, SpeakName, GripperName, WaitName}
}

// Default builds the registry entries for the enabled actions. It fails when
// an enabled action lacks a collaborator or a name is unknown.
func Default(deps Deps, cfg Config) ([]registry.Entry, error) {
	enabled := cfg.Enabled
	if len(enabled) == 0 {
		enabled = Names()
	}
	for _, n := range enabled {
		if !slices.Contains(Names(), n) {
			return nil, fmt.Errorf("%w: %s", core.ErrActionNotFound, n)
		}
	}

	var entries []registry.Entry
	for _, name := range Names() {
		if !slices.Contains(enabled, name) {
			continue
		}
		f, err := factory(name, deps, cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, registry.Entry{Name: name, New: f})
	}
	return entries, nil
}

func factory(name string, deps Deps, cfg Config) (registry.Factory, error) {
	missing := func(what string) error {
		return fmt.Errorf("action %s: no %s collaborator configured", name, what)
	}
	switch name {
	case RecognizeObjectName:
		if deps.Recognizer == nil {
			return nil, missing("recognizer")
		}
		if cfg.UseBelief && (deps.Beliefs == nil || deps.PartsAtLocation == nil || deps.SemanticLocations == nil) {
			return nil, missing("belief")
		}
		return func() core.Action { return NewRecognizeObject(deps, cfg) }, nil
	case RepositionName:
		if deps.Reposition == nil || deps.Waypoints == nil {
			return nil, missing("reposition")
		}
		return func() core.Action { return NewNavigate(deps.Reposition, deps.Waypoints, deps, cfg) }, nil
	case MoveName:
		if deps.MoveBase == nil || deps.Waypoints == nil {
			return nil, missing("move base")
		}
		return func() core.Action { return NewNavigate(deps.MoveBase, deps.Waypoints, deps, cfg) }, nil
	case SpeakName:
		if deps.Speech == nil {
			return nil, missing("speech")
		}
		return func() core.Action { return NewSpeak(deps, cfg) }, nil
	case GripperName:
		if deps.Gripper == nil {
			return nil, missing("gripper")
		}
		return func() core.Action { return NewGripper(deps, cfg) }, nil
	case WaitName:
		return func() core.Action { return NewWait(deps, cfg) }, nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrActionNotFound, name)
}

func newBase(deps Deps, cfg Config) *step.BaseStep {
	return step.NewBaseStep(func(o *step.Options) {
		o.Logger = deps.Logger
		o.Notifier = deps.Notifier
		if cfg.CancelTimeout > 0 {
			o.CancelTimeout = cfg.CancelTimeout
		}
	})
}

// connectAll waits for every collaborator in turn.
func connectAll(ctx context.Context, logger logging.Logger, timeout time.Duration, cs ...core.Collaborator) error {
	for _, c := range cs {
		if err := collaborator.WaitFor(ctx, c, func(o *collaborator.WaitOptions) {
			o.Timeout = timeout
			o.Logger = logger
		}); err != nil {
			return err
		}
	}
	return nil
}
