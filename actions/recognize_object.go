package actions

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/step"
)

const robotAtPrefix = "robot_at_"

// RecognizeRequest carries the point clouds of the segmented objects.
type RecognizeRequest struct {
	Clouds []any `json:"clouds"`
}

// RecognizeObject finds the segmented object most likely to be the desired
// challenge object.
//
// Args:
//   - desired_obj: challenge object name (e.g. "SMALL_GEAR") or a ChallengeObject
//   - segmented_objects: non-empty list of point clouds
//
// Succeeds with object_idx, the index into segmented_objects.
type RecognizeObject struct {
	*step.BaseStep
	recognizer        core.ServiceClient[RecognizeRequest, []float64]
	beliefs           core.ServiceClient[struct{}, map[string]float64]
	partsAtLocation   core.ServiceClient[string, []string]
	semanticLocations core.ServiceClient[struct{}, []string]

	useBelief      bool
	connectTimeout time.Duration

	// parts is filled by Init and read-only afterwards.
	parts map[string][]ChallengeObject
}

var _ core.Action = (*RecognizeObject)(nil)

// NewRecognizeObject creates the action.
func NewRecognizeObject(deps Deps, cfg Config) *RecognizeObject {
	return &RecognizeObject{
		BaseStep:          newBase(deps, cfg),
		recognizer:        deps.Recognizer,
		beliefs:           deps.Beliefs,
		partsAtLocation:   deps.PartsAtLocation,
		semanticLocations: deps.SemanticLocations,
		useBelief:         cfg.UseBelief,
		connectTimeout:    cfg.ConnectTimeout,
		parts:             make(map[string][]ChallengeObject),
	}
}

// Init waits for the recognizer and, with beliefs enabled, loads the parts
// expected at every semantic location.
func (a *RecognizeObject) Init(ctx context.Context, name string) error {
	return a.InitOnce(ctx, name, func(ctx context.Context) error {
		if !a.useBelief {
			return connectAll(ctx, a.Logger(), a.connectTimeout, a.recognizer)
		}
		if err := connectAll(ctx, a.Logger(), a.connectTimeout,
			a.recognizer, a.beliefs, a.partsAtLocation, a.semanticLocations); err != nil {
			return err
		}
		return a.loadParts(ctx)
	})
}

func (a *RecognizeObject) loadParts(ctx context.Context) error {
	locations, err := a.semanticLocations.Call(ctx, struct{}{})
	if err != nil {
		return err
	}
	for _, loc := range locations {
		names, err := a.partsAtLocation.Call(ctx, loc)
		if err != nil {
			a.Logger().Warn("actions.recognize_object.parts_unavailable", "location", loc, "error", err.Error())
			continue
		}
		var parts []ChallengeObject
		for _, n := range names {
			o, err := ParseChallengeObject(n)
			if err != nil {
				a.Logger().Warn("actions.recognize_object.unknown_part", "location", loc, "part", n)
				continue
			}
			parts = append(parts, o)
		}
		a.parts[strings.ToLower(loc)] = parts
	}
	return nil
}

// Run validates the arguments and returns the recognition sequence.
func (a *RecognizeObject) Run(ctx context.Context, args core.Args) (iter.Seq[core.Result], error) {
	raw, ok := args.Get("desired_obj")
	if !ok {
		return nil, a.InvalidArg("desired_obj", nil, "required argument is missing")
	}
	desired, err := challengeObjectFrom(raw)
	if err != nil {
		return nil, a.InvalidArg("desired_obj", raw, err.Error())
	}
	clouds, err := args.Slice("segmented_objects")
	if err != nil {
		return nil, a.ArgError(err)
	}
	if len(clouds) == 0 {
		return nil, a.InvalidArg("segmented_objects", clouds, "cannot recognize with 0 point clouds")
	}
	if err := a.BeginRun(); err != nil {
		return nil, err
	}

	return func(yield func(core.Result) bool) {
		if a.useBelief {
			if a.Stopped() || ctx.Err() != nil {
				yield(a.preempted(desired, nil))
				return
			}
			loc, err := a.currentLocation(ctx)
			if err != nil {
				yield(a.ServiceFailure(a.beliefs.Name(), struct{}{}, err))
				return
			}
			if !slices.Contains(a.parts[loc], desired) {
				f := a.Failure(a.beliefs.Name())
				f.Goal = desired.String()
				f.Reason = "object not expected at the current location"
				f.Extra = map[string]any{"location": loc}
				yield(core.Aborted(f))
				return
			}
			if !yield(core.Running(map[string]any{"location": loc})) {
				return
			}
		}

		if a.Stopped() || ctx.Err() != nil {
			yield(a.preempted(desired, nil))
			return
		}
		req := RecognizeRequest{Clouds: clouds}
		classes, err := step.CallService(ctx, a.BaseStep, a.recognizer, req)
		if err != nil {
			f := a.Failure(a.recognizer.Name())
			f.Goal = desired.String()
			f.Reason = err.Error()
			yield(core.Aborted(f))
			return
		}
		if !yield(core.Running(map[string]any{core.KeyCollaborator: a.recognizer.Name()})) {
			return
		}
		if a.Stopped() || ctx.Err() != nil {
			yield(a.preempted(desired, classes))
			return
		}

		idx, err := argmaxColumn(classes, desired.Column())
		if err != nil {
			f := a.Failure(a.recognizer.Name())
			f.Goal = desired.String()
			f.Reason = err.Error()
			f.Partial = classes
			yield(core.Aborted(f))
			return
		}
		a.Logger().Info("actions.recognize_object.recognized", "action", a.Name(), "desired_obj", desired.String(), "object_idx", idx)
		yield(core.Succeeded(map[string]any{"object_idx": idx}))
	}, nil
}

// currentLocation returns the lowercased location of the last nonzero
// robot_at_ belief, or "" when there is none.
func (a *RecognizeObject) currentLocation(ctx context.Context) (string, error) {
	beliefs, err := step.CallService(ctx, a.BaseStep, a.beliefs, struct{}{})
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(beliefs))
	for k := range beliefs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var loc string
	for _, k := range keys {
		if beliefs[k] == 0 || !strings.Contains(k, robotAtPrefix) {
			continue
		}
		loc = strings.ToLower(strings.Replace(k, robotAtPrefix, "", 1))
	}
	if loc == "" {
		return "", errors.New("no robot_at_ belief is set")
	}
	return loc, nil
}

func (a *RecognizeObject) preempted(desired ChallengeObject, classes []float64) core.Result {
	f := a.Failure(a.recognizer.Name())
	f.Goal = desired.String()
	f.Reason = "stop requested"
	if classes != nil {
		f.Partial = classes
	}
	return core.Preempted(f)
}
